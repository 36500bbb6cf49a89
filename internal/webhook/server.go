// Package webhook exposes the ledger over HTTP: provider bridges push
// events here and operators read contacts, messages and comments back.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/ledger"
	"github.com/matheus3301/wppledger/internal/status"
	"github.com/matheus3301/wppledger/internal/sync"
)

// Server manages the HTTP listener lifecycle.
type Server struct {
	addr     string
	engine   *sync.Engine
	ledger   *ledger.Ledger
	source   *status.Machine
	logger   *zap.Logger
	router   *gin.Engine
	http     *http.Server
	listener net.Listener
}

func NewServer(addr string, engine *sync.Engine, l *ledger.Ledger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		addr:   addr,
		engine: engine,
		ledger: l,
		logger: logger,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// WithSource reports the WhatsApp source state on /health.
func (s *Server) WithSource(m *status.Machine) *Server {
	s.source = m
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background. Bind errors are
// returned; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.logger.Info("webhook server starting", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("webhook server stopping")
	return s.http.Shutdown(ctx)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/health", s.health)

	wh := r.Group("/webhook")
	{
		wh.POST("/message", s.webhookMessage)
		wh.POST("/media", s.webhookMedia)
		wh.POST("/receipt", s.webhookReceipt)
		wh.POST("/presence", s.webhookPresence)
	}

	r.POST("/sync/contacts", s.syncContacts)
	r.POST("/outgoing", s.recordOutgoing)

	r.GET("/contacts", s.listContacts)
	r.GET("/contacts/:jid", s.getContact)
	r.GET("/messages/:message_id", s.getMessage)
	r.GET("/messages/:message_id/comments", s.listComments)
	r.POST("/messages/:message_id/comments", s.addComment)

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
