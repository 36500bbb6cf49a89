package wa

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.uber.org/zap"
)

// ErrNoSession means the session store holds no paired device. Pairing is
// done elsewhere; this adapter only listens on an existing session.
var ErrNoSession = errors.New("no paired WhatsApp session")

// Adapter wraps the whatsmeow client as a read-only event source.
type Adapter struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	logger    *zap.Logger
}

// NewAdapter opens the whatsmeow session store at sessionDB.
func NewAdapter(ctx context.Context, sessionDB string, logger *zap.Logger) (*Adapter, error) {
	if _, err := os.Stat(sessionDB); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, sessionDB)
	}

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", sessionDB),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("get device store: %w", err)
	}

	return &Adapter{
		client:    whatsmeow.NewClient(deviceStore, nil),
		container: container,
		logger:    logger,
	}, nil
}

// IsLoggedIn reports whether the session has credentials.
func (a *Adapter) IsLoggedIn() bool {
	return a.client.Store.ID != nil
}

// Connect starts receiving events. It refuses to start a pairing flow.
func (a *Adapter) Connect() error {
	if !a.IsLoggedIn() {
		return ErrNoSession
	}
	a.logger.Info("connecting to WhatsApp", zap.String("account", a.client.Store.ID.User))
	return a.client.Connect()
}

// Disconnect terminates the connection and closes the session store.
func (a *Adapter) Disconnect() {
	a.logger.Info("disconnecting from WhatsApp")
	a.client.Disconnect()
	if err := a.container.Close(); err != nil {
		a.logger.Warn("close session store", zap.Error(err))
	}
}

// RegisterEventHandler adds a handler for whatsmeow events.
func (a *Adapter) RegisterEventHandler(handler whatsmeow.EventHandler) {
	a.client.AddEventHandler(handler)
}
