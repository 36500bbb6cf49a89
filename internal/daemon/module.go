package daemon

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/bus"
	"github.com/matheus3301/wppledger/internal/config"
	"github.com/matheus3301/wppledger/internal/ledger"
	"github.com/matheus3301/wppledger/internal/lock"
	"github.com/matheus3301/wppledger/internal/logging"
	"github.com/matheus3301/wppledger/internal/status"
	"github.com/matheus3301/wppledger/internal/store"
	intsync "github.com/matheus3301/wppledger/internal/sync"
	"github.com/matheus3301/wppledger/internal/wa"
	"github.com/matheus3301/wppledger/internal/webhook"
)

// Params selects the configuration the daemon runs with.
type Params struct {
	ConfigPath string
	Config     *config.Config // optional; when set, ConfigPath and env are ignored
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideSelector,
			provideLedger,
			provideBus,
			provideStatus,
			provideSyncEngine,
			provideWebhook,
			provideAdapter,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg := p.Config
	if cfg == nil {
		path := p.ConfigPath
		if path == "" {
			path = config.DefaultPath()
		}
		loaded, err := config.LoadOrDefault(path)
		if err != nil {
			return nil, err
		}
		if err := config.ApplyEnv(loaded); err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:     cfg.LogPath(),
		Level:    cfg.Log.Level,
		Instance: "ledgerd",
	})
}

func provideLock(cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data dir lock", zap.String("dir", cfg.DataDir))
	l, err := lock.Acquire(cfg.DataDir, "ledgerd")
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

// provideSelector depends on the lock so backends are only opened by the
// process that owns the data dir.
func provideSelector(cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (*store.Selector, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return OpenBackends(ctx, cfg, logger)
}

// OpenBackends opens and migrates the primary and, when configured, the
// mirror. An unreachable mirror degrades to primary-only with a warning.
func OpenBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Selector, error) {
	primary, err := store.OpenSQLite(cfg.PrimaryPath())
	if err != nil {
		return nil, err
	}
	result, err := primary.Migrate(ctx)
	if err != nil {
		_ = primary.Close()
		return nil, err
	}
	logger.Info("primary store ready",
		zap.String("path", primary.Path()),
		zap.Uint("version", result.Version),
		zap.Bool("changed", result.Changed),
		zap.Strings("columns_added", result.ColumnsAdded))

	if !cfg.Mirror.Enabled {
		return store.NewSelector(primary, nil, logger), nil
	}

	mirror, err := store.OpenPostgres(ctx, cfg.Mirror.DSN)
	if err != nil {
		logger.Warn("mirror unavailable, running primary-only", zap.Error(err))
		return store.NewSelector(primary, nil, logger), nil
	}
	mres, err := mirror.Migrate(ctx)
	if err != nil {
		logger.Warn("mirror schema setup failed, running primary-only", zap.Error(err))
		_ = mirror.Close()
		return store.NewSelector(primary, nil, logger), nil
	}
	logger.Info("mirror store ready", zap.Uint("version", mres.Version), zap.Bool("changed", mres.Changed))
	return store.NewSelector(primary, mirror, logger), nil
}

func provideLedger(sel *store.Selector, logger *zap.Logger) *ledger.Ledger {
	return ledger.New(sel, logger)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStatus(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideSyncEngine(l *ledger.Ledger, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(l, b, logger)
}

func provideWebhook(cfg *config.Config, engine *intsync.Engine, l *ledger.Ledger, m *status.Machine, logger *zap.Logger) *webhook.Server {
	return webhook.NewServer(cfg.Webhook.Addr, engine, l, logger).WithSource(m)
}

// provideAdapter returns nil when the WhatsApp source is disabled or has no
// paired session; the webhook remains the only event source then.
func provideAdapter(cfg *config.Config, m *status.Machine, logger *zap.Logger) (*wa.Adapter, error) {
	if !cfg.WhatsApp.Enabled {
		_ = m.Transition(status.Disabled)
		return nil, nil
	}
	adapter, err := wa.NewAdapter(context.Background(), cfg.SessionDBPath(), logger)
	if errors.Is(err, wa.ErrNoSession) {
		logger.Warn("WhatsApp source enabled but no session found", zap.String("session_db", cfg.SessionDBPath()))
		_ = m.Transition(status.AuthRequired)
		return nil, nil
	}
	return adapter, err
}

func registerLifecycle(lc fx.Lifecycle, srv *webhook.Server, lk *lock.Lock, sel *store.Selector, adapter *wa.Adapter, engine *intsync.Engine, b *bus.Bus, m *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Subscribes to wa.* bus events.
			engine.Start(context.Background())

			if err := srv.Start(); err != nil {
				engine.Stop()
				return err
			}

			if adapter != nil {
				handler := wa.NewEventHandler(b, m, logger)
				adapter.RegisterEventHandler(handler.Handle)
				_ = m.Transition(status.Connecting)
				go func() {
					err := adapter.Connect()
					switch {
					case errors.Is(err, wa.ErrNoSession):
						logger.Warn("WhatsApp session is not paired")
						_ = m.Transition(status.AuthRequired)
					case err != nil:
						logger.Error("WhatsApp connect failed", zap.Error(err))
						_ = m.Transition(status.Error)
					}
				}()
			}

			logger.Info("daemon started",
				zap.String("backends", sel.Mode().String()),
				zap.String("whatsapp", string(m.Current())))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if adapter != nil {
				adapter.Disconnect()
			}
			if err := srv.Stop(ctx); err != nil {
				logger.Warn("webhook shutdown", zap.Error(err))
			}
			engine.Stop()
			if err := sel.Close(); err != nil {
				logger.Warn("error closing stores", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
