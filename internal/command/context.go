package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/config"
	"github.com/matheus3301/wppledger/internal/daemon"
	"github.com/matheus3301/wppledger/internal/ledger"
	"github.com/matheus3301/wppledger/internal/lock"
	"github.com/matheus3301/wppledger/internal/logging"
	"github.com/matheus3301/wppledger/internal/store"
)

// CommandContext holds the resources a command runs against.
type CommandContext struct {
	Config   *config.Config
	Logger   *zap.Logger
	Selector *store.Selector
	Ledger   *ledger.Ledger
	JSONMode bool

	lock *lock.Lock
}

// loadConfig resolves the config file, environment overrides and defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logging.Options{Level: "warn", Instance: AppName})
}

func acquireLock(cfg *config.Config) (*lock.Lock, error) {
	lk, err := lock.Acquire(cfg.DataDir, AppName)
	if err != nil {
		var held *lock.LockHeldError
		if errors.As(err, &held) {
			return nil, fmt.Errorf("%w: stop ledgerd before running write commands", err)
		}
		return nil, err
	}
	return lk, nil
}

// GetContext opens the configured backends. Write commands also take the
// data dir lock so they never race a running daemon.
func GetContext(cmd *cobra.Command, write bool) (*CommandContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	jsonMode, _ := cmd.Flags().GetBool("json")

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	var lk *lock.Lock
	if write {
		if lk, err = acquireLock(cfg); err != nil {
			return nil, err
		}
	}

	sel, err := daemon.OpenBackends(cmd.Context(), cfg, logger)
	if err != nil {
		if lk != nil {
			_ = lk.Release()
		}
		return nil, err
	}

	return &CommandContext{
		Config:   cfg,
		Logger:   logger,
		Selector: sel,
		Ledger:   ledger.New(sel, logger),
		JSONMode: jsonMode,
		lock:     lk,
	}, nil
}

// Close releases the backends and, for write commands, the lock.
func (c *CommandContext) Close() error {
	err := c.Selector.Close()
	if c.lock != nil {
		err = errors.Join(err, c.lock.Release())
	}
	_ = c.Logger.Sync()
	return err
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	if errors.Is(err, ledger.ErrUnresolvedContact) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: check that the primary database is reachable and writable.")
	}
	return err
}
