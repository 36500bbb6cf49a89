package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the daemon and CLI configuration, read from config.toml and
// overlaid with LEDGER_* environment variables.
type Config struct {
	DataDir  string         `toml:"data_dir"`
	Primary  PrimaryConfig  `toml:"primary"`
	Mirror   MirrorConfig   `toml:"mirror"`
	Webhook  WebhookConfig  `toml:"webhook"`
	WhatsApp WhatsAppConfig `toml:"whatsapp"`
	Log      LogConfig      `toml:"log"`
}

type PrimaryConfig struct {
	Path string `toml:"path"`
}

// MirrorConfig enables the secondary networked backend.
type MirrorConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

type WebhookConfig struct {
	Addr string `toml:"addr"`
}

// WhatsAppConfig points at an already paired whatsmeow session.
type WhatsAppConfig struct {
	Enabled   bool   `toml:"enabled"`
	SessionDB string `toml:"session_db"`
}

type LogConfig struct {
	Path  string `toml:"path"`
	Level string `toml:"level"`
}

// DefaultDataDir returns ~/.wppledger.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wppledger"
	}
	return filepath.Join(home, ".wppledger")
}

// DefaultPath returns the config file inside the default data dir.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

// Default returns a config rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		DataDir: dataDir,
		Primary: PrimaryConfig{Path: "ledger.db"},
		Webhook: WebhookConfig{Addr: "0.0.0.0:3002"},
		WhatsApp: WhatsAppConfig{
			SessionDB: "session.db",
		},
		Log: LogConfig{Path: filepath.Join("logs", "ledgerd.log"), Level: "info"},
	}
}

// Load reads config from path on top of the defaults. Returns an error if
// the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default(DefaultDataDir())
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(DefaultDataDir()), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ApplyEnv loads an optional .env file from the working directory and then
// overlays LEDGER_* variables. Variables already set in the environment win
// over .env entries.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	applyEnv(cfg, os.LookupEnv)
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("LEDGER_DATA_DIR"); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := lookup("LEDGER_PRIMARY_PATH"); ok && v != "" {
		cfg.Primary.Path = v
	}
	if v, ok := lookup("LEDGER_MIRROR_DSN"); ok && v != "" {
		cfg.Mirror.DSN = v
		cfg.Mirror.Enabled = true
	}
	if v, ok := lookup("LEDGER_WEBHOOK_ADDR"); ok && v != "" {
		cfg.Webhook.Addr = v
	}
	if v, ok := lookup("LEDGER_WHATSAPP_SESSION_DB"); ok && v != "" {
		cfg.WhatsApp.SessionDB = v
		cfg.WhatsApp.Enabled = true
	}
	if v, ok := lookup("LEDGER_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
}

// Validate reports configuration that cannot start.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Primary.Path == "" {
		return errors.New("primary.path is required")
	}
	if c.Mirror.Enabled && c.Mirror.DSN == "" {
		return errors.New("mirror.enabled requires mirror.dsn")
	}
	if c.Webhook.Addr == "" {
		return errors.New("webhook.addr is required")
	}
	return nil
}

// Resolve returns p joined to the data dir unless it is already absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

func (c *Config) PrimaryPath() string { return c.Resolve(c.Primary.Path) }

func (c *Config) SessionDBPath() string { return c.Resolve(c.WhatsApp.SessionDB) }

func (c *Config) LogPath() string { return c.Resolve(c.Log.Path) }
