package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/matheus3301/wppledger/internal/store/migrations"
)

// SQLite is the primary engine: a local single-file database.
type SQLite struct {
	*DB
	path string
}

// OpenSQLite creates the parent directory if needed and opens the database
// with WAL mode and recommended pragmas.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	pool, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLite{DB: newDB(pool, SQLiteDialect, "sqlite"), path: path}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Migrate runs pending migrations and then adds any columns a legacy
// database is missing. Safe to call on every startup.
func (s *SQLite) Migrate(ctx context.Context) (*MigrateResult, error) {
	source, err := iofs.New(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.pool, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	err = m.Up()
	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed = false
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("migration up: %w", err)
	}

	added, err := ensureSQLiteColumns(ctx, s)
	if err != nil {
		return nil, err
	}

	version, dirty, _ := m.Version()
	return &MigrateResult{
		Version:      version,
		Dirty:        dirty,
		Changed:      changed || len(added) > 0,
		ColumnsAdded: added,
	}, nil
}
