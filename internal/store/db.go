package store

import (
	"context"
	"database/sql"
)

// Conn is the statement-execution contract every backend satisfies.
// Ledger operations are written against Conn so the same logical
// operation can run on the primary and be replayed on the mirror.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Dialect() Dialect
}

// Engine is a Conn that owns its connection pool.
type Engine interface {
	Conn
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// DB wraps a connection pool and rebinds placeholders for its dialect.
// Statements run in autocommit mode; no connection is pinned between calls.
type DB struct {
	pool    *sql.DB
	dialect Dialect
	name    string
}

func newDB(pool *sql.DB, dialect Dialect, name string) *DB {
	return &DB{pool: pool, dialect: dialect, name: name}
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.pool.ExecContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.pool.QueryContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.pool.QueryRowContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) Dialect() Dialect { return db.dialect }

// Name is the backend label used in logs.
func (db *DB) Name() string { return db.name }

func (db *DB) Ping(ctx context.Context) error { return db.pool.PingContext(ctx) }

func (db *DB) Close() error { return db.pool.Close() }

// MigrateResult describes what happened during schema setup.
type MigrateResult struct {
	Version      uint
	Dirty        bool
	Changed      bool
	ColumnsAdded []string
}
