package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/matheus3301/wppledger/internal/store/migrations"
)

// Postgres is the networked mirror engine.
type Postgres struct {
	*DB
}

// OpenPostgres connects through the pgx stdlib driver and verifies the
// connection before returning.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgres(pool), nil
}

// NewPostgres wraps an already opened pool.
func NewPostgres(pool *sql.DB) *Postgres {
	return &Postgres{DB: newDB(pool, PostgresDialect, "postgres")}
}

// Migrate applies the goose migrations and then makes sure every known
// column exists.
func (p *Postgres) Migrate(ctx context.Context) (*MigrateResult, error) {
	fsys, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, p.pool, fsys)
	if err != nil {
		return nil, fmt.Errorf("migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration up: %w", err)
	}

	if err := ensurePostgresColumns(ctx, p); err != nil {
		return nil, err
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration version: %w", err)
	}
	return &MigrateResult{
		Version: uint(version),
		Changed: len(results) > 0,
	}, nil
}
