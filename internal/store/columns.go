package store

import (
	"context"
	"fmt"
)

// column is one non-key column of the ledger schema. The pass below adds
// any that are missing from databases created by older releases.
type column struct {
	table        string
	name         string
	sqliteType   string
	postgresType string
}

var ledgerColumns = []column{
	{"contacts", "phone", "TEXT", "TEXT"},
	{"contacts", "name", "TEXT", "TEXT"},
	{"contacts", "profile_pic", "TEXT", "TEXT"},
	{"contacts", "last_seen_at", "INTEGER", "BIGINT"},
	{"contacts", "is_online", "INTEGER", "BOOLEAN"},
	{"contacts", "created_at", "INTEGER", "BIGINT"},
	{"contacts", "updated_at", "INTEGER", "BIGINT"},
	{"messages", "direction", "TEXT", "TEXT"},
	{"messages", "message_type", "TEXT", "TEXT"},
	{"messages", "content", "TEXT", "TEXT"},
	{"messages", "media_path", "TEXT", "TEXT"},
	{"messages", "timestamp", "INTEGER", "BIGINT"},
	{"messages", "status", "TEXT", "TEXT"},
	{"messages", "created_at", "INTEGER", "BIGINT"},
	{"message_comments", "comment", "TEXT", "TEXT"},
	{"message_comments", "created_at", "INTEGER", "BIGINT"},
}

// tableColumns returns the column names of a SQLite table.
func tableColumns(ctx context.Context, db Conn, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// ensureSQLiteColumns adds only the columns a table lacks.
func ensureSQLiteColumns(ctx context.Context, db Conn) ([]string, error) {
	existing := make(map[string]map[string]bool)
	var added []string
	for _, c := range ledgerColumns {
		cols, ok := existing[c.table]
		if !ok {
			var err error
			cols, err = tableColumns(ctx, db, c.table)
			if err != nil {
				return added, err
			}
			existing[c.table] = cols
		}
		if cols[c.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.name, c.sqliteType)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return added, fmt.Errorf("add column %s.%s: %w", c.table, c.name, err)
		}
		cols[c.name] = true
		added = append(added, c.table+"."+c.name)
	}
	return added, nil
}

// ensurePostgresColumns relies on ADD COLUMN IF NOT EXISTS, so it is safe to
// issue for every known column on each startup.
func ensurePostgresColumns(ctx context.Context, db Conn) error {
	for _, c := range ledgerColumns {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", c.table, c.name, c.postgresType)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", c.table, c.name, err)
		}
	}
	return nil
}
