package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"testing"
)

func testDB(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenSQLiteCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "ledger.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if db.Dialect() != SQLiteDialect {
		t.Errorf("Dialect() = %v, want sqlite", db.Dialect())
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already migrated once; a second run must change nothing.
	result, err := db.Migrate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if len(result.ColumnsAdded) != 0 {
		t.Errorf("ColumnsAdded = %v, want none", result.ColumnsAdded)
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

// TestMigrateUpgradesLegacyContacts covers databases created before the
// presence columns existed: setup must add them without touching rows.
func TestMigrateUpgradesLegacyContacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(`CREATE TABLE contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		jid TEXT UNIQUE,
		phone TEXT,
		name TEXT,
		created_at INTEGER
	)`); err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(`INSERT INTO contacts (jid, phone, name) VALUES ('5511@s.whatsapp.net', '5511', 'Old')`); err != nil {
		t.Fatal(err)
	}
	_ = raw.Close()

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	result, err := db.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	for _, want := range []string{"contacts.profile_pic", "contacts.last_seen_at", "contacts.is_online", "contacts.updated_at"} {
		if !slices.Contains(result.ColumnsAdded, want) {
			t.Errorf("ColumnsAdded = %v, missing %s", result.ColumnsAdded, want)
		}
	}

	var name string
	var online sql.NullBool
	if err := db.QueryRowContext(ctx, `SELECT name, is_online FROM contacts WHERE jid = ?`, "5511@s.whatsapp.net").Scan(&name, &online); err != nil {
		t.Fatalf("query upgraded row: %v", err)
	}
	if name != "Old" || online.Valid {
		t.Errorf("row = (%q, %v), want (Old, NULL)", name, online)
	}

	again, err := db.Migrate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Changed || len(again.ColumnsAdded) != 0 {
		t.Errorf("second Migrate() = %+v, want no change", again)
	}
}

func TestSchemaAcceptsLedgerWrites(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	ops := []struct {
		desc  string
		query string
		args  []any
	}{
		{"contact", "INSERT INTO contacts (jid, phone, name, profile_pic, last_seen_at, is_online, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", []any{"1@s.whatsapp.net", "1", "A", "", 1000, true, 1000, 1000}},
		{"message", "INSERT INTO messages (message_id, contact_id, direction, message_type, content, media_path, timestamp, status, created_at) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?)", []any{"m1", "in", "text", "hi", nil, 1000, "delivered", 1000}},
		{"comment", "INSERT INTO message_comments (message_id, comment, created_at) VALUES (1, ?, ?)", []any{"note", 1000}},
	}
	for _, op := range ops {
		t.Run(op.desc, func(t *testing.T) {
			if _, err := db.ExecContext(ctx, op.query, op.args...); err != nil {
				t.Fatalf("%s: %v", op.desc, err)
			}
		})
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO messages (message_id, contact_id) VALUES (?, ?)", "orphan", 999); err == nil {
		t.Error("message with unknown contact_id should violate the foreign key")
	}
}
