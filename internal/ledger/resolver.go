package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/identity"
	"github.com/matheus3301/wppledger/internal/store"
)

// Resolve returns the contact id for raw, creating the contact on first
// sight and filling in phone and name as better information arrives.
// Concurrent callers with the same raw get the same id.
func (l *Ledger) Resolve(ctx context.Context, raw string, hintPhone, hintName *string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, ErrEmptyIdentifier
	}
	res, err := store.Write(ctx, l.sel, "resolve", func(ctx context.Context, db store.Conn) (int64, error) {
		return l.resolveOn(ctx, db, raw, deref(hintPhone), deref(hintName))
	})
	return res.Value, err
}

func (l *Ledger) resolveOn(ctx context.Context, db store.Conn, raw, phone, name string) (int64, error) {
	if phone == "" {
		phone, _ = identity.DerivePhone(raw)
	}

	var (
		id          int64
		storedPhone sql.NullString
		storedName  sql.NullString
	)
	err := db.QueryRowContext(ctx, `SELECT id, phone, name FROM contacts WHERE jid = ?`, raw).
		Scan(&id, &storedPhone, &storedName)
	switch {
	case err == nil:
		l.merge(ctx, db, raw, id, phone, name, storedPhone.String, storedName.String)
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("%w: lookup %q: %w", ErrUnresolvedContact, raw, err)
	}

	now := l.nowMillis()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO contacts (jid, phone, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO NOTHING`,
		raw, nullIfEmpty(phone), nullIfEmpty(name), now, now); err != nil {
		return 0, fmt.Errorf("%w: insert %q: %w", ErrUnresolvedContact, raw, err)
	}

	// Either our insert or a concurrent one won; both leave exactly one row.
	if err := db.QueryRowContext(ctx, `SELECT id FROM contacts WHERE jid = ?`, raw).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: reselect %q: %w", ErrUnresolvedContact, raw, err)
	}
	return id, nil
}

// merge upgrades an existing contact in place. Failures are logged and
// dropped: the caller already has a valid id.
func (l *Ledger) merge(ctx context.Context, db store.Conn, raw string, id int64, phone, name, storedPhone, storedName string) {
	now := l.nowMillis()
	if phone != "" && phone != storedPhone && (storedPhone == "" || identity.IsPlaceholder(raw, storedPhone)) {
		// The WHERE repeats the guard so a concurrent confirmed phone is
		// never overwritten.
		placeholder := ""
		if parsed := identity.Parse(raw); parsed.Kind == identity.KindLinked {
			placeholder = parsed.Local
		}
		if _, err := db.ExecContext(ctx, `
			UPDATE contacts SET phone = ?, updated_at = ?
			WHERE id = ? AND (phone IS NULL OR phone = '' OR phone = ?)`,
			phone, now, id, placeholder); err != nil {
			l.logger.Warn("contact phone merge failed",
				zap.String("jid", raw),
				zap.String("backend", db.Dialect().String()),
				zap.Error(err))
		}
	}
	if name != "" && storedName == "" {
		if _, err := db.ExecContext(ctx, `
			UPDATE contacts SET name = ?, updated_at = ?
			WHERE id = ? AND (name IS NULL OR name = '')`,
			name, now, id); err != nil {
			l.logger.Warn("contact name merge failed",
				zap.String("jid", raw),
				zap.String("backend", db.Dialect().String()),
				zap.Error(err))
		}
	}
}
