package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/wppledger/internal/store"
)

const contactColumns = `id, jid, phone, name, profile_pic, last_seen_at, is_online, created_at, updated_at`

// UpdatePresence upserts a contact from a presence observation. Phone and
// name are only filled when empty; online state and last seen always
// reflect the latest observation.
func (l *Ledger) UpdatePresence(ctx context.Context, p Presence) error {
	if strings.TrimSpace(p.JID) == "" {
		return ErrEmptyIdentifier
	}
	now := l.nowMillis()
	lastSeen := now
	if p.LastSeenAt != nil {
		lastSeen = *p.LastSeenAt
	}
	_, err := store.Write(ctx, l.sel, "update_presence", func(ctx context.Context, db store.Conn) (struct{}, error) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO contacts (jid, phone, name, last_seen_at, is_online, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(jid) DO UPDATE SET
				phone = CASE WHEN contacts.phone IS NULL OR contacts.phone = '' THEN excluded.phone ELSE contacts.phone END,
				name = CASE WHEN contacts.name IS NULL OR contacts.name = '' THEN excluded.name ELSE contacts.name END,
				last_seen_at = excluded.last_seen_at,
				is_online = excluded.is_online,
				updated_at = excluded.updated_at`,
			p.JID, nullIfEmpty(p.Phone), nullIfEmpty(p.Name), lastSeen, p.IsOnline, now, now)
		if err != nil {
			return struct{}{}, fmt.Errorf("upsert presence %q: %w", p.JID, err)
		}
		return struct{}{}, nil
	})
	return err
}

// OverridePhone replaces a contact's phone unconditionally. It is the only
// way to change a confirmed phone and is meant for operators.
func (l *Ledger) OverridePhone(ctx context.Context, jid, phone string) error {
	if strings.TrimSpace(jid) == "" {
		return ErrEmptyIdentifier
	}
	_, err := store.Write(ctx, l.sel, "override_phone", func(ctx context.Context, db store.Conn) (struct{}, error) {
		res, err := db.ExecContext(ctx, `UPDATE contacts SET phone = ?, updated_at = ? WHERE jid = ?`,
			nullIfEmpty(phone), l.nowMillis(), jid)
		if err != nil {
			return struct{}{}, fmt.Errorf("override phone %q: %w", jid, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return struct{}{}, fmt.Errorf("%w: %s", ErrContactNotFound, jid)
		}
		return struct{}{}, nil
	})
	return err
}

// GetContact returns a contact by jid, or nil if none exists.
func (l *Ledger) GetContact(ctx context.Context, jid string) (*Contact, error) {
	return store.Read(ctx, l.sel, func(ctx context.Context, db store.Conn) (*Contact, error) {
		row := db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE jid = ?`, jid)
		return scanContactRow(row)
	})
}

// GetContactByID returns a contact by surrogate id, or nil if none exists.
func (l *Ledger) GetContactByID(ctx context.Context, id int64) (*Contact, error) {
	return store.Read(ctx, l.sel, func(ctx context.Context, db store.Conn) (*Contact, error) {
		row := db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
		return scanContactRow(row)
	})
}

// ListContacts returns contacts ordered by most recent update.
func (l *Ledger) ListContacts(ctx context.Context, limit, offset int) ([]Contact, error) {
	if limit <= 0 {
		limit = 100
	}
	return store.Read(ctx, l.sel, func(ctx context.Context, db store.Conn) ([]Contact, error) {
		rows, err := db.QueryContext(ctx, `
			SELECT `+contactColumns+` FROM contacts
			ORDER BY updated_at DESC, id DESC
			LIMIT ? OFFSET ?`, limit, offset)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rows.Close() }()

		var contacts []Contact
		for rows.Next() {
			c, err := scanContact(rows)
			if err != nil {
				return nil, err
			}
			contacts = append(contacts, *c)
		}
		return contacts, rows.Err()
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContactRow(row *sql.Row) (*Contact, error) {
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func scanContact(s scanner) (*Contact, error) {
	var (
		c                          Contact
		phone, name, pic           sql.NullString
		lastSeen, created, updated sql.NullInt64
		online                     sql.NullBool
	)
	if err := s.Scan(&c.ID, &c.JID, &phone, &name, &pic, &lastSeen, &online, &created, &updated); err != nil {
		return nil, err
	}
	c.Phone = phone.String
	c.Name = name.String
	c.ProfilePic = pic.String
	c.LastSeenAt = lastSeen.Int64
	c.IsOnline = online.Bool
	c.CreatedAt = created.Int64
	c.UpdatedAt = updated.Int64
	return &c, nil
}
