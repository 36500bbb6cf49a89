package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/wppledger/internal/store"
)

const messageColumns = `id, message_id, contact_id, direction, message_type, content, media_path, timestamp, status, created_at`

// InsertResult reports the outcome of InsertMessage. Inserted is false when
// the message id was already recorded; the stored row is left untouched.
type InsertResult struct {
	ContactID int64
	Inserted  bool
	Mirror    store.MirrorOutcome
}

// InsertMessage resolves the sender and records the message at most once
// per message id. Redelivery of the same id is not an error.
func (l *Ledger) InsertMessage(ctx context.Context, m NewMessage) (InsertResult, error) {
	if strings.TrimSpace(m.MessageID) == "" {
		return InsertResult{}, ErrEmptyMessageID
	}
	if strings.TrimSpace(m.From) == "" {
		return InsertResult{}, ErrEmptyIdentifier
	}
	if _, err := ParseDirection(string(m.Direction)); err != nil {
		return InsertResult{}, err
	}
	createdAt := l.nowMillis()

	res, err := store.Write(ctx, l.sel, "insert_message", func(ctx context.Context, db store.Conn) (InsertResult, error) {
		contactID, err := l.resolveOn(ctx, db, m.From, m.Phone, m.Name)
		if err != nil {
			return InsertResult{}, err
		}
		r, err := db.ExecContext(ctx, `
			INSERT INTO messages (message_id, contact_id, direction, message_type, content, media_path, timestamp, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(message_id) DO NOTHING`,
			m.MessageID, contactID, string(m.Direction), m.MessageType,
			nullIfEmpty(m.Content), nullIfEmpty(m.MediaPath), m.Timestamp, m.Status, createdAt)
		if err != nil {
			return InsertResult{ContactID: contactID}, fmt.Errorf("insert message %q: %w", m.MessageID, err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return InsertResult{ContactID: contactID}, fmt.Errorf("insert message %q: %w", m.MessageID, err)
		}
		return InsertResult{ContactID: contactID, Inserted: n > 0}, nil
	})
	out := res.Value
	out.Mirror = res.Mirror
	return out, err
}

// UpdateStatus sets the delivery status of a message. An unknown message id
// is a no-op.
func (l *Ledger) UpdateStatus(ctx context.Context, messageID string, status Status) error {
	if strings.TrimSpace(messageID) == "" {
		return ErrEmptyMessageID
	}
	_, err := store.Write(ctx, l.sel, "update_status", func(ctx context.Context, db store.Conn) (struct{}, error) {
		if _, err := db.ExecContext(ctx, `UPDATE messages SET status = ? WHERE message_id = ?`, status, messageID); err != nil {
			return struct{}{}, fmt.Errorf("update status %q: %w", messageID, err)
		}
		return struct{}{}, nil
	})
	return err
}

// GetMessage returns a message by its external id, or nil if none exists.
func (l *Ledger) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	return store.Read(ctx, l.sel, func(ctx context.Context, db store.Conn) (*Message, error) {
		row := db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE message_id = ?`, messageID)
		m, err := scanMessage(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return m, err
	})
}

// ListMessages returns a contact's messages newest first. If beforeTs > 0,
// only messages strictly older are returned.
func (l *Ledger) ListMessages(ctx context.Context, contactID, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	return store.Read(ctx, l.sel, func(ctx context.Context, db store.Conn) ([]Message, error) {
		query := `SELECT ` + messageColumns + ` FROM messages WHERE contact_id = ?`
		args := []any{contactID}
		if beforeTs > 0 {
			query += ` AND timestamp < ?`
			args = append(args, beforeTs)
		}
		query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
		args = append(args, limit)

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rows.Close() }()

		var msgs []Message
		for rows.Next() {
			m, err := scanMessage(rows)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, *m)
		}
		return msgs, rows.Err()
	})
}

func scanMessage(s scanner) (*Message, error) {
	var (
		m                        Message
		direction, mtype, status sql.NullString
		content, mediaPath       sql.NullString
		ts, created              sql.NullInt64
	)
	if err := s.Scan(&m.ID, &m.MessageID, &m.ContactID, &direction, &mtype, &content, &mediaPath, &ts, &status, &created); err != nil {
		return nil, err
	}
	m.Direction = Direction(direction.String)
	m.MessageType = mtype.String
	m.Content = content.String
	m.MediaPath = mediaPath.String
	m.Timestamp = ts.Int64
	m.Status = status.String
	m.CreatedAt = created.Int64
	return &m, nil
}
