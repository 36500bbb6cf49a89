package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/wppledger/internal/store"
)

// AddComment appends a comment to the message with the given external id.
// Comments are never deduplicated.
func (l *Ledger) AddComment(ctx context.Context, messageID, comment string) (int64, error) {
	if strings.TrimSpace(messageID) == "" {
		return 0, ErrEmptyMessageID
	}
	createdAt := l.nowMillis()
	res, err := store.Write(ctx, l.sel, "add_comment", func(ctx context.Context, db store.Conn) (int64, error) {
		var msgID int64
		err := db.QueryRowContext(ctx, `SELECT id FROM messages WHERE message_id = ?`, messageID).Scan(&msgID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
		}
		if err != nil {
			return 0, fmt.Errorf("lookup message %q: %w", messageID, err)
		}

		var id int64
		if err := db.QueryRowContext(ctx, `
			INSERT INTO message_comments (message_id, comment, created_at)
			VALUES (?, ?, ?)
			RETURNING id`, msgID, comment, createdAt).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert comment: %w", err)
		}
		return id, nil
	})
	return res.Value, err
}

// ListComments returns the comments on a message in creation order.
func (l *Ledger) ListComments(ctx context.Context, messageID string) ([]Comment, error) {
	return store.Read(ctx, l.sel, func(ctx context.Context, db store.Conn) ([]Comment, error) {
		rows, err := db.QueryContext(ctx, `
			SELECT c.id, c.message_id, c.comment, c.created_at
			FROM message_comments c
			JOIN messages m ON m.id = c.message_id
			WHERE m.message_id = ?
			ORDER BY c.created_at, c.id`, messageID)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rows.Close() }()

		var comments []Comment
		for rows.Next() {
			var (
				c       Comment
				text    sql.NullString
				created sql.NullInt64
			)
			if err := rows.Scan(&c.ID, &c.MessageID, &text, &created); err != nil {
				return nil, err
			}
			c.Comment = text.String
			c.CreatedAt = created.Int64
			comments = append(comments, c)
		}
		return comments, rows.Err()
	})
}
