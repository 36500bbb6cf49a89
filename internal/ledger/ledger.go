// Package ledger records participants and their messages. Every write is a
// logical operation run through the backend selector, so the same code
// path serves the primary and the mirror.
package ledger

import (
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/store"
)

// Ledger is safe for concurrent use. Uniqueness of jid and message_id in
// the backend is the only coordination between concurrent callers.
type Ledger struct {
	sel    *store.Selector
	logger *zap.Logger
	now    func() time.Time
}

func New(sel *store.Selector, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{sel: sel, logger: logger, now: time.Now}
}

func (l *Ledger) nowMillis() int64 {
	return l.now().UnixMilli()
}

// nullIfEmpty stores absent optional text as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
