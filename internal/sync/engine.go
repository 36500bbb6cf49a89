package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/bus"
	"github.com/matheus3301/wppledger/internal/identity"
	"github.com/matheus3301/wppledger/internal/ledger"
)

// ErrIgnored is returned for events that are deliberately not recorded.
var ErrIgnored = errors.New("event ignored")

// Engine feeds observed events into the ledger. It serves synchronous
// callers such as the webhook and also consumes "wa.*" events from the bus.
type Engine struct {
	ledger *ledger.Ledger
	bus    *bus.Bus
	logger *zap.Logger
	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

func NewEngine(l *ledger.Ledger, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger: l,
		bus:    b,
		logger: logger,
		now:    time.Now,
	}
}

// Start subscribes to inbound provider events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("wa.", 256)
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the bus subscription and waits for the current event to finish.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case bus.KindWAMessage:
		msg, ok := evt.Payload.(*InboundMessage)
		if !ok {
			return
		}
		if _, err := e.IngestMessage(ctx, msg); err != nil && !errors.Is(err, ErrIgnored) {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("message_id", msg.MessageID))
		}
	case bus.KindWAHistory:
		msgs, ok := evt.Payload.([]*InboundMessage)
		if !ok {
			return
		}
		n, err := e.IngestHistory(ctx, msgs)
		if err != nil {
			e.logger.Error("failed to ingest history batch", zap.Error(err), zap.Int("count", len(msgs)))
			return
		}
		e.logger.Info("history batch ingested", zap.Int("messages", len(msgs)), zap.Int("inserted", n))
	case bus.KindWAReceipt:
		r, ok := evt.Payload.(Receipt)
		if !ok {
			return
		}
		if err := e.IngestReceipt(ctx, r); err != nil {
			e.logger.Error("failed to apply receipt", zap.Error(err), zap.String("message_id", r.MessageID))
		}
	case bus.KindWAPresence:
		p, ok := evt.Payload.(PresenceUpdate)
		if !ok {
			return
		}
		if err := e.IngestPresence(ctx, p); err != nil {
			e.logger.Error("failed to record presence", zap.Error(err), zap.String("jid", p.JID))
		}
	}
}

// Ignored reports whether a message must be skipped: status broadcasts are
// never recorded.
func Ignored(m *InboundMessage) bool {
	return identity.IsStatusBroadcast(m.From)
}

// IngestMessage records a message once. Redelivery yields Inserted=false.
func (e *Engine) IngestMessage(ctx context.Context, m *InboundMessage) (ledger.InsertResult, error) {
	if Ignored(m) {
		e.logger.Debug("ignoring status broadcast", zap.String("message_id", m.MessageID))
		return ledger.InsertResult{}, ErrIgnored
	}
	nm := e.normalize(m)
	res, err := e.ledger.InsertMessage(ctx, nm)
	if err != nil {
		return res, err
	}
	if res.Inserted {
		e.bus.Emit(bus.KindMessageStored, map[string]any{
			"message_id": nm.MessageID,
			"contact_id": res.ContactID,
			"direction":  string(nm.Direction),
		})
	}
	return res, nil
}

// IngestHistory records a batch of backfilled messages and returns how
// many were new. It stops at the first backend failure.
func (e *Engine) IngestHistory(ctx context.Context, msgs []*InboundMessage) (int, error) {
	inserted := 0
	for _, m := range msgs {
		res, err := e.IngestMessage(ctx, m)
		if errors.Is(err, ErrIgnored) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("history message %q: %w", m.MessageID, err)
		}
		if res.Inserted {
			inserted++
		}
	}
	return inserted, nil
}

func (e *Engine) normalize(m *InboundMessage) ledger.NewMessage {
	dir := ledger.Direction(m.Direction)
	if dir == "" {
		dir = ledger.Inbound
	}
	mtype := m.MessageType
	if mtype == "" {
		mtype = ledger.TypeText
	}
	status := m.Status
	if status == "" {
		status = ledger.StatusDelivered
		if dir == ledger.Outbound {
			status = ledger.StatusSent
		}
	}
	ts := m.Timestamp
	if ts == 0 {
		ts = e.now().UnixMilli()
	}
	return ledger.NewMessage{
		MessageID:   m.MessageID,
		From:        m.From,
		Phone:       m.Phone,
		Name:        m.Name,
		Direction:   dir,
		MessageType: mtype,
		Content:     m.Content,
		MediaPath:   m.MediaPath,
		Timestamp:   ts,
		Status:      status,
	}
}

// IngestReceipt applies a status change. Unknown messages are ignored by
// the ledger.
func (e *Engine) IngestReceipt(ctx context.Context, r Receipt) error {
	if r.Status == "" {
		return fmt.Errorf("receipt %q: empty status", r.MessageID)
	}
	if err := e.ledger.UpdateStatus(ctx, r.MessageID, r.Status); err != nil {
		return err
	}
	e.bus.Emit(bus.KindStatusUpdated, map[string]string{
		"message_id": r.MessageID,
		"status":     r.Status,
	})
	return nil
}

// IngestPresence records an availability observation, deriving the phone
// from the identifier when none is given.
func (e *Engine) IngestPresence(ctx context.Context, p PresenceUpdate) error {
	phone := p.Phone
	if phone == "" {
		phone, _ = identity.DerivePhone(p.JID)
	}
	var lastSeen *int64
	if p.LastSeenAt != 0 {
		lastSeen = &p.LastSeenAt
	}
	if err := e.ledger.UpdatePresence(ctx, ledger.Presence{
		JID:        p.JID,
		Phone:      phone,
		Name:       p.Name,
		IsOnline:   p.Online,
		LastSeenAt: lastSeen,
	}); err != nil {
		return err
	}
	e.bus.Emit(bus.KindPresenceUpdated, map[string]any{
		"jid":    p.JID,
		"online": p.Online,
	})
	return nil
}

// IngestComment attaches an operator comment to a recorded message.
func (e *Engine) IngestComment(ctx context.Context, messageID, comment string) (int64, error) {
	id, err := e.ledger.AddComment(ctx, messageID, comment)
	if err != nil {
		return 0, err
	}
	e.bus.Emit(bus.KindCommentAdded, map[string]any{
		"message_id": messageID,
		"comment_id": id,
	})
	return id, nil
}

// SyncContacts records every chat of a pushed chat list as an offline
// contact last seen at the chat's latest activity. It returns the number of
// chats recorded; failures for single chats are collected and the rest
// still proceed.
func (e *Engine) SyncContacts(ctx context.Context, chats []ChatSummary) (int, error) {
	var (
		synced int
		errs   []error
	)
	for _, c := range chats {
		if c.JID == "" || identity.IsStatusBroadcast(c.JID) {
			continue
		}
		if err := e.IngestPresence(ctx, PresenceUpdate{
			JID:        c.JID,
			Name:       c.Name,
			Online:     false,
			LastSeenAt: c.LastTimestamp,
		}); err != nil {
			errs = append(errs, fmt.Errorf("sync %q: %w", c.JID, err))
			continue
		}
		synced++
	}
	if len(errs) > 0 {
		e.logger.Warn("contact sync incomplete", zap.Int("synced", synced), zap.Int("failed", len(errs)))
	}
	return synced, errors.Join(errs...)
}

// RecordOutbound stores a message sent from this account under a freshly
// generated id and returns that id.
func (e *Engine) RecordOutbound(ctx context.Context, o Outbound) (string, error) {
	mtype := o.MessageType
	if mtype == "" {
		mtype = ledger.TypeText
		if o.MediaPath != "" {
			mtype = ledger.TypeMedia
		}
	}
	id := uuid.NewString()
	if _, err := e.IngestMessage(ctx, &InboundMessage{
		MessageID:   id,
		From:        o.To,
		Direction:   string(ledger.Outbound),
		MessageType: mtype,
		Content:     o.Content,
		MediaPath:   o.MediaPath,
		Status:      ledger.StatusSent,
	}); err != nil {
		return "", err
	}
	return id, nil
}
