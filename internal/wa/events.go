package wa

import (
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/bus"
	"github.com/matheus3301/wppledger/internal/status"
	"github.com/matheus3301/wppledger/internal/sync"
)

// EventHandler turns whatsmeow events into "wa.*" bus events. It does not
// call the ingestion engine; the engine subscribes to the bus on its own.
// Connection events drive the optional state machine.
type EventHandler struct {
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
}

func NewEventHandler(b *bus.Bus, m *status.Machine, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{bus: b, machine: m, logger: logger}
}

// Handle is the whatsmeow event handler function.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		h.bus.Emit(bus.KindWAMessage, ParseLiveMessage(evt))
	case *events.Receipt:
		for _, r := range ParseReceipt(evt) {
			h.bus.Emit(bus.KindWAReceipt, r)
		}
	case *events.Presence:
		h.bus.Emit(bus.KindWAPresence, ParsePresence(evt))
	case *events.HistorySync:
		h.handleHistorySync(evt)
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		h.transition(status.Ready)
	case *events.Disconnected:
		h.logger.Warn("WhatsApp disconnected")
		h.transition(status.Reconnecting)
	case *events.LoggedOut:
		h.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()))
		h.transition(status.AuthRequired)
	}
}

func (h *EventHandler) transition(to status.State) {
	if h.machine == nil {
		return
	}
	if err := h.machine.Transition(to); err != nil {
		h.logger.Debug("source state unchanged", zap.Error(err))
	}
}

func (h *EventHandler) handleHistorySync(evt *events.HistorySync) {
	data := evt.Data
	if data == nil {
		return
	}

	var msgs []*sync.InboundMessage
	for _, conv := range data.GetConversations() {
		for _, hm := range conv.GetMessages() {
			if m := ParseHistoryMessage(conv.GetID(), hm.GetMessage()); m != nil {
				msgs = append(msgs, m)
			}
		}
	}

	if len(msgs) > 0 {
		h.bus.Emit(bus.KindWAHistory, msgs)
	}
}
