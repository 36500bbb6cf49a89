package wa

import (
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/matheus3301/wppledger/internal/bus"
	"github.com/matheus3301/wppledger/internal/status"
	"github.com/matheus3301/wppledger/internal/sync"
)

func receive(t *testing.T, ch <-chan bus.Event, kind string) bus.Event {
	t.Helper()
	select {
	case evt := <-ch:
		if evt.Kind != kind {
			t.Fatalf("event kind = %q, want %s", evt.Kind, kind)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for %s event", kind)
	}
	return bus.Event{}
}

func TestHandleMessagePublishesInbound(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, nil, nil)

	ch, unsub := b.Subscribe("wa.", 10)
	defer unsub()

	h.Handle(&events.Message{
		Info: types.MessageInfo{
			ID:        "m1",
			Timestamp: time.Now(),
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "558592403672", Server: types.DefaultUserServer, Device: 1},
				Sender: types.JID{User: "558592403672", Server: types.DefaultUserServer, Device: 3},
			},
		},
		Message: &waE2E.Message{Conversation: proto.String("hello")},
	})

	evt := receive(t, ch, bus.KindWAMessage)
	msg, ok := evt.Payload.(*sync.InboundMessage)
	if !ok {
		t.Fatal("payload is not *sync.InboundMessage")
	}
	if msg.From != "558592403672@s.whatsapp.net" {
		t.Errorf("From = %q (device suffix not stripped)", msg.From)
	}
}

func TestHandleReceiptPublishesPerMessage(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, nil, nil)

	ch, unsub := b.Subscribe("wa.receipt", 10)
	defer unsub()

	h.Handle(&events.Receipt{MessageIDs: []types.MessageID{"m1", "m2"}, Type: types.ReceiptTypeRead})

	for _, want := range []string{"m1", "m2"} {
		evt := receive(t, ch, bus.KindWAReceipt)
		r := evt.Payload.(sync.Receipt)
		if r.MessageID != want || r.Status != "read" {
			t.Errorf("receipt = %+v, want %s read", r, want)
		}
	}
}

func TestHandlePresence(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, nil, nil)

	ch, unsub := b.Subscribe("wa.presence", 10)
	defer unsub()

	h.Handle(&events.Presence{From: types.JID{User: "558592403672", Server: types.DefaultUserServer}})

	evt := receive(t, ch, bus.KindWAPresence)
	if p := evt.Payload.(sync.PresenceUpdate); !p.Online {
		t.Errorf("presence = %+v, want online", p)
	}
}

func TestHandleHistorySync(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, nil, nil)

	ch, unsub := b.Subscribe("wa.", 10)
	defer unsub()

	msgTS := uint64(time.Now().Unix())
	h.Handle(&events.HistorySync{
		Data: &waHistorySync.HistorySync{
			Conversations: []*waHistorySync.Conversation{
				{
					ID: proto.String("558592403672@s.whatsapp.net"),
					Messages: []*waHistorySync.HistorySyncMsg{
						{
							Message: &waWeb.WebMessageInfo{
								Key: &waCommon.MessageKey{
									ID:        proto.String("hm1"),
									FromMe:    proto.Bool(false),
									RemoteJID: proto.String("558592403672@s.whatsapp.net"),
								},
								MessageTimestamp: &msgTS,
								Message:          &waE2E.Message{Conversation: proto.String("history msg")},
							},
						},
						{Message: &waWeb.WebMessageInfo{Key: &waCommon.MessageKey{ID: proto.String("empty")}}},
					},
				},
			},
		},
	})

	evt := receive(t, ch, bus.KindWAHistory)
	msgs := evt.Payload.([]*sync.InboundMessage)
	if len(msgs) != 1 || msgs[0].MessageID != "hm1" {
		t.Errorf("history batch = %+v, want only hm1", msgs)
	}
}

func TestHandleHistorySyncNilData(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, nil, nil)

	ch, unsub := b.Subscribe("wa.", 10)
	defer unsub()

	h.Handle(&events.HistorySync{Data: nil})

	select {
	case evt := <-ch:
		t.Errorf("unexpected event %q", evt.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectionEventsDriveState(t *testing.T) {
	m := status.NewMachine(nil)
	if err := m.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}
	h := NewEventHandler(bus.New(), m, nil)

	h.Handle(&events.Connected{})
	if m.Current() != status.Ready {
		t.Fatalf("after Connected state = %s, want READY", m.Current())
	}
	// A repeated Connected is not a valid transition and leaves the state alone.
	h.Handle(&events.Connected{})
	if m.Current() != status.Ready {
		t.Fatalf("state = %s, want READY", m.Current())
	}
	h.Handle(&events.Disconnected{})
	if m.Current() != status.Reconnecting {
		t.Fatalf("after Disconnected state = %s, want RECONNECTING", m.Current())
	}
	h.Handle(&events.LoggedOut{})
	if m.Current() != status.AuthRequired {
		t.Fatalf("after LoggedOut state = %s, want AUTH_REQUIRED", m.Current())
	}
}
