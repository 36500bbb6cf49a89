package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("wa.", 10)
	defer unsub()

	b.Emit(KindWAMessage, "payload")

	select {
	case evt := <-ch:
		if evt.Kind != KindWAMessage {
			t.Errorf("got kind %q, want %s", evt.Kind, KindWAMessage)
		}
		if evt.Timestamp.IsZero() {
			t.Error("Emit should stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("ledger.", 10)
	defer unsub()

	b.Emit(KindWAReceipt, nil)
	b.Emit(KindStatusUpdated, nil)

	select {
	case evt := <-ch:
		if evt.Kind != KindStatusUpdated {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStatusUpdated)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestFullSubscriberDropsEvents(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 1)
	defer unsub()

	b.Emit(KindWAPresence, 1)
	b.Emit(KindWAPresence, 2)
	b.Emit(KindWAPresence, 3)

	if got := b.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if evt := <-ch; evt.Payload != 1 {
		t.Errorf("payload = %v, want the first event", evt.Payload)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("wa.", 1)
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Emit(KindWAMessage, nil)
}
