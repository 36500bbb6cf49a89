package bus

import "time"

// Event kinds. The "wa." namespace carries raw provider observations into
// the ingestion engine; "ledger." announces what was recorded.
// "source." reports the provider connection state.
const (
	KindWAMessage  = "wa.message"
	KindWAReceipt  = "wa.receipt"
	KindWAPresence = "wa.presence"
	KindWAHistory  = "wa.history_batch"

	KindMessageStored   = "ledger.message_stored"
	KindStatusUpdated   = "ledger.status_updated"
	KindPresenceUpdated = "ledger.presence_updated"
	KindCommentAdded    = "ledger.comment_added"

	KindSourceStatus = "source.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
