package sync

// InboundMessage is a message observed by an event source before it is
// recorded. Phone and Name are hints about the sender.
type InboundMessage struct {
	MessageID   string
	From        string
	Phone       string
	Name        string
	Direction   string
	MessageType string
	Content     string
	MediaPath   string
	Timestamp   int64
	Status      string
}

// Receipt is a delivery status change for a previously seen message.
type Receipt struct {
	MessageID string
	Status    string
}

// PresenceUpdate is an availability observation. LastSeenAt of zero means
// the observation time.
type PresenceUpdate struct {
	JID        string
	Phone      string
	Name       string
	Online     bool
	LastSeenAt int64
}

// ChatSummary is one entry of a chat list pushed by a client.
type ChatSummary struct {
	JID           string
	Name          string
	LastTimestamp int64
}

// Outbound describes a message this account sent.
type Outbound struct {
	To          string
	Content     string
	MediaPath   string
	MessageType string
}
