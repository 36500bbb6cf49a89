package ledger

import "fmt"

// Direction of a message relative to the account owner.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// ParseDirection accepts only the two known directions.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Inbound, Outbound:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// MessageType is open-ended; these are the values the ingestion paths emit.
type MessageType = string

const (
	TypeText     MessageType = "text"
	TypeMedia    MessageType = "media"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeAudio    MessageType = "audio"
	TypeDocument MessageType = "document"
	TypeSticker  MessageType = "sticker"
)

// Status is open-ended and transitions are not validated.
type Status = string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// Contact is a stored participant.
type Contact struct {
	ID         int64
	JID        string
	Phone      string
	Name       string
	ProfilePic string
	LastSeenAt int64
	IsOnline   bool
	CreatedAt  int64
	UpdatedAt  int64
}

// Presence is an observation of a participant's availability.
// A nil LastSeenAt means "now".
type Presence struct {
	JID        string
	Phone      string
	Name       string
	IsOnline   bool
	LastSeenAt *int64
}

// NewMessage is the input to InsertMessage. Phone and Name are resolution
// hints for the sender; empty means absent.
type NewMessage struct {
	MessageID   string
	From        string
	Phone       string
	Name        string
	Direction   Direction
	MessageType MessageType
	Content     string
	MediaPath   string
	Timestamp   int64
	Status      Status
}

// Message is a stored ledger entry.
type Message struct {
	ID          int64
	MessageID   string
	ContactID   int64
	Direction   Direction
	MessageType MessageType
	Content     string
	MediaPath   string
	Timestamp   int64
	Status      Status
	CreatedAt   int64
}

// Comment is an annotation attached to a stored message.
type Comment struct {
	ID        int64
	MessageID int64
	Comment   string
	CreatedAt int64
}
