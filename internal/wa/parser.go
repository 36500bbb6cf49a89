package wa

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/matheus3301/wppledger/internal/ledger"
	"github.com/matheus3301/wppledger/internal/sync"
)

// NormalizeJID strips the device suffix so every device of a user maps to
// the same contact.
func NormalizeJID(raw string) string {
	if raw == "" {
		return ""
	}
	jid, err := types.ParseJID(raw)
	if err != nil {
		return raw
	}
	return jid.ToNonAD().String()
}

// ParseLiveMessage maps a live message to an inbound ledger entry. The
// contact is the chat for direct messages and the participant for groups.
func ParseLiveMessage(evt *events.Message) *sync.InboundMessage {
	info := evt.Info
	subject, alt := info.Chat, info.SenderAlt
	switch {
	case info.IsGroup:
		subject = info.Sender
	case info.IsFromMe:
		alt = info.RecipientAlt
	}

	m := &sync.InboundMessage{
		MessageID:   info.ID,
		From:        subject.ToNonAD().String(),
		Phone:       phoneHint(subject, alt),
		Direction:   string(ledger.Inbound),
		MessageType: detectMessageType(evt.Message),
		Content:     extractContent(evt.Message),
		Timestamp:   info.Timestamp.UnixMilli(),
		Status:      ledger.StatusDelivered,
	}
	if info.IsFromMe {
		m.Direction = string(ledger.Outbound)
		m.Status = ledger.StatusSent
	} else {
		m.Name = info.PushName
	}
	return m
}

// ParseHistoryMessage maps one message of a history sync conversation.
// It returns nil for entries without content and for group entries whose
// participant is unknown, since the group itself is never a contact.
func ParseHistoryMessage(chatJID string, wmsg *waWeb.WebMessageInfo) *sync.InboundMessage {
	if wmsg == nil || wmsg.GetMessage() == nil {
		return nil
	}
	key := wmsg.GetKey()
	from := chatJID
	if p := key.GetParticipant(); p != "" {
		from = p
	} else if isGroup(chatJID) {
		return nil
	}
	m := &sync.InboundMessage{
		MessageID:   key.GetID(),
		From:        NormalizeJID(from),
		Direction:   string(ledger.Inbound),
		MessageType: detectMessageType(wmsg.GetMessage()),
		Content:     extractContent(wmsg.GetMessage()),
		Timestamp:   int64(wmsg.GetMessageTimestamp()) * 1000,
		Status:      ledger.StatusDelivered,
	}
	if key.GetFromMe() {
		m.Direction = string(ledger.Outbound)
		m.Status = ledger.StatusSent
	} else {
		m.Name = wmsg.GetPushName()
	}
	return m
}

func isGroup(raw string) bool {
	jid, err := types.ParseJID(raw)
	return err == nil && jid.Server == types.GroupServer
}

// ParseReceipt maps a receipt to one status change per message id. Receipt
// types with no ledger status yield nothing.
func ParseReceipt(evt *events.Receipt) []sync.Receipt {
	status, ok := receiptStatus(evt.Type)
	if !ok {
		return nil
	}
	out := make([]sync.Receipt, 0, len(evt.MessageIDs))
	for _, id := range evt.MessageIDs {
		out = append(out, sync.Receipt{MessageID: id, Status: status})
	}
	return out
}

func receiptStatus(t types.ReceiptType) (string, bool) {
	switch t {
	case types.ReceiptTypeDelivered:
		return ledger.StatusDelivered, true
	case types.ReceiptTypeRead, types.ReceiptTypeReadSelf, types.ReceiptTypePlayed:
		return ledger.StatusRead, true
	default:
		return "", false
	}
}

// ParsePresence maps a presence update. A zero LastSeen leaves the
// observation time to the engine.
func ParsePresence(evt *events.Presence) sync.PresenceUpdate {
	p := sync.PresenceUpdate{
		JID:    evt.From.ToNonAD().String(),
		Online: !evt.Unavailable,
	}
	if !evt.LastSeen.IsZero() {
		p.LastSeenAt = evt.LastSeen.UnixMilli()
	}
	return p
}

// phoneHint returns the phone of a linked-device subject when the event
// carries its phone-routed alternate address.
func phoneHint(subject, alt types.JID) string {
	if subject.Server == types.HiddenUserServer && alt.Server == types.DefaultUserServer {
		return alt.User
	}
	return ""
}

func extractContent(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}

func detectMessageType(msg *waE2E.Message) string {
	if msg == nil {
		return "unknown"
	}
	switch {
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage() != nil:
		return ledger.TypeText
	case msg.GetImageMessage() != nil:
		return ledger.TypeImage
	case msg.GetVideoMessage() != nil:
		return ledger.TypeVideo
	case msg.GetAudioMessage() != nil:
		return ledger.TypeAudio
	case msg.GetDocumentMessage() != nil:
		return ledger.TypeDocument
	case msg.GetStickerMessage() != nil:
		return ledger.TypeSticker
	case msg.GetContactMessage() != nil:
		return "contact"
	case msg.GetLocationMessage() != nil:
		return "location"
	default:
		return "unknown"
	}
}
