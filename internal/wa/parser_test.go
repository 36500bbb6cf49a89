package wa

import (
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil message", nil, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String("hello")}, "hello"},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("extended")}}, "extended"},
		{"image caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look")}}, "look"},
		{"image without caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, ""},
		{"document caption", &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{Caption: proto.String("invoice")}}, "invoice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractContent(tt.msg); got != tt.want {
				t.Errorf("extractContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectMessageType(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil", nil, "unknown"},
		{"text", &waE2E.Message{Conversation: proto.String("hi")}, "text"},
		{"image", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, "image"},
		{"video", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{}}, "video"},
		{"audio", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}, "audio"},
		{"sticker", &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, "sticker"},
		{"empty", &waE2E.Message{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMessageType(tt.msg); got != tt.want {
				t.Errorf("detectMessageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeJID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"558592403672@s.whatsapp.net", "558592403672@s.whatsapp.net"},
		{"558592403672:5@s.whatsapp.net", "558592403672@s.whatsapp.net"},
		{"120363123456@g.us", "120363123456@g.us"},
		{"3917077286968@lid", "3917077286968@lid"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeJID(tt.input); got != tt.want {
				t.Errorf("NormalizeJID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLiveMessageDirect(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_000)
	msg := ParseLiveMessage(&events.Message{
		Info: types.MessageInfo{
			ID:        "m1",
			PushName:  "Ana",
			Timestamp: ts,
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "558592403672", Server: types.DefaultUserServer},
				Sender: types.JID{User: "558592403672", Server: types.DefaultUserServer, Device: 3},
			},
		},
		Message: &waE2E.Message{Conversation: proto.String("hello")},
	})

	if msg.From != "558592403672@s.whatsapp.net" {
		t.Errorf("From = %q", msg.From)
	}
	if msg.Name != "Ana" || msg.Content != "hello" || msg.MessageType != "text" {
		t.Errorf("parsed = %+v", msg)
	}
	if msg.Direction != "in" || msg.Status != "delivered" {
		t.Errorf("direction/status = %s/%s, want in/delivered", msg.Direction, msg.Status)
	}
	if msg.Timestamp != ts.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", msg.Timestamp, ts.UnixMilli())
	}
}

func TestParseLiveMessageLinkedSenderUsesAltPhone(t *testing.T) {
	msg := ParseLiveMessage(&events.Message{
		Info: types.MessageInfo{
			ID: "m2",
			MessageSource: types.MessageSource{
				Chat:      types.JID{User: "3917077286968", Server: types.HiddenUserServer},
				Sender:    types.JID{User: "3917077286968", Server: types.HiddenUserServer},
				SenderAlt: types.JID{User: "558592403672", Server: types.DefaultUserServer},
			},
		},
		Message: &waE2E.Message{Conversation: proto.String("hi")},
	})

	if msg.From != "3917077286968@lid" {
		t.Errorf("From = %q, want the linked identifier", msg.From)
	}
	if msg.Phone != "558592403672" {
		t.Errorf("Phone = %q, want phone from alternate address", msg.Phone)
	}
}

func TestParseLiveMessageGroupUsesParticipant(t *testing.T) {
	msg := ParseLiveMessage(&events.Message{
		Info: types.MessageInfo{
			ID: "g1",
			MessageSource: types.MessageSource{
				Chat:    types.JID{User: "120363123456", Server: types.GroupServer},
				Sender:  types.JID{User: "558592403672", Server: types.DefaultUserServer, Device: 2},
				IsGroup: true,
			},
		},
		Message: &waE2E.Message{Conversation: proto.String("group hi")},
	})

	if msg.From != "558592403672@s.whatsapp.net" {
		t.Errorf("From = %q, want the participant", msg.From)
	}
}

func TestParseLiveMessageFromMe(t *testing.T) {
	msg := ParseLiveMessage(&events.Message{
		Info: types.MessageInfo{
			ID:       "o1",
			PushName: "Me",
			MessageSource: types.MessageSource{
				Chat:     types.JID{User: "558592403672", Server: types.DefaultUserServer},
				Sender:   types.JID{User: "551100000000", Server: types.DefaultUserServer},
				IsFromMe: true,
			},
		},
		Message: &waE2E.Message{Conversation: proto.String("sent")},
	})

	if msg.Direction != "out" || msg.Status != "sent" {
		t.Errorf("direction/status = %s/%s, want out/sent", msg.Direction, msg.Status)
	}
	if msg.Name != "" {
		t.Errorf("Name = %q, own push name must not name the contact", msg.Name)
	}
	if msg.From != "558592403672@s.whatsapp.net" {
		t.Errorf("From = %q, want the chat", msg.From)
	}
}

func TestParseHistoryMessage(t *testing.T) {
	ts := uint64(1_700_000_000)
	msg := ParseHistoryMessage("120363123456@g.us", &waWeb.WebMessageInfo{
		Key: &waCommon.MessageKey{
			ID:          proto.String("hm1"),
			FromMe:      proto.Bool(false),
			RemoteJID:   proto.String("120363123456@g.us"),
			Participant: proto.String("558592403672:4@s.whatsapp.net"),
		},
		PushName:         proto.String("Ana"),
		MessageTimestamp: &ts,
		Message:          &waE2E.Message{Conversation: proto.String("history msg")},
	})
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.From != "558592403672@s.whatsapp.net" {
		t.Errorf("From = %q", msg.From)
	}
	if msg.Timestamp != int64(ts)*1000 {
		t.Errorf("Timestamp = %d", msg.Timestamp)
	}
	if msg.Name != "Ana" {
		t.Errorf("Name = %q", msg.Name)
	}

	if ParseHistoryMessage("x@s.whatsapp.net", &waWeb.WebMessageInfo{}) != nil {
		t.Error("entry without content should be skipped")
	}
}

func TestParseHistoryMessageGroupWithoutParticipant(t *testing.T) {
	ts := uint64(1_700_000_000)
	own := ParseHistoryMessage("120363123456@g.us", &waWeb.WebMessageInfo{
		Key: &waCommon.MessageKey{
			ID:        proto.String("hm2"),
			FromMe:    proto.Bool(true),
			RemoteJID: proto.String("120363123456@g.us"),
		},
		MessageTimestamp: &ts,
		Message:          &waE2E.Message{Conversation: proto.String("sent to group")},
	})
	if own != nil {
		t.Errorf("group entry without participant should be skipped, got From = %q", own.From)
	}

	// Direct chats still fall back to the chat.
	direct := ParseHistoryMessage("558592403672@s.whatsapp.net", &waWeb.WebMessageInfo{
		Key: &waCommon.MessageKey{
			ID:     proto.String("hm3"),
			FromMe: proto.Bool(true),
		},
		MessageTimestamp: &ts,
		Message:          &waE2E.Message{Conversation: proto.String("sent direct")},
	})
	if direct == nil || direct.From != "558592403672@s.whatsapp.net" || direct.Direction != "out" {
		t.Errorf("direct history message = %+v", direct)
	}
}

func TestParseReceipt(t *testing.T) {
	read := ParseReceipt(&events.Receipt{MessageIDs: []types.MessageID{"a", "b"}, Type: types.ReceiptTypeRead})
	if len(read) != 2 || read[0].Status != "read" || read[1].MessageID != "b" {
		t.Errorf("read receipts = %+v", read)
	}

	delivered := ParseReceipt(&events.Receipt{MessageIDs: []types.MessageID{"a"}, Type: types.ReceiptTypeDelivered})
	if len(delivered) != 1 || delivered[0].Status != "delivered" {
		t.Errorf("delivered receipts = %+v", delivered)
	}

	if got := ParseReceipt(&events.Receipt{MessageIDs: []types.MessageID{"a"}, Type: types.ReceiptTypeRetry}); got != nil {
		t.Errorf("retry receipt = %+v, want nil", got)
	}
}

func TestParsePresence(t *testing.T) {
	seen := time.UnixMilli(1_700_000_000_000)
	p := ParsePresence(&events.Presence{
		From:        types.JID{User: "558592403672", Server: types.DefaultUserServer, Device: 1},
		Unavailable: true,
		LastSeen:    seen,
	})
	if p.JID != "558592403672@s.whatsapp.net" || p.Online || p.LastSeenAt != seen.UnixMilli() {
		t.Errorf("presence = %+v", p)
	}

	online := ParsePresence(&events.Presence{From: types.JID{User: "1", Server: types.DefaultUserServer}})
	if !online.Online || online.LastSeenAt != 0 {
		t.Errorf("online presence = %+v", online)
	}
}
