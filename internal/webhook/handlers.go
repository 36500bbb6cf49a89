package webhook

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matheus3301/wppledger/internal/ledger"
	"github.com/matheus3301/wppledger/internal/sync"
)

type messagePayload struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
	Text      string `json:"text"`
	Body      string `json:"body"`
}

type mediaPayload struct {
	messagePayload
	Caption     string `json:"caption"`
	FilePath    string `json:"filePath"`
	Direction   string `json:"direction"`
	MessageType string `json:"messageType"`
}

type receiptPayload struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

type presencePayload struct {
	JID      string `json:"jid"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Offline  bool   `json:"offline"`
	LastSeen int64  `json:"lastSeen"`
}

type chatPayload struct {
	JID           string `json:"jid"`
	Name          string `json:"name"`
	LastTimestamp int64  `json:"lastTimestamp"`
}

type commentPayload struct {
	Comment string `json:"comment"`
}

type outgoingPayload struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	Caption  string `json:"caption"`
	FilePath string `json:"filePath"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok", "service": "wppledger"}
	if s.source != nil {
		snap := s.source.Snapshot()
		body["whatsapp"] = snap.State
		body["whatsappSince"] = snap.Since.UnixMilli()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) webhookMessage(c *gin.Context) {
	var p messagePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Presence and media have dedicated routes; some bridges post them here too.
	if p.Type == "presence" || p.Type == "media" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	s.ingest(c, &sync.InboundMessage{
		MessageID:   p.MessageID,
		From:        p.From,
		Phone:       p.Phone,
		Name:        p.Name,
		Direction:   string(ledger.Inbound),
		MessageType: ledger.TypeText,
		Content:     firstNonEmpty(p.Message, p.Text, p.Body),
		Timestamp:   p.Timestamp,
		Status:      ledger.StatusDelivered,
	})
}

func (s *Server) webhookMedia(c *gin.Context) {
	var p mediaPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.ingest(c, &sync.InboundMessage{
		MessageID:   p.MessageID,
		From:        p.From,
		Phone:       p.Phone,
		Name:        p.Name,
		Direction:   firstNonEmpty(p.Direction, string(ledger.Inbound)),
		MessageType: firstNonEmpty(p.MessageType, ledger.TypeMedia),
		Content:     firstNonEmpty(p.Caption, p.Message, p.Text, p.Body),
		MediaPath:   p.FilePath,
		Timestamp:   p.Timestamp,
		Status:      ledger.StatusDelivered,
	})
}

func (s *Server) ingest(c *gin.Context, m *sync.InboundMessage) {
	res, err := s.engine.IngestMessage(c.Request.Context(), m)
	if errors.Is(err, sync.ErrIgnored) {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	status := "ok"
	if !res.Inserted {
		status = "duplicate"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "contactId": res.ContactID})
}

func (s *Server) webhookReceipt(c *gin.Context) {
	var p receiptPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if p.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if err := s.engine.IngestReceipt(c.Request.Context(), sync.Receipt{MessageID: p.MessageID, Status: p.Status}); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) webhookPresence(c *gin.Context) {
	var p presencePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.IngestPresence(c.Request.Context(), sync.PresenceUpdate{
		JID:        p.JID,
		Phone:      p.Phone,
		Name:       p.Name,
		Online:     !p.Offline,
		LastSeenAt: p.LastSeen,
	}); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) syncContacts(c *gin.Context) {
	var chats []chatPayload
	if err := c.ShouldBindJSON(&chats); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summaries := make([]sync.ChatSummary, 0, len(chats))
	for _, ch := range chats {
		summaries = append(summaries, sync.ChatSummary{JID: ch.JID, Name: ch.Name, LastTimestamp: ch.LastTimestamp})
	}
	n, err := s.engine.SyncContacts(c.Request.Context(), summaries)
	if err != nil && n == 0 {
		s.fail(c, err)
		return
	}
	resp := gin.H{"status": "ok", "synced": n}
	if err != nil {
		resp["status"] = "partial"
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) recordOutgoing(c *gin.Context) {
	var p outgoingPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.engine.RecordOutbound(c.Request.Context(), sync.Outbound{
		To:        p.To,
		Content:   firstNonEmpty(p.Caption, p.Message),
		MediaPath: p.FilePath,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "messageId": id})
}

func (s *Server) listContacts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	contacts, err := s.ledger.ListContacts(c.Request.Context(), limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(contacts))
	for i := range contacts {
		out = append(out, contactView(&contacts[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getContact(c *gin.Context) {
	contact, err := s.ledger.GetContact(c.Request.Context(), c.Param("jid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return
	}
	c.JSON(http.StatusOK, contactView(contact))
}

func (s *Server) getMessage(c *gin.Context) {
	m, err := s.ledger.GetMessage(c.Request.Context(), c.Param("message_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	c.JSON(http.StatusOK, messageView(m))
}

func (s *Server) addComment(c *gin.Context) {
	var p commentPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.engine.IngestComment(c.Request.Context(), c.Param("message_id"), p.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "commentId": id})
}

func (s *Server) listComments(c *gin.Context) {
	comments, err := s.ledger.ListComments(c.Request.Context(), c.Param("message_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(comments))
	for _, cm := range comments {
		out = append(out, gin.H{"id": cm.ID, "comment": cm.Comment, "createdAt": cm.CreatedAt})
	}
	c.JSON(http.StatusOK, out)
}

// fail maps ledger errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrUnresolvedContact):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrMessageNotFound), errors.Is(err, ledger.ErrContactNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrEmptyIdentifier), errors.Is(err, ledger.ErrEmptyMessageID), errors.Is(err, ledger.ErrInvalidDirection):
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func contactView(c *ledger.Contact) gin.H {
	return gin.H{
		"id":         c.ID,
		"jid":        c.JID,
		"phone":      c.Phone,
		"name":       c.Name,
		"profilePic": c.ProfilePic,
		"lastSeenAt": c.LastSeenAt,
		"isOnline":   c.IsOnline,
		"createdAt":  c.CreatedAt,
		"updatedAt":  c.UpdatedAt,
	}
}

func messageView(m *ledger.Message) gin.H {
	return gin.H{
		"id":          m.ID,
		"messageId":   m.MessageID,
		"contactId":   m.ContactID,
		"direction":   m.Direction,
		"messageType": m.MessageType,
		"content":     m.Content,
		"mediaPath":   m.MediaPath,
		"timestamp":   m.Timestamp,
		"status":      m.Status,
		"createdAt":   m.CreatedAt,
	}
}
