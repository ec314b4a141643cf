package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"

	"prism-connector/domain/model"
)

// DraftEvent is the SSE payload pushed when a reply draft is created or
// auto-dispatched.
type DraftEvent struct {
	Type          string          `json:"type"`
	ReplyID       string          `json:"reply_id"`
	PersonaID     string          `json:"persona_id"`
	CommenterName string          `json:"commenter_name"`
	CommentText   string          `json:"comment_text"`
	DraftText     string          `json:"draft_text"`
	RiskLevel     model.RiskLevel `json:"risk_level"`
	Status        string          `json:"status"`
}

// Hub maintains per-persona subscribers listening for draft events.
type Hub struct {
	mu       sync.RWMutex
	personas map[string]map[chan DraftEvent]struct{}
}

func NewDraftHub() *Hub {
	return &Hub{personas: make(map[string]map[chan DraftEvent]struct{})}
}

// Serve registers an SSE stream for one persona's dashboard.
func (h *Hub) Serve(c *gin.Context) {
	personaID := c.Param("persona_id")
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan DraftEvent, 8)
	h.addSubscriber(personaID, ch)
	defer h.removeSubscriber(personaID, ch)

	// Initial comment to keep connection open
	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: reply_draft\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(personaID string, ch chan DraftEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.personas[personaID] == nil {
		h.personas[personaID] = make(map[chan DraftEvent]struct{})
	}
	h.personas[personaID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(personaID string, ch chan DraftEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.personas[personaID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.personas, personaID)
		}
	}
}

// Broadcast pushes a draft to every subscriber of its persona.
func (h *Hub) Broadcast(personaID string, draft *model.ReplyDraft) {
	if draft == nil {
		return
	}
	evt := DraftEvent{
		Type:          "reply_draft",
		ReplyID:       draft.ReplyID,
		PersonaID:     personaID,
		CommenterName: draft.CommenterName,
		CommentText:   draft.CommentText,
		DraftText:     draft.DraftText,
		RiskLevel:     draft.RiskLevel,
		Status:        string(draft.Status),
	}
	h.mu.RLock()
	subs := h.personas[personaID]
	for ch := range subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
