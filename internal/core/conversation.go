package core

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is the classified purpose of a user turn. The set is closed:
// the orchestrator switches over it exhaustively and anything the
// classifier cannot place lands on IntentGeneral.
type Intent string

const (
	IntentLegal    Intent = "legal"
	IntentBusiness Intent = "business"
	IntentGeneral  Intent = "general"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentLegal, IntentBusiness, IntentGeneral:
		return true
	}
	return false
}

// Citation summarizes one retrieved source attached to an assistant reply.
type Citation struct {
	DocumentType   string  `json:"document_type,omitempty"`
	DocumentNumber string  `json:"document_number,omitempty"`
	ArticleCode    string  `json:"article_code,omitempty"`
	Title          string  `json:"title,omitempty"`
	Score          float64 `json:"score"`
}

// Message is a single turn in a conversation. Immutable once appended.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Intent    Intent     `json:"intent,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Conversation is the aggregate owned by the ConversationRepository.
// Messages are append-only; the full history stays stored, only the
// context window handed to the classifier and generator is bounded.
type Conversation struct {
	ID        string       `json:"id"`
	Messages  []Message    `json:"messages"`
	Form      *FormSession `json:"form_session,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewConversation(id string) *Conversation {
	now := time.Now()
	return &Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
}

func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
}

// Window returns the last n messages for live context. Older messages
// remain in the aggregate for export and audit.
func (c *Conversation) Window(n int) []Message {
	if n <= 0 || len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// Context renders the window as plain dialogue text for prompts.
func (c *Conversation) Context(n int) string {
	window := c.Window(n)
	if len(window) == 0 {
		return ""
	}
	var b strings.Builder
	for _, msg := range window {
		speaker := "Bot"
		if msg.Role == RoleUser {
			speaker = "Người dùng"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Clone deep-copies the aggregate. The orchestrator mutates a clone and
// only publishes it through Save, so a failed turn leaves the stored
// conversation untouched.
func (c *Conversation) Clone() *Conversation {
	out := &Conversation{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if len(c.Messages) > 0 {
		out.Messages = make([]Message, len(c.Messages))
		copy(out.Messages, c.Messages)
	}
	if c.Form != nil {
		out.Form = c.Form.Clone()
	}
	return out
}

// ChatResponse is the structured reply returned to the transport layer.
type ChatResponse struct {
	Message       string            `json:"message"`
	Intent        Intent            `json:"intent,omitempty"`
	Citations     []Citation        `json:"citations"`
	FormActive    bool              `json:"form_active"`
	CurrentField  string            `json:"current_field,omitempty"`
	Progress      string            `json:"progress,omitempty"`
	CollectedData map[string]string `json:"collected_data,omitempty"`
}
