package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation groups messages sharing a session, agent, and task category.
type Conversation struct {
	ID             string         `db:"id" json:"id"`
	SessionID      string         `db:"session_id" json:"session_id"`
	StartedAt      string         `db:"started_at" json:"started_at"`
	StartedAtEpoch int64          `db:"started_at_epoch" json:"started_at_epoch"`
	EndedAt        sql.NullString `db:"ended_at" json:"ended_at,omitempty"`
	EndedAtEpoch   sql.NullInt64  `db:"ended_at_epoch" json:"ended_at_epoch,omitempty"`
	Context        JSONMap        `db:"context" json:"context"`
	TokenUsage     JSONIntMap     `db:"token_usage" json:"token_usage"`
}

// NewConversation creates a conversation bound to a session.
func NewConversation(sessionID string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		StartedAt:      now.Format(time.RFC3339),
		StartedAtEpoch: now.UnixMilli(),
		Context:        JSONMap{},
		TokenUsage:     JSONIntMap{},
	}
}

// Validate checks required fields before persistence.
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("conversation id is required")
	}
	if c.SessionID == "" {
		return fmt.Errorf("conversation session_id is required")
	}
	if c.StartedAtEpoch == 0 {
		return fmt.Errorf("conversation started_at is required")
	}
	return nil
}

// MessageRole represents the sender role of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// ParseMessageRole validates a raw role string at the boundary.
func ParseMessageRole(raw string) (MessageRole, error) {
	switch r := MessageRole(raw); r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return r, nil
	default:
		return "", fmt.Errorf("unknown message role %q", raw)
	}
}

// Message is a single message within a conversation. Immutable once persisted.
type Message struct {
	ID             string          `db:"id" json:"id"`
	ConversationID string          `db:"conversation_id" json:"conversation_id"`
	Role           MessageRole     `db:"role" json:"role"`
	Content        string          `db:"content" json:"content"`
	CreatedAt      string          `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64           `db:"created_at_epoch" json:"created_at_epoch"`
	Metadata       JSONMap         `db:"metadata" json:"metadata"`
	ToolCalls      JSONObjectArray `db:"tool_calls" json:"tool_calls,omitempty"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(conversationID string, role MessageRole, content string) *Message {
	now := time.Now()
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now.Format(time.RFC3339),
		CreatedAtEpoch: now.UnixMilli(),
		Metadata:       JSONMap{},
	}
}

// Validate checks required fields before persistence.
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message id is required")
	}
	if m.ConversationID == "" {
		return fmt.Errorf("message conversation_id is required")
	}
	if _, err := ParseMessageRole(string(m.Role)); err != nil {
		return err
	}
	if m.CreatedAtEpoch == 0 {
		return fmt.Errorf("message created_at is required")
	}
	return nil
}
