// Package gorm provides GORM-based database operations for periscope.
package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/thebtf/periscope/pkg/models"
)

// ConversationStore provides conversation and message database operations.
type ConversationStore struct {
	db *gorm.DB
}

// NewConversationStore creates a new conversation store.
func NewConversationStore(store *Store) *ConversationStore {
	return &ConversationStore{db: store.DB}
}

// CreateConversation inserts a new conversation row.
func (s *ConversationStore) CreateConversation(ctx context.Context, conv *models.Conversation) (string, error) {
	if err := conv.Validate(); err != nil {
		return "", validationErr(err)
	}

	row := &Conversation{
		ID:             conv.ID,
		SessionID:      conv.SessionID,
		StartedAt:      conv.StartedAt,
		StartedAtEpoch: conv.StartedAtEpoch,
		EndedAt:        conv.EndedAt,
		EndedAtEpoch:   conv.EndedAtEpoch,
		Context:        conv.Context,
		TokenUsage:     conv.TokenUsage,
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", translateWriteErr(err)
	}
	return row.ID, nil
}

// GetConversation retrieves a conversation by ID. Returns (nil, nil) when absent.
func (s *ConversationStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var row Conversation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateReadErr(err)
	}
	return toModelConversation(&row), nil
}

// GetSessionConversations retrieves all conversations for a session in
// chronological order.
func (s *ConversationStore) GetSessionConversations(ctx context.Context, sessionID string) ([]*models.Conversation, error) {
	var rows []Conversation
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("started_at_epoch ASC, rowid ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateReadErr(err)
	}

	conversations := make([]*models.Conversation, len(rows))
	for i := range rows {
		conversations[i] = toModelConversation(&rows[i])
	}
	return conversations, nil
}

// AddMessage appends a message to its conversation. Messages are immutable
// once persisted.
func (s *ConversationStore) AddMessage(ctx context.Context, msg *models.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", validationErr(err)
	}

	row := &Message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		CreatedAtEpoch: msg.CreatedAtEpoch,
		Metadata:       msg.Metadata,
		ToolCalls:      msg.ToolCalls,
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", translateWriteErr(err)
	}
	return row.ID, nil
}

// GetMessages retrieves a conversation's messages in chronological order.
func (s *ConversationStore) GetMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	var rows []Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		// rowid breaks same-millisecond ties in insertion order.
		Order("created_at_epoch ASC, rowid ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateReadErr(err)
	}

	messages := make([]*models.Message, len(rows))
	for i := range rows {
		messages[i] = toModelMessage(&rows[i])
	}
	return messages, nil
}

// CountMessages returns the number of messages in a conversation.
func (s *ConversationStore) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, translateReadErr(err)
	}
	return count, nil
}

// toModelConversation converts a GORM row to pkg/models.Conversation.
func toModelConversation(row *Conversation) *models.Conversation {
	return &models.Conversation{
		ID:             row.ID,
		SessionID:      row.SessionID,
		StartedAt:      row.StartedAt,
		StartedAtEpoch: row.StartedAtEpoch,
		EndedAt:        row.EndedAt,
		EndedAtEpoch:   row.EndedAtEpoch,
		Context:        row.Context,
		TokenUsage:     row.TokenUsage,
	}
}

// toModelMessage converts a GORM row to pkg/models.Message.
func toModelMessage(row *Message) *models.Message {
	return &models.Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		Role:           row.Role,
		Content:        row.Content,
		CreatedAt:      row.CreatedAt,
		CreatedAtEpoch: row.CreatedAtEpoch,
		Metadata:       row.Metadata,
		ToolCalls:      row.ToolCalls,
	}
}
