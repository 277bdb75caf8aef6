// Package gorm provides GORM-based database operations for periscope.
package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/thebtf/periscope/pkg/models"
)

// DefaultRecentEventsLimit bounds GetRecentEvents when no limit is given.
const DefaultRecentEventsLimit = 100

// EventStore provides system-event database operations.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore creates a new event store.
func NewEventStore(store *Store) *EventStore {
	return &EventStore{db: store.DB}
}

// AddEvent appends a system event.
func (s *EventStore) AddEvent(ctx context.Context, event *models.SystemEvent) (string, error) {
	if err := event.Validate(); err != nil {
		return "", validationErr(err)
	}

	row := &SystemEvent{
		ID:             event.ID,
		EventType:      event.EventType,
		SessionID:      event.SessionID,
		ConversationID: event.ConversationID,
		Message:        event.Message,
		Details:        event.Details,
		CreatedAt:      event.CreatedAt,
		CreatedAtEpoch: event.CreatedAtEpoch,
		StackTrace:     event.StackTrace,
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", translateWriteErr(err)
	}
	return row.ID, nil
}

// GetRecentEvents retrieves events most-recent-first, bounded by limit
// (DefaultRecentEventsLimit when limit <= 0).
func (s *EventStore) GetRecentEvents(ctx context.Context, limit int) ([]*models.SystemEvent, error) {
	if limit <= 0 {
		limit = DefaultRecentEventsLimit
	}

	var rows []SystemEvent
	err := s.db.WithContext(ctx).
		// rowid breaks same-millisecond ties so the latest write wins.
		Order("created_at_epoch DESC, rowid DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translateReadErr(err)
	}

	events := make([]*models.SystemEvent, len(rows))
	for i := range rows {
		events[i] = toModelEvent(&rows[i])
	}
	return events, nil
}

// toModelEvent converts a GORM row to pkg/models.SystemEvent.
func toModelEvent(row *SystemEvent) *models.SystemEvent {
	return &models.SystemEvent{
		ID:             row.ID,
		EventType:      row.EventType,
		SessionID:      row.SessionID,
		ConversationID: row.ConversationID,
		Message:        row.Message,
		Details:        row.Details,
		CreatedAt:      row.CreatedAt,
		CreatedAtEpoch: row.CreatedAtEpoch,
		StackTrace:     row.StackTrace,
	}
}
