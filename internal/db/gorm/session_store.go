// Package gorm provides GORM-based database operations for periscope.
package gorm

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/periscope/pkg/models"
)

// SessionStore provides session-related database operations using GORM.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore creates a new session store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{db: store.DB}
}

// CreateSession inserts a new session row. The row is visible to subsequent
// reads as soon as this returns.
func (s *SessionStore) CreateSession(ctx context.Context, session *models.AgentSession) (string, error) {
	if err := session.Validate(); err != nil {
		return "", validationErr(err)
	}

	row := &AgentSession{
		ID:             session.ID,
		AgentName:      session.AgentName,
		Status:         session.Status,
		StartedAt:      session.StartedAt,
		StartedAtEpoch: session.StartedAtEpoch,
		EndedAt:        session.EndedAt,
		EndedAtEpoch:   session.EndedAtEpoch,
		Configuration:  session.Configuration,
		Metadata:       session.Metadata,
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", translateWriteErr(err)
	}
	return row.ID, nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when absent.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*models.AgentSession, error) {
	var row AgentSession
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateReadErr(err)
	}
	return toModelSession(&row), nil
}

// GetActiveSessions retrieves all sessions whose status is active.
// No pagination; callers bound their own usage.
func (s *SessionStore) GetActiveSessions(ctx context.Context) ([]*models.AgentSession, error) {
	var rows []AgentSession
	err := s.db.WithContext(ctx).
		Where("status = ?", models.SessionStatusActive).
		Find(&rows).Error
	if err != nil {
		return nil, translateReadErr(err)
	}

	sessions := make([]*models.AgentSession, len(rows))
	for i := range rows {
		sessions[i] = toModelSession(&rows[i])
	}
	return sessions, nil
}

// GetStatusCounts returns the number of sessions per status.
func (s *SessionStore) GetStatusCounts(ctx context.Context) (map[models.SessionStatus]int64, error) {
	var rows []struct {
		Status models.SessionStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&AgentSession{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, translateReadErr(err)
	}

	counts := make(map[models.SessionStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CompleteSession transitions a session to a terminal status and stamps its
// end time. The update is a single atomic write.
func (s *SessionStore) CompleteSession(ctx context.Context, id string, status models.SessionStatus, endedAt time.Time) error {
	if _, err := models.ParseSessionStatus(string(status)); err != nil {
		return validationErr(err)
	}

	result := s.db.WithContext(ctx).
		Model(&AgentSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         status,
			"ended_at":       sql.NullString{String: endedAt.Format(time.RFC3339), Valid: true},
			"ended_at_epoch": sql.NullInt64{Int64: endedAt.UnixMilli(), Valid: true},
		})
	if result.Error != nil {
		return translateWriteErr(result.Error)
	}
	return nil
}

// toModelSession converts a GORM row to pkg/models.AgentSession.
func toModelSession(row *AgentSession) *models.AgentSession {
	return &models.AgentSession{
		ID:             row.ID,
		AgentName:      row.AgentName,
		Status:         row.Status,
		StartedAt:      row.StartedAt,
		StartedAtEpoch: row.StartedAtEpoch,
		EndedAt:        row.EndedAt,
		EndedAtEpoch:   row.EndedAtEpoch,
		Configuration:  row.Configuration,
		Metadata:       row.Metadata,
	}
}
