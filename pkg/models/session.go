// Package models contains domain models for periscope.
package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the status of an agent session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusIdle    SessionStatus = "idle"
	SessionStatusError   SessionStatus = "error"
	SessionStatusOffline SessionStatus = "offline"
)

// ParseSessionStatus validates a raw status string at the boundary.
// Unknown values are rejected rather than carried downstream.
func ParseSessionStatus(raw string) (SessionStatus, error) {
	switch s := SessionStatus(raw); s {
	case SessionStatusActive, SessionStatusIdle, SessionStatusError, SessionStatusOffline:
		return s, nil
	default:
		return "", fmt.Errorf("unknown session status %q", raw)
	}
}

// AgentSession represents one tracked agent (or crew) run.
type AgentSession struct {
	ID             string         `db:"id" json:"id"`
	AgentName      string         `db:"agent_name" json:"agent_name"`
	Status         SessionStatus  `db:"status" json:"status"`
	StartedAt      string         `db:"started_at" json:"started_at"`
	StartedAtEpoch int64          `db:"started_at_epoch" json:"started_at_epoch"`
	EndedAt        sql.NullString `db:"ended_at" json:"ended_at,omitempty"`
	EndedAtEpoch   sql.NullInt64  `db:"ended_at_epoch" json:"ended_at_epoch,omitempty"`
	Configuration  JSONMap        `db:"configuration" json:"configuration"`
	Metadata       JSONMap        `db:"metadata" json:"metadata"`
}

// NewAgentSession creates an active session with a fresh ID and start time.
func NewAgentSession(agentName string) *AgentSession {
	now := time.Now()
	return &AgentSession{
		ID:             uuid.NewString(),
		AgentName:      agentName,
		Status:         SessionStatusActive,
		StartedAt:      now.Format(time.RFC3339),
		StartedAtEpoch: now.UnixMilli(),
		Configuration:  JSONMap{},
		Metadata:       JSONMap{},
	}
}

// Validate checks required fields and invariants before persistence.
func (s *AgentSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if s.AgentName == "" {
		return fmt.Errorf("session agent_name is required")
	}
	if _, err := ParseSessionStatus(string(s.Status)); err != nil {
		return err
	}
	if s.StartedAtEpoch == 0 {
		return fmt.Errorf("session started_at is required")
	}
	if s.EndedAtEpoch.Valid && s.EndedAtEpoch.Int64 < s.StartedAtEpoch {
		return fmt.Errorf("session ended_at precedes started_at")
	}
	return nil
}
