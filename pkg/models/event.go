package models

import (
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxStackTraceLen caps stored stack traces.
const MaxStackTraceLen = 1000

// EventType represents the severity class of a system event.
type EventType string

const (
	EventInfo    EventType = "info"
	EventWarning EventType = "warning"
	EventError   EventType = "error"
	EventDebug   EventType = "debug"
)

// ParseEventType validates a raw event type string at the boundary.
func ParseEventType(raw string) (EventType, error) {
	switch t := EventType(raw); t {
	case EventInfo, EventWarning, EventError, EventDebug:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type %q", raw)
	}
}

// SystemEvent is an append-only log record. Session and conversation
// references are optional; events may be session-less.
type SystemEvent struct {
	ID             string         `db:"id" json:"id"`
	EventType      EventType      `db:"event_type" json:"event_type"`
	SessionID      sql.NullString `db:"session_id" json:"session_id,omitempty"`
	ConversationID sql.NullString `db:"conversation_id" json:"conversation_id,omitempty"`
	Message        string         `db:"message" json:"message"`
	Details        JSONMap        `db:"details" json:"details"`
	CreatedAt      string         `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64          `db:"created_at_epoch" json:"created_at_epoch"`
	StackTrace     sql.NullString `db:"stack_trace" json:"stack_trace,omitempty"`
}

// NewSystemEvent creates an event with a fresh ID and timestamp.
func NewSystemEvent(eventType EventType, message string) *SystemEvent {
	now := time.Now()
	return &SystemEvent{
		ID:             uuid.NewString(),
		EventType:      eventType,
		Message:        message,
		Details:        JSONMap{},
		CreatedAt:      now.Format(time.RFC3339),
		CreatedAtEpoch: now.UnixMilli(),
	}
}

// SetStackTrace attaches a stack trace, capped at MaxStackTraceLen. The cut
// backs up to a rune boundary so a multi-byte rune is never split.
func (e *SystemEvent) SetStackTrace(trace string) {
	if len(trace) > MaxStackTraceLen {
		n := MaxStackTraceLen
		for n > 0 && !utf8.RuneStart(trace[n]) {
			n--
		}
		trace = trace[:n]
	}
	e.StackTrace = sql.NullString{String: trace, Valid: trace != ""}
}

// Validate checks required fields before persistence.
func (e *SystemEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if _, err := ParseEventType(string(e.EventType)); err != nil {
		return err
	}
	if e.Message == "" {
		return fmt.Errorf("event message is required")
	}
	if e.CreatedAtEpoch == 0 {
		return fmt.Errorf("event created_at is required")
	}
	if e.StackTrace.Valid && len(e.StackTrace.String) > MaxStackTraceLen {
		return fmt.Errorf("event stack_trace exceeds %d characters", MaxStackTraceLen)
	}
	return nil
}
