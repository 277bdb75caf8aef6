// Package gorm provides GORM-based database operations for periscope.
package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/periscope/pkg/models"
)

// GORM Models
//
// JSON column types (JSONMap, JSONIntMap, ...) come from pkg/models and
// implement sql.Scanner and driver.Valuer.

// AgentSession represents one tracked agent (or crew) run.
type AgentSession struct {
	ID             string               `gorm:"primaryKey;type:text"`
	AgentName      string               `gorm:"index:idx_sessions_agent;not null"`
	Status         models.SessionStatus `gorm:"type:text;check:status IN ('active', 'idle', 'error', 'offline');index:idx_sessions_status;not null"`
	StartedAt      string               `gorm:"not null"`
	StartedAtEpoch int64                `gorm:"index:idx_sessions_started,sort:desc;not null"`
	EndedAt        sql.NullString
	EndedAtEpoch   sql.NullInt64
	Configuration  models.JSONMap `gorm:"type:text"`
	Metadata       models.JSONMap `gorm:"type:text"`
}

func (AgentSession) TableName() string { return "agent_sessions" }

// BeforeCreate hook to ensure timestamps are set.
func (s *AgentSession) BeforeCreate(tx *gorm.DB) error {
	if s.StartedAtEpoch == 0 {
		s.StartedAtEpoch = time.Now().UnixMilli()
	}
	if s.StartedAt == "" {
		s.StartedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// Conversation groups messages sharing a session, agent, and task category.
type Conversation struct {
	ID             string       `gorm:"primaryKey;type:text"`
	SessionID      string       `gorm:"index:idx_conversations_session;not null"`
	Session        AgentSession `gorm:"foreignKey:SessionID"`
	StartedAt      string       `gorm:"not null"`
	StartedAtEpoch int64        `gorm:"not null"`
	EndedAt        sql.NullString
	EndedAtEpoch   sql.NullInt64
	Context        models.JSONMap    `gorm:"type:text"`
	TokenUsage     models.JSONIntMap `gorm:"type:text"`
}

func (Conversation) TableName() string { return "conversations" }

// BeforeCreate hook to ensure timestamps are set.
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.StartedAtEpoch == 0 {
		c.StartedAtEpoch = time.Now().UnixMilli()
	}
	if c.StartedAt == "" {
		c.StartedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// Message is a single message within a conversation.
type Message struct {
	ID             string             `gorm:"primaryKey;type:text"`
	ConversationID string             `gorm:"index:idx_messages_conversation;not null"`
	Conversation   Conversation       `gorm:"foreignKey:ConversationID"`
	Role           models.MessageRole `gorm:"type:text;check:role IN ('user', 'assistant', 'system', 'tool');not null"`
	Content        string             `gorm:"type:text;not null"`
	CreatedAt      string             `gorm:"not null"`
	CreatedAtEpoch int64              `gorm:"index:idx_messages_created;not null"`
	Metadata       models.JSONMap     `gorm:"type:text"`
	ToolCalls      models.JSONObjectArray `gorm:"type:text"`
}

func (Message) TableName() string { return "messages" }

// BeforeCreate hook to ensure timestamps are set.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.CreatedAtEpoch == 0 {
		m.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// PerformanceMetrics is an append-only fact record for one interaction.
type PerformanceMetrics struct {
	ID               string       `gorm:"primaryKey;type:text"`
	SessionID        string       `gorm:"index:idx_metrics_session;not null"`
	Session          AgentSession `gorm:"foreignKey:SessionID"`
	ConversationID   sql.NullString
	ResponseTimeMs   float64 `gorm:"type:real;not null"`
	TokenCountInput  int64   `gorm:"default:0"`
	TokenCountOutput int64   `gorm:"default:0"`
	SuccessRate      float64 `gorm:"type:real;default:1.0"`
	ErrorCount       int64   `gorm:"default:0"`
	CreatedAt        string  `gorm:"not null"`
	CreatedAtEpoch   int64   `gorm:"index:idx_metrics_created,sort:desc;not null"`
	ResourceUsage    models.JSONMap `gorm:"type:text"`
	QualityScore     sql.NullFloat64
}

func (PerformanceMetrics) TableName() string { return "performance_metrics" }

// BeforeCreate hook to ensure timestamps and defaults are set.
func (m *PerformanceMetrics) BeforeCreate(tx *gorm.DB) error {
	if m.CreatedAtEpoch == 0 {
		m.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// SystemEvent is an append-only log record. Session and conversation
// references are nullable; events may be session-less.
type SystemEvent struct {
	ID             string           `gorm:"primaryKey;type:text"`
	EventType      models.EventType `gorm:"type:text;check:event_type IN ('info', 'warning', 'error', 'debug');index:idx_events_type;not null"`
	SessionID      sql.NullString   `gorm:"index:idx_events_session"`
	ConversationID sql.NullString
	Message        string         `gorm:"type:text;not null"`
	Details        models.JSONMap `gorm:"type:text"`
	CreatedAt      string         `gorm:"not null"`
	CreatedAtEpoch int64          `gorm:"index:idx_events_created,sort:desc;not null"`
	StackTrace     sql.NullString `gorm:"type:text"`
}

func (SystemEvent) TableName() string { return "system_events" }

// BeforeCreate hook to ensure timestamps are set.
func (e *SystemEvent) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAtEpoch == 0 {
		e.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// AgentConfiguration is a named, versionable agent preset.
type AgentConfiguration struct {
	ID                   string `gorm:"primaryKey;type:text"`
	AgentName            string `gorm:"index:idx_configurations_agent;not null"`
	ModelParameters      models.JSONMap `gorm:"type:text"`
	SystemPrompt         sql.NullString `gorm:"type:text"`
	Tools                models.JSONStringArray `gorm:"type:text"`
	EnvironmentVariables models.JSONStringMap   `gorm:"type:text"`
	CreatedAt            string `gorm:"not null"`
	CreatedAtEpoch       int64  `gorm:"not null"`
	UpdatedAt            string `gorm:"not null"`
	UpdatedAtEpoch       int64  `gorm:"not null"`
	IsActive             bool   `gorm:"default:true;index:idx_configurations_active"`
}

func (AgentConfiguration) TableName() string { return "agent_configurations" }

// BeforeCreate hook to ensure timestamps are set.
func (c *AgentConfiguration) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if c.CreatedAtEpoch == 0 {
		c.CreatedAtEpoch = now.UnixMilli()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = now.Format(time.RFC3339)
	}
	if c.UpdatedAtEpoch == 0 {
		c.UpdatedAtEpoch = now.UnixMilli()
	}
	if c.UpdatedAt == "" {
		c.UpdatedAt = now.Format(time.RFC3339)
	}
	return nil
}
