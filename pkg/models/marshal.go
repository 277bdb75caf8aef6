package models

import json "github.com/goccy/go-json"

// AgentSessionJSON is the JSON representation of AgentSession.
type AgentSessionJSON struct {
	ID             string        `json:"id"`
	AgentName      string        `json:"agent_name"`
	Status         SessionStatus `json:"status"`
	StartedAt      string        `json:"started_at"`
	StartedAtEpoch int64         `json:"started_at_epoch"`
	EndedAt        string        `json:"ended_at,omitempty"`
	EndedAtEpoch   int64         `json:"ended_at_epoch,omitempty"`
	Configuration  JSONMap       `json:"configuration"`
	Metadata       JSONMap       `json:"metadata"`
}

// MarshalJSON implements json.Marshaler for AgentSession.
// Converts sql.Null* fields to plain values.
func (s *AgentSession) MarshalJSON() ([]byte, error) {
	j := AgentSessionJSON{
		ID:             s.ID,
		AgentName:      s.AgentName,
		Status:         s.Status,
		StartedAt:      s.StartedAt,
		StartedAtEpoch: s.StartedAtEpoch,
		Configuration:  s.Configuration,
		Metadata:       s.Metadata,
	}
	if s.EndedAt.Valid {
		j.EndedAt = s.EndedAt.String
	}
	if s.EndedAtEpoch.Valid {
		j.EndedAtEpoch = s.EndedAtEpoch.Int64
	}
	return json.Marshal(j)
}

// ConversationJSON is the JSON representation of Conversation.
type ConversationJSON struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	StartedAt      string     `json:"started_at"`
	StartedAtEpoch int64      `json:"started_at_epoch"`
	EndedAt        string     `json:"ended_at,omitempty"`
	EndedAtEpoch   int64      `json:"ended_at_epoch,omitempty"`
	Context        JSONMap    `json:"context"`
	TokenUsage     JSONIntMap `json:"token_usage"`
}

// MarshalJSON implements json.Marshaler for Conversation.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	j := ConversationJSON{
		ID:             c.ID,
		SessionID:      c.SessionID,
		StartedAt:      c.StartedAt,
		StartedAtEpoch: c.StartedAtEpoch,
		Context:        c.Context,
		TokenUsage:     c.TokenUsage,
	}
	if c.EndedAt.Valid {
		j.EndedAt = c.EndedAt.String
	}
	if c.EndedAtEpoch.Valid {
		j.EndedAtEpoch = c.EndedAtEpoch.Int64
	}
	return json.Marshal(j)
}

// PerformanceMetricsJSON is the JSON representation of PerformanceMetrics.
type PerformanceMetricsJSON struct {
	ID               string  `json:"id"`
	SessionID        string  `json:"session_id"`
	ConversationID   string  `json:"conversation_id,omitempty"`
	ResponseTimeMs   float64 `json:"response_time_ms"`
	TokenCountInput  int64   `json:"token_count_input"`
	TokenCountOutput int64   `json:"token_count_output"`
	SuccessRate      float64 `json:"success_rate"`
	ErrorCount       int64   `json:"error_count"`
	CreatedAt        string  `json:"created_at"`
	CreatedAtEpoch   int64   `json:"created_at_epoch"`
	ResourceUsage    JSONMap `json:"resource_usage"`
	QualityScore     float64 `json:"quality_score,omitempty"`
}

// MarshalJSON implements json.Marshaler for PerformanceMetrics.
func (m *PerformanceMetrics) MarshalJSON() ([]byte, error) {
	j := PerformanceMetricsJSON{
		ID:               m.ID,
		SessionID:        m.SessionID,
		ResponseTimeMs:   m.ResponseTimeMs,
		TokenCountInput:  m.TokenCountInput,
		TokenCountOutput: m.TokenCountOutput,
		SuccessRate:      m.SuccessRate,
		ErrorCount:       m.ErrorCount,
		CreatedAt:        m.CreatedAt,
		CreatedAtEpoch:   m.CreatedAtEpoch,
		ResourceUsage:    m.ResourceUsage,
	}
	if m.ConversationID.Valid {
		j.ConversationID = m.ConversationID.String
	}
	if m.QualityScore.Valid {
		j.QualityScore = m.QualityScore.Float64
	}
	return json.Marshal(j)
}

// SystemEventJSON is the JSON representation of SystemEvent.
type SystemEventJSON struct {
	ID             string    `json:"id"`
	EventType      EventType `json:"event_type"`
	SessionID      string    `json:"session_id,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Message        string    `json:"message"`
	Details        JSONMap   `json:"details"`
	CreatedAt      string    `json:"created_at"`
	CreatedAtEpoch int64     `json:"created_at_epoch"`
	StackTrace     string    `json:"stack_trace,omitempty"`
}

// MarshalJSON implements json.Marshaler for SystemEvent.
func (e *SystemEvent) MarshalJSON() ([]byte, error) {
	j := SystemEventJSON{
		ID:             e.ID,
		EventType:      e.EventType,
		Message:        e.Message,
		Details:        e.Details,
		CreatedAt:      e.CreatedAt,
		CreatedAtEpoch: e.CreatedAtEpoch,
	}
	if e.SessionID.Valid {
		j.SessionID = e.SessionID.String
	}
	if e.ConversationID.Valid {
		j.ConversationID = e.ConversationID.String
	}
	if e.StackTrace.Valid {
		j.StackTrace = e.StackTrace.String
	}
	return json.Marshal(j)
}

// AgentConfigurationJSON is the JSON representation of AgentConfiguration.
type AgentConfigurationJSON struct {
	ID                   string          `json:"id"`
	AgentName            string          `json:"agent_name"`
	ModelParameters      JSONMap         `json:"model_parameters"`
	SystemPrompt         string          `json:"system_prompt,omitempty"`
	Tools                JSONStringArray `json:"tools"`
	EnvironmentVariables JSONStringMap   `json:"environment_variables"`
	CreatedAt            string          `json:"created_at"`
	CreatedAtEpoch       int64           `json:"created_at_epoch"`
	UpdatedAt            string          `json:"updated_at"`
	UpdatedAtEpoch       int64           `json:"updated_at_epoch"`
	IsActive             bool            `json:"is_active"`
}

// MarshalJSON implements json.Marshaler for AgentConfiguration.
func (c *AgentConfiguration) MarshalJSON() ([]byte, error) {
	j := AgentConfigurationJSON{
		ID:                   c.ID,
		AgentName:            c.AgentName,
		ModelParameters:      c.ModelParameters,
		Tools:                c.Tools,
		EnvironmentVariables: c.EnvironmentVariables,
		CreatedAt:            c.CreatedAt,
		CreatedAtEpoch:       c.CreatedAtEpoch,
		UpdatedAt:            c.UpdatedAt,
		UpdatedAtEpoch:       c.UpdatedAtEpoch,
		IsActive:             c.IsActive,
	}
	if c.SystemPrompt.Valid {
		j.SystemPrompt = c.SystemPrompt.String
	}
	return json.Marshal(j)
}
