package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AgentConfiguration is a named, versionable agent preset.
type AgentConfiguration struct {
	ID                   string          `db:"id" json:"id"`
	AgentName            string          `db:"agent_name" json:"agent_name"`
	ModelParameters      JSONMap         `db:"model_parameters" json:"model_parameters"`
	SystemPrompt         sql.NullString  `db:"system_prompt" json:"system_prompt,omitempty"`
	Tools                JSONStringArray `db:"tools" json:"tools"`
	EnvironmentVariables JSONStringMap   `db:"environment_variables" json:"environment_variables"`
	CreatedAt            string          `db:"created_at" json:"created_at"`
	CreatedAtEpoch       int64           `db:"created_at_epoch" json:"created_at_epoch"`
	UpdatedAt            string          `db:"updated_at" json:"updated_at"`
	UpdatedAtEpoch       int64           `db:"updated_at_epoch" json:"updated_at_epoch"`
	IsActive             bool            `db:"is_active" json:"is_active"`
}

// NewAgentConfiguration creates an active preset for an agent.
func NewAgentConfiguration(agentName string) *AgentConfiguration {
	now := time.Now()
	ts := now.Format(time.RFC3339)
	epoch := now.UnixMilli()
	return &AgentConfiguration{
		ID:                   uuid.NewString(),
		AgentName:            agentName,
		ModelParameters:      JSONMap{},
		Tools:                JSONStringArray{},
		EnvironmentVariables: JSONStringMap{},
		CreatedAt:            ts,
		CreatedAtEpoch:       epoch,
		UpdatedAt:            ts,
		UpdatedAtEpoch:       epoch,
		IsActive:             true,
	}
}

// Validate checks required fields before persistence.
func (c *AgentConfiguration) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("configuration id is required")
	}
	if c.AgentName == "" {
		return fmt.Errorf("configuration agent_name is required")
	}
	if c.CreatedAtEpoch == 0 || c.UpdatedAtEpoch == 0 {
		return fmt.Errorf("configuration timestamps are required")
	}
	return nil
}
