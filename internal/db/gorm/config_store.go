// Package gorm provides GORM-based database operations for periscope.
package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/periscope/pkg/models"
)

// ConfigStore provides agent-configuration preset operations.
type ConfigStore struct {
	db *gorm.DB
}

// NewConfigStore creates a new configuration store.
func NewConfigStore(store *Store) *ConfigStore {
	return &ConfigStore{db: store.DB}
}

// SaveConfiguration inserts a new configuration preset.
func (s *ConfigStore) SaveConfiguration(ctx context.Context, cfg *models.AgentConfiguration) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", validationErr(err)
	}

	row := &AgentConfiguration{
		ID:                   cfg.ID,
		AgentName:            cfg.AgentName,
		ModelParameters:      cfg.ModelParameters,
		SystemPrompt:         cfg.SystemPrompt,
		Tools:                cfg.Tools,
		EnvironmentVariables: cfg.EnvironmentVariables,
		CreatedAt:            cfg.CreatedAt,
		CreatedAtEpoch:       cfg.CreatedAtEpoch,
		UpdatedAt:            cfg.UpdatedAt,
		UpdatedAtEpoch:       cfg.UpdatedAtEpoch,
		IsActive:             cfg.IsActive,
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", translateWriteErr(err)
	}
	return row.ID, nil
}

// GetConfiguration retrieves a preset by ID. Returns (nil, nil) when absent.
func (s *ConfigStore) GetConfiguration(ctx context.Context, id string) (*models.AgentConfiguration, error) {
	var row AgentConfiguration
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateReadErr(err)
	}
	return toModelConfiguration(&row), nil
}

// GetActiveConfigurations retrieves active presets, newest first, optionally
// filtered by agent name.
func (s *ConfigStore) GetActiveConfigurations(ctx context.Context, agentName string) ([]*models.AgentConfiguration, error) {
	query := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at_epoch DESC")
	if agentName != "" {
		query = query.Where("agent_name = ?", agentName)
	}

	var rows []AgentConfiguration
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateReadErr(err)
	}

	configs := make([]*models.AgentConfiguration, len(rows))
	for i := range rows {
		configs[i] = toModelConfiguration(&rows[i])
	}
	return configs, nil
}

// DeactivateConfiguration marks a preset inactive and bumps updated_at.
func (s *ConfigStore) DeactivateConfiguration(ctx context.Context, id string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&AgentConfiguration{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":        false,
			"updated_at":       now.Format(time.RFC3339),
			"updated_at_epoch": now.UnixMilli(),
		})
	if result.Error != nil {
		return translateWriteErr(result.Error)
	}
	return nil
}

// toModelConfiguration converts a GORM row to pkg/models.AgentConfiguration.
func toModelConfiguration(row *AgentConfiguration) *models.AgentConfiguration {
	return &models.AgentConfiguration{
		ID:                   row.ID,
		AgentName:            row.AgentName,
		ModelParameters:      row.ModelParameters,
		SystemPrompt:         row.SystemPrompt,
		Tools:                row.Tools,
		EnvironmentVariables: row.EnvironmentVariables,
		CreatedAt:            row.CreatedAt,
		CreatedAtEpoch:       row.CreatedAtEpoch,
		UpdatedAt:            row.UpdatedAt,
		UpdatedAtEpoch:       row.UpdatedAtEpoch,
		IsActive:             row.IsActive,
	}
}
