package gorm

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/periscope/pkg/models"
)

func TestConfigurationRoundTrip(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	configs := NewConfigStore(store)
	ctx := context.Background()

	cfg := models.NewAgentConfiguration("Clinical Analyzer")
	cfg.ModelParameters = models.JSONMap{"temperature": 0.2, "max_tokens": float64(2048)}
	cfg.SystemPrompt = sql.NullString{String: "You review clinical records.", Valid: true}
	cfg.Tools = models.JSONStringArray{"ehr_lookup", "terminology"}
	cfg.EnvironmentVariables = models.JSONStringMap{"REGION": "local"}

	id, err := configs.SaveConfiguration(ctx, cfg)
	require.NoError(t, err)

	got, err := configs.GetConfiguration(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cfg.AgentName, got.AgentName)
	assert.Equal(t, cfg.ModelParameters, got.ModelParameters)
	assert.Equal(t, cfg.SystemPrompt, got.SystemPrompt)
	assert.Equal(t, cfg.Tools, got.Tools)
	assert.Equal(t, cfg.EnvironmentVariables, got.EnvironmentVariables)
	assert.True(t, got.IsActive)
}

func TestActiveConfigurations(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	configs := NewConfigStore(store)
	ctx := context.Background()

	first := models.NewAgentConfiguration("Extractor")
	_, err := configs.SaveConfiguration(ctx, first)
	require.NoError(t, err)

	second := models.NewAgentConfiguration("Analyzer")
	_, err = configs.SaveConfiguration(ctx, second)
	require.NoError(t, err)

	require.NoError(t, configs.DeactivateConfiguration(ctx, first.ID))

	active, err := configs.GetActiveConfigurations(ctx, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	byName, err := configs.GetActiveConfigurations(ctx, "Extractor")
	require.NoError(t, err)
	assert.Empty(t, byName)

	got, err := configs.GetConfiguration(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)
}
