package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PerformanceMetrics is an append-only fact record for one agent interaction.
type PerformanceMetrics struct {
	ID               string          `db:"id" json:"id"`
	SessionID        string          `db:"session_id" json:"session_id"`
	ConversationID   sql.NullString  `db:"conversation_id" json:"conversation_id,omitempty"`
	ResponseTimeMs   float64         `db:"response_time_ms" json:"response_time_ms"`
	TokenCountInput  int64           `db:"token_count_input" json:"token_count_input"`
	TokenCountOutput int64           `db:"token_count_output" json:"token_count_output"`
	SuccessRate      float64         `db:"success_rate" json:"success_rate"`
	ErrorCount       int64           `db:"error_count" json:"error_count"`
	CreatedAt        string          `db:"created_at" json:"created_at"`
	CreatedAtEpoch   int64           `db:"created_at_epoch" json:"created_at_epoch"`
	ResourceUsage    JSONMap         `db:"resource_usage" json:"resource_usage"`
	QualityScore     sql.NullFloat64 `db:"quality_score" json:"quality_score,omitempty"`
}

// NewPerformanceMetrics creates a metrics record with defaults
// (success_rate 1.0, zero token counts).
func NewPerformanceMetrics(sessionID string, responseTimeMs float64) *PerformanceMetrics {
	now := time.Now()
	return &PerformanceMetrics{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		ResponseTimeMs: responseTimeMs,
		SuccessRate:    1.0,
		CreatedAt:      now.Format(time.RFC3339),
		CreatedAtEpoch: now.UnixMilli(),
		ResourceUsage:  JSONMap{},
	}
}

// Validate checks required fields and value ranges before persistence.
func (m *PerformanceMetrics) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("metrics id is required")
	}
	if m.SessionID == "" {
		return fmt.Errorf("metrics session_id is required")
	}
	if m.ResponseTimeMs < 0 {
		return fmt.Errorf("metrics response_time_ms must be non-negative")
	}
	if m.TokenCountInput < 0 || m.TokenCountOutput < 0 {
		return fmt.Errorf("metrics token counts must be non-negative")
	}
	if m.SuccessRate < 0 || m.SuccessRate > 1 {
		return fmt.Errorf("metrics success_rate must be within [0, 1]")
	}
	if m.ErrorCount < 0 {
		return fmt.Errorf("metrics error_count must be non-negative")
	}
	if m.QualityScore.Valid && (m.QualityScore.Float64 < 0 || m.QualityScore.Float64 > 1) {
		return fmt.Errorf("metrics quality_score must be within [0, 1]")
	}
	if m.CreatedAtEpoch == 0 {
		return fmt.Errorf("metrics created_at is required")
	}
	return nil
}

// MetricsSummary is the aggregate the dashboard reads. A store with no
// matching rows yields the zero value, not an error.
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	AvgSuccessRate    float64 `json:"avg_success_rate"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	AvgQualityScore   float64 `json:"avg_quality_score"`
}
