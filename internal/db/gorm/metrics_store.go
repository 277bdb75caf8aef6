// Package gorm provides GORM-based database operations for periscope.
package gorm

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/thebtf/periscope/pkg/models"
)

// MetricsStore provides performance-metrics database operations.
type MetricsStore struct {
	db    *gorm.DB
	rawDB *sql.DB
}

// NewMetricsStore creates a new metrics store.
func NewMetricsStore(store *Store) *MetricsStore {
	return &MetricsStore{db: store.DB, rawDB: store.GetRawDB()}
}

// AddMetrics appends a performance-metrics fact record.
func (s *MetricsStore) AddMetrics(ctx context.Context, metrics *models.PerformanceMetrics) (string, error) {
	if err := metrics.Validate(); err != nil {
		return "", validationErr(err)
	}

	row := &PerformanceMetrics{
		ID:               metrics.ID,
		SessionID:        metrics.SessionID,
		ConversationID:   metrics.ConversationID,
		ResponseTimeMs:   metrics.ResponseTimeMs,
		TokenCountInput:  metrics.TokenCountInput,
		TokenCountOutput: metrics.TokenCountOutput,
		SuccessRate:      metrics.SuccessRate,
		ErrorCount:       metrics.ErrorCount,
		CreatedAt:        metrics.CreatedAt,
		CreatedAtEpoch:   metrics.CreatedAtEpoch,
		ResourceUsage:    metrics.ResourceUsage,
		QualityScore:     metrics.QualityScore,
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", translateWriteErr(err)
	}
	return row.ID, nil
}

// GetMetricsSummary aggregates metrics, optionally filtered to one session
// (empty sessionID aggregates everything). An empty store yields the zero
// aggregate, not an error.
func (s *MetricsStore) GetMetricsSummary(ctx context.Context, sessionID string) (*models.MetricsSummary, error) {
	const baseQuery = `
		SELECT
			COUNT(*) as total_requests,
			COALESCE(AVG(response_time_ms), 0) as avg_response_time_ms,
			COALESCE(AVG(success_rate), 0) as avg_success_rate,
			COALESCE(SUM(token_count_input), 0) as total_input_tokens,
			COALESCE(SUM(token_count_output), 0) as total_output_tokens,
			COALESCE(AVG(quality_score), 0) as avg_quality_score
		FROM performance_metrics
	`

	var row *sql.Row
	if sessionID != "" {
		row = s.rawDB.QueryRowContext(ctx, baseQuery+" WHERE session_id = ?", sessionID)
	} else {
		row = s.rawDB.QueryRowContext(ctx, baseQuery)
	}

	var summary models.MetricsSummary
	err := row.Scan(
		&summary.TotalRequests,
		&summary.AvgResponseTimeMs,
		&summary.AvgSuccessRate,
		&summary.TotalInputTokens,
		&summary.TotalOutputTokens,
		&summary.AvgQualityScore,
	)
	if err != nil {
		return nil, translateReadErr(err)
	}
	return &summary, nil
}
