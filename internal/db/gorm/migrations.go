// Package gorm provides GORM-based database operations for periscope.
package gorm

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Core observability tables
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				// AutoMigrate creates tables with all indexes from struct tags
				if err := tx.AutoMigrate(&AgentSession{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Conversation{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Message{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&PerformanceMetrics{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&SystemEvent{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"system_events", "performance_metrics", "messages",
					"conversations", "agent_sessions",
				)
			},
		},

		// Migration 002: Agent configuration presets
		{
			ID: "002_agent_configurations",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&AgentConfiguration{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("agent_configurations")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}

	return nil
}
