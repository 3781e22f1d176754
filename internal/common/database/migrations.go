// internal/common/database/migrations.go

package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// migrations are idempotent and run in order on every boot
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS circles (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		tags TEXT[] NOT NULL DEFAULT '{}',
		max_members INTEGER NOT NULL CHECK (max_members > 0),
		current_members INTEGER NOT NULL DEFAULT 0 CHECK (current_members >= 0),
		is_public BOOLEAN NOT NULL DEFAULT TRUE,
		ai_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (current_members <= max_members)
	)`,

	`CREATE TABLE IF NOT EXISTS circle_memberships (
		user_id VARCHAR(64) NOT NULL,
		circle_id VARCHAR(36) NOT NULL REFERENCES circles(id),
		role VARCHAR(16) NOT NULL DEFAULT 'member',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_active_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, circle_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_circle_memberships_user ON circle_memberships(user_id) WHERE is_active`,

	`CREATE TABLE IF NOT EXISTS circle_messages (
		id VARCHAR(36) PRIMARY KEY,
		seq BIGSERIAL UNIQUE,
		circle_id VARCHAR(36) NOT NULL REFERENCES circles(id),
		sender_id VARCHAR(64) NOT NULL,
		sender_display_name VARCHAR(100) NOT NULL DEFAULT '',
		is_automated BOOLEAN NOT NULL DEFAULT FALSE,
		content TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL,
		reactions JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_circle_messages_circle_sent ON circle_messages(circle_id, sent_at, seq)`,

	`CREATE TABLE IF NOT EXISTS circle_goals (
		id VARCHAR(36) PRIMARY KEY,
		circle_id VARCHAR(36) NOT NULL REFERENCES circles(id),
		owner_user_id VARCHAR(64) NOT NULL,
		title VARCHAR(200) NOT NULL,
		target_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		status VARCHAR(16) NOT NULL DEFAULT 'in-progress',
		progress INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
		is_private BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS circle_check_ins (
		id VARCHAR(36) PRIMARY KEY,
		goal_id VARCHAR(36) NOT NULL REFERENCES circle_goals(id),
		user_id VARCHAR(64) NOT NULL,
		date DATE NOT NULL,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (goal_id, user_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS circle_prompts (
		id VARCHAR(36) PRIMARY KEY,
		circle_id VARCHAR(36) NOT NULL REFERENCES circles(id),
		content TEXT NOT NULL,
		scheduled_for DATE NOT NULL,
		is_consumed BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (circle_id, scheduled_for)
	)`,
}

// RunMigrations creates the circle tables if they do not exist
func RunMigrations(ctx context.Context, db *sqlx.DB, logger zerolog.Logger) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	logger.Info().Int("statements", len(migrations)).Msg("database migrations completed")
	return nil
}
