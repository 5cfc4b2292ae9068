package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one versioned schema change. Versions must be unique and are
// applied in slice order, each in its own transaction.
type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "001_items",
		sql: `
CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL,
	source TEXT NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL UNIQUE,
	author TEXT NOT NULL DEFAULT '',
	excerpt TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	engagement_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	raw_metrics JSONB,
	sentiment TEXT,
	sentiment_confidence DOUBLE PRECISION,
	topic_tags JSONB,
	one_line_quote TEXT,
	is_tip BOOLEAN NOT NULL DEFAULT FALSE,
	tip_confidence DOUBLE PRECISION,
	community_action TEXT,
	pattern_type TEXT,
	pattern_recipe TEXT,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_items_date ON items (date);
CREATE INDEX IF NOT EXISTS idx_items_source ON items (source);`,
	},
	{
		version: "002_sentiment_daily",
		sql: `
CREATE TABLE IF NOT EXISTS sentiment_daily (
	date TEXT PRIMARY KEY,
	positive_pct INTEGER NOT NULL DEFAULT 0,
	neutral_pct INTEGER NOT NULL DEFAULT 0,
	negative_pct INTEGER NOT NULL DEFAULT 0,
	sample_size INTEGER NOT NULL DEFAULT 0,
	top_positive_id BIGINT REFERENCES items(id) ON DELETE SET NULL,
	top_negative_id BIGINT REFERENCES items(id) ON DELETE SET NULL,
	summary TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		version: "003_briefing_tldr",
		sql: `
CREATE TABLE IF NOT EXISTS briefing_tldr (
	date TEXT NOT NULL,
	slot TEXT NOT NULL,
	facts JSONB NOT NULL DEFAULT '[]',
	try_today TEXT,
	insight TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (date, slot)
);`,
	},
	{
		version: "004_ecosystem",
		sql: `
CREATE TABLE IF NOT EXISTS ecosystem (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	github_url TEXT UNIQUE,
	stars INTEGER NOT NULL DEFAULT 0,
	last_updated TIMESTAMPTZ,
	category_tags JSONB,
	mention_count INTEGER NOT NULL DEFAULT 0,
	agent_meta JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		version: "005_changelog_highlights",
		sql: `
CREATE TABLE IF NOT EXISTS changelog_highlights (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL,
	release_tag TEXT NOT NULL UNIQUE,
	prev_release_tag TEXT NOT NULL DEFAULT '',
	release_url TEXT NOT NULL DEFAULT '',
	hook_relevance JSONB,
	highlights JSONB,
	breaking_changes JSONB,
	diff_stats JSONB,
	raw_body TEXT NOT NULL DEFAULT '',
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_changelog_date ON changelog_highlights (date);`,
	},
	{
		version: "006_review_telemetry",
		sql: `
CREATE TABLE IF NOT EXISTS review_telemetry (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL,
	plan_id TEXT NOT NULL,
	review_id TEXT NOT NULL,
	model_name TEXT NOT NULL,
	review_type TEXT NOT NULL DEFAULT '',
	critical_issues INTEGER NOT NULL DEFAULT 0,
	improvements INTEGER NOT NULL DEFAULT 0,
	suggestions INTEGER NOT NULL DEFAULT 0,
	strengths INTEGER NOT NULL DEFAULT 0,
	verdict TEXT NOT NULL DEFAULT '',
	confidence_score DOUBLE PRECISION,
	duration_ms BIGINT,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (plan_id, review_id)
);`,
	},
}

// RunMigrations applies all pending migrations in order, recording each in
// schema_migrations. Each migration runs in its own transaction.
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	logger.Info("checking for pending database migrations")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate applied migrations: %w", err)
	}

	pending := 0
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}

		pending++
		logger.Info("applying migration", "version", m.version)

		if err := applyMigration(db, m); err != nil {
			return err
		}
	}

	if pending == 0 {
		logger.Info("database schema is up to date")
	} else {
		logger.Info("migrations applied", "count", pending)
	}

	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.version, err)
	}

	if _, err := tx.Exec(m.sql); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration %s: %w", m.version, err)
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", m.version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.version, err)
	}

	return nil
}
