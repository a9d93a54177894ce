package database

import (
	"context"
	"fmt"
)

// schemaDDL creates the result tables. Statements are idempotent so the
// pipeline can run against a fresh database without a separate migration step.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		campaign_id   TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		start_time    TIMESTAMPTZ NOT NULL,
		end_time      TIMESTAMPTZ NOT NULL,
		event_ids     TEXT[] NOT NULL DEFAULT '{}',
		iocs          TEXT[] NOT NULL DEFAULT '{}',
		mitre_tactics TEXT[] NOT NULL DEFAULT '{}',
		confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS correlation_results (
		event_id         TEXT PRIMARY KEY,
		campaign_id      TEXT,
		shared_iocs      TEXT[] NOT NULL DEFAULT '{}',
		temporal_cluster TEXT NOT NULL DEFAULT '',
		mitre_tactics    TEXT[] NOT NULL DEFAULT '{}',
		confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_correlation_results_campaign
		ON correlation_results (campaign_id)`,
	`CREATE TABLE IF NOT EXISTS score_results (
		event_id       TEXT PRIMARY KEY,
		severity       DOUBLE PRECISION NOT NULL DEFAULT 0,
		severity_label TEXT NOT NULL DEFAULT 'informational',
		confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
		rationale      JSONB NOT NULL DEFAULT '{}',
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_score_results_severity
		ON score_results (severity DESC)`,
}

// EnsureSchema creates the result tables if they do not exist yet
func (db *PostgresDB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	db.logger.Debug().Msg("database schema ensured")
	return nil
}
