package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchema creates the orchestrator tables if they are missing.
// Safe to call at startup; every statement is idempotent.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ig_connections (
			persona_id     TEXT PRIMARY KEY,
			access_token   TEXT NOT NULL,
			account_id     TEXT NOT NULL,
			account_handle TEXT NOT NULL DEFAULT '',
			kind           TEXT NOT NULL,
			connected_at   TIMESTAMPTZ NOT NULL,
			refreshed_at   TIMESTAMPTZ,
			expires_in     BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_jobs (
			job_id     TEXT PRIMARY KEY,
			persona_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			image_url  TEXT NOT NULL,
			caption    TEXT NOT NULL,
			run_at     TIMESTAMPTZ NOT NULL,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_jobs_due ON scheduled_jobs (status, run_at)`,
		`CREATE TABLE IF NOT EXISTS reply_drafts (
			reply_id       TEXT PRIMARY KEY,
			persona_id     TEXT NOT NULL,
			ig_comment_id  TEXT NOT NULL,
			ig_media_id    TEXT NOT NULL DEFAULT '',
			commenter_name TEXT NOT NULL DEFAULT '',
			comment_text   TEXT NOT NULL,
			draft_text     TEXT NOT NULL,
			risk_level     TEXT NOT NULL,
			status         TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reply_drafts_pending ON reply_drafts (persona_id, status)`,
		`CREATE TABLE IF NOT EXISTS auto_reply_settings (
			persona_id TEXT PRIMARY KEY,
			mode       TEXT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	return nil
}
