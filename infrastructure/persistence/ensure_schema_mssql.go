package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchemaMSSQL creates the orchestrator tables in SQL Server if they are
// missing, via OBJECT_ID guards.
func EnsureSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	createIfMissing := func(table, ddl string) error {
		q := fmt.Sprintf(`IF OBJECT_ID('dbo.%s', 'U') IS NULL BEGIN %s END`, table, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
		return nil
	}

	if err := createIfMissing("ig_connections", `CREATE TABLE dbo.[ig_connections] (
		persona_id     NVARCHAR(255) NOT NULL PRIMARY KEY,
		access_token   NVARCHAR(MAX) NOT NULL,
		account_id     NVARCHAR(255) NOT NULL,
		account_handle NVARCHAR(255) NOT NULL DEFAULT '',
		kind           NVARCHAR(32) NOT NULL,
		connected_at   DATETIMEOFFSET NOT NULL,
		refreshed_at   DATETIMEOFFSET NULL,
		expires_in     BIGINT NOT NULL DEFAULT 0
	)`); err != nil {
		return err
	}
	if err := createIfMissing("scheduled_jobs", `CREATE TABLE dbo.[scheduled_jobs] (
		job_id     NVARCHAR(64) NOT NULL PRIMARY KEY,
		persona_id NVARCHAR(255) NOT NULL,
		name       NVARCHAR(512) NOT NULL,
		image_url  NVARCHAR(MAX) NOT NULL,
		caption    NVARCHAR(MAX) NOT NULL,
		run_at     DATETIMEOFFSET NOT NULL,
		status     NVARCHAR(32) NOT NULL,
		created_at DATETIMEOFFSET NOT NULL
	)`); err != nil {
		return err
	}
	if err := createIfMissing("reply_drafts", `CREATE TABLE dbo.[reply_drafts] (
		reply_id       NVARCHAR(64) NOT NULL PRIMARY KEY,
		persona_id     NVARCHAR(255) NOT NULL,
		ig_comment_id  NVARCHAR(255) NOT NULL,
		ig_media_id    NVARCHAR(255) NOT NULL DEFAULT '',
		commenter_name NVARCHAR(255) NOT NULL DEFAULT '',
		comment_text   NVARCHAR(MAX) NOT NULL,
		draft_text     NVARCHAR(MAX) NOT NULL,
		risk_level     NVARCHAR(16) NOT NULL,
		status         NVARCHAR(16) NOT NULL,
		created_at     DATETIMEOFFSET NOT NULL
	)`); err != nil {
		return err
	}
	return createIfMissing("auto_reply_settings", `CREATE TABLE dbo.[auto_reply_settings] (
		persona_id NVARCHAR(255) NOT NULL PRIMARY KEY,
		mode       NVARCHAR(16) NOT NULL
	)`)
}
