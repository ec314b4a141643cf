package persistence

import (
	"context"
	"database/sql"

	"prism-connector/domain/model"
)

// ReplyRepositoryMSSQL persists reply drafts and auto-reply settings using
// SQL Server.
type ReplyRepositoryMSSQL struct{ db *sql.DB }

func NewReplyRepositoryMSSQL(db *sql.DB) *ReplyRepositoryMSSQL {
	return &ReplyRepositoryMSSQL{db: db}
}

func (r *ReplyRepositoryMSSQL) InsertDraft(ctx context.Context, draft *model.ReplyDraft) error {
	q := `INSERT INTO dbo.[reply_drafts] (reply_id, persona_id, ig_comment_id, ig_media_id, commenter_name, comment_text, draft_text, risk_level, status, created_at)
		  VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10)`
	_, err := r.db.ExecContext(ctx, q,
		draft.ReplyID, draft.PersonaID, draft.IGCommentID, draft.IGMediaID,
		draft.CommenterName, draft.CommentText, draft.DraftText,
		string(draft.RiskLevel), string(draft.Status), draft.CreatedAt)
	return err
}

func (r *ReplyRepositoryMSSQL) GetDraft(ctx context.Context, replyID string) (*model.ReplyDraft, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT reply_id, persona_id, ig_comment_id, ig_media_id, commenter_name, comment_text, draft_text, risk_level, status, created_at
		 FROM dbo.[reply_drafts] WHERE reply_id=@p1`, replyID)
	return scanDraft(row)
}

func (r *ReplyRepositoryMSSQL) ListPending(ctx context.Context, personaID string) ([]*model.ReplyDraft, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reply_id, persona_id, ig_comment_id, ig_media_id, commenter_name, comment_text, draft_text, risk_level, status, created_at
		 FROM dbo.[reply_drafts] WHERE persona_id=@p1 AND status='pending' ORDER BY created_at ASC`, personaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drafts []*model.ReplyDraft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (r *ReplyRepositoryMSSQL) Transition(ctx context.Context, replyID string, to model.ReplyStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[reply_drafts] SET status=@p1 WHERE reply_id=@p2 AND status='pending'`, string(to), replyID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ReplyRepositoryMSSQL) GetMode(ctx context.Context, personaID string) (model.AutoReplyMode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT mode FROM dbo.[auto_reply_settings] WHERE persona_id=@p1`, personaID)
	var mode string
	if err := row.Scan(&mode); err != nil {
		if err == sql.ErrNoRows {
			return model.AutoReplyDraft, nil
		}
		return "", err
	}
	return model.AutoReplyMode(mode), nil
}

func (r *ReplyRepositoryMSSQL) SetMode(ctx context.Context, personaID string, mode model.AutoReplyMode) error {
	q := `MERGE dbo.[auto_reply_settings] AS target
USING (VALUES (@p1)) AS src(persona_id)
ON target.persona_id = src.persona_id
WHEN MATCHED THEN UPDATE SET mode=@p2
WHEN NOT MATCHED THEN INSERT (persona_id, mode) VALUES (@p1,@p2);`
	_, err := r.db.ExecContext(ctx, q, personaID, string(mode))
	return err
}
