package persistence

import (
	"context"
	"database/sql"

	"prism-connector/domain/model"
)

// ReplyRepository persists reply drafts and per-persona auto-reply settings
// using PostgreSQL (native sql.DB).
type ReplyRepository struct {
	db *sql.DB
}

func NewReplyRepository(db *sql.DB) *ReplyRepository { return &ReplyRepository{db: db} }

func (r *ReplyRepository) InsertDraft(ctx context.Context, draft *model.ReplyDraft) error {
	q := `INSERT INTO reply_drafts (reply_id, persona_id, ig_comment_id, ig_media_id, commenter_name, comment_text, draft_text, risk_level, status, created_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.ExecContext(ctx, q,
		draft.ReplyID, draft.PersonaID, draft.IGCommentID, draft.IGMediaID,
		draft.CommenterName, draft.CommentText, draft.DraftText,
		string(draft.RiskLevel), string(draft.Status), draft.CreatedAt)
	return err
}

func (r *ReplyRepository) GetDraft(ctx context.Context, replyID string) (*model.ReplyDraft, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT reply_id, persona_id, ig_comment_id, ig_media_id, commenter_name, comment_text, draft_text, risk_level, status, created_at
		 FROM reply_drafts WHERE reply_id=$1`, replyID)
	return scanDraft(row)
}

func (r *ReplyRepository) ListPending(ctx context.Context, personaID string) ([]*model.ReplyDraft, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reply_id, persona_id, ig_comment_id, ig_media_id, commenter_name, comment_text, draft_text, risk_level, status, created_at
		 FROM reply_drafts WHERE persona_id=$1 AND status='pending' ORDER BY created_at ASC`, personaID)
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

// Transition only succeeds from pending, making sent and dismissed terminal.
func (r *ReplyRepository) Transition(ctx context.Context, replyID string, to model.ReplyStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reply_drafts SET status=$1 WHERE reply_id=$2 AND status='pending'`, string(to), replyID)
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

func (r *ReplyRepository) GetMode(ctx context.Context, personaID string) (model.AutoReplyMode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT mode FROM auto_reply_settings WHERE persona_id=$1`, personaID)
	var mode string
	if err := row.Scan(&mode); err != nil {
		if err == sql.ErrNoRows {
			return model.AutoReplyDraft, nil
		}
		return "", err
	}
	return model.AutoReplyMode(mode), nil
}

func (r *ReplyRepository) SetMode(ctx context.Context, personaID string, mode model.AutoReplyMode) error {
	q := `INSERT INTO auto_reply_settings (persona_id, mode) VALUES ($1,$2)
		  ON CONFLICT (persona_id) DO UPDATE SET mode=EXCLUDED.mode`
	_, err := r.db.ExecContext(ctx, q, personaID, string(mode))
	return err
}

func scanDraft(row rowScanner) (*model.ReplyDraft, error) {
	d := &model.ReplyDraft{}
	var risk, status string
	if err := row.Scan(&d.ReplyID, &d.PersonaID, &d.IGCommentID, &d.IGMediaID,
		&d.CommenterName, &d.CommentText, &d.DraftText, &risk, &status, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.RiskLevel = model.RiskLevel(risk)
	d.Status = model.ReplyStatus(status)
	return d, nil
}
