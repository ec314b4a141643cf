package repository

import (
	"context"

	"prism-connector/domain/model"
)

// IReply stores reply drafts and per-persona auto-reply settings.
type IReply interface {
	InsertDraft(ctx context.Context, draft *model.ReplyDraft) error
	GetDraft(ctx context.Context, replyID string) (*model.ReplyDraft, error)
	ListPending(ctx context.Context, personaID string) ([]*model.ReplyDraft, error)
	// Transition moves a draft out of pending. It fails unless the draft is
	// currently pending, making sent/dismissed terminal.
	Transition(ctx context.Context, replyID string, to model.ReplyStatus) error

	GetMode(ctx context.Context, personaID string) (model.AutoReplyMode, error)
	SetMode(ctx context.Context, personaID string, mode model.AutoReplyMode) error
}
