package model

import "time"

type RiskLevel string

const (
	RiskLow  RiskLevel = "low"
	RiskHigh RiskLevel = "high"
)

type ReplyStatus string

const (
	ReplyPending   ReplyStatus = "pending"
	ReplySent      ReplyStatus = "sent"
	ReplyDismissed ReplyStatus = "dismissed"
)

// ReplyDraft is a generated reply awaiting human approval or auto-dispatch.
// Only a pending draft may transition to sent or dismissed; both are
// terminal.
type ReplyDraft struct {
	ReplyID       string      `json:"reply_id"`
	PersonaID     string      `json:"persona_id"`
	IGCommentID   string      `json:"ig_comment_id"`
	IGMediaID     string      `json:"ig_media_id"`
	CommenterName string      `json:"commenter_name"`
	CommentText   string      `json:"comment_text"`
	DraftText     string      `json:"draft_text"`
	RiskLevel     RiskLevel   `json:"risk_level"`
	Status        ReplyStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

type AutoReplyMode string

const (
	AutoReplyDraft AutoReplyMode = "draft"
	AutoReplyAuto  AutoReplyMode = "auto"
)
