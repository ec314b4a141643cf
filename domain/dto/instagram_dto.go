package dto

import "time"

// DirectConnectRequest registers a pre-obtained access token without going
// through the OAuth dialog. Account id and handle are resolved from the
// platform when omitted.
type DirectConnectRequest struct {
	PersonaID     string `json:"persona_id"`
	AccessToken   string `json:"access_token" binding:"required"`
	AccountID     string `json:"account_id"`
	AccountHandle string `json:"account_handle"`
}

type ConnectionStatusResponse struct {
	Connected     bool       `json:"connected"`
	AccountID     string     `json:"account_id,omitempty"`
	AccountHandle string     `json:"account_handle,omitempty"`
	ConnectedAt   *time.Time `json:"connected_at,omitempty"`
}

type ScheduledPostItem struct {
	ImageURL  string    `json:"image_url" binding:"required"`
	Caption   string    `json:"caption"`
	PublishAt time.Time `json:"publish_at" binding:"required"`
}

type ScheduleRequest struct {
	PersonaID string              `json:"persona_id" binding:"required"`
	AccountID string              `json:"account_id"`
	Posts     []ScheduledPostItem `json:"posts" binding:"required"`
}

type ScheduledJobRef struct {
	JobID     string `json:"job_id"`
	PublishAt string `json:"publish_at"`
}

type PublishNowRequest struct {
	PersonaID string `json:"persona_id" binding:"required"`
	ImageURL  string `json:"image_url" binding:"required"`
	Caption   string `json:"caption"`
}
