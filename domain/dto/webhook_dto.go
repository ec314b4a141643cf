package dto

// WebhookPayload mirrors the Graph API webhook envelope. Only comment
// changes are consumed; everything else is ignored entry by entry.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Time    int64           `json:"time"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value CommentValue `json:"value"`
}

type CommentValue struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	From    CommentActor `json:"from"`
	Media   CommentMedia `json:"media"`
	MediaID string       `json:"media_id"`
}

type CommentActor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CommentMedia struct {
	ID string `json:"id"`
}

type SendReplyBody struct {
	PersonaID string `json:"persona_id" binding:"required"`
}

type SettingsBody struct {
	Mode string `json:"mode" binding:"required"`
}
