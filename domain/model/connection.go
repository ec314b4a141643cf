package model

import "time"

// CredentialKind selects which Graph API host a stored credential talks to.
// It is decided once at connect time from the token shape and persisted,
// so callers never re-derive it per request.
type CredentialKind string

const (
	// CredentialBusiness is a Facebook-issued token (EAA...) routed via
	// graph.facebook.com.
	CredentialBusiness CredentialKind = "business"
	// CredentialCreator is an Instagram Login token (IGAA...) routed via
	// graph.instagram.com.
	CredentialCreator CredentialKind = "creator"
)

// KindForToken classifies a raw access token. Instagram Login tokens carry
// the IGAA prefix; everything else goes through the Facebook graph.
func KindForToken(accessToken string) CredentialKind {
	if len(accessToken) >= 4 && accessToken[:4] == "IGAA" {
		return CredentialCreator
	}
	return CredentialBusiness
}

// Connection is the stored platform credential for one persona. At most one
// Connection exists per persona id. AccessToken is sensitive and must never
// be logged.
type Connection struct {
	PersonaID     string          `json:"persona_id"`
	AccessToken   string          `json:"-"`
	AccountID     string          `json:"account_id"`
	AccountHandle string          `json:"account_handle"`
	Kind          CredentialKind  `json:"kind"`
	ConnectedAt   time.Time       `json:"connected_at"`
	RefreshedAt   *time.Time      `json:"refreshed_at,omitempty"`
	ExpiresIn     int64           `json:"expires_in,omitempty"`
}
