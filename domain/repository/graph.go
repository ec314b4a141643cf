package repository

import (
	"context"
	"errors"

	"prism-connector/domain/model"
)

// Contract-level platform errors. Implementations wrap these so callers can
// branch with errors.Is without knowing the transport.
var (
	// ErrPlatformRateLimited means the platform told us to slow down.
	ErrPlatformRateLimited = errors.New("rate limited by platform")
	// ErrImageUnsupported means the image cannot be published or repaired
	// into a supported format.
	ErrImageUnsupported = errors.New("unsupported media format")
)

// TokenInfo is the result of a token exchange, upgrade, or refresh.
type TokenInfo struct {
	AccessToken string
	ExpiresIn   int64
}

// IGraphClient is the narrow surface of the platform API consumed by the
// orchestrator. Production talks to the Graph API over HTTP; tests use a
// double sharing this contract. Credential kind selects the API host on
// every call that takes one.
type IGraphClient interface {
	// OAuth / identity
	ExchangeCode(ctx context.Context, code string) (*TokenInfo, error)
	ExtendToken(ctx context.Context, shortToken string) (*TokenInfo, error)
	RefreshToken(ctx context.Context, kind model.CredentialKind, accessToken string) (*TokenInfo, error)
	// ResolveViaPages walks the linked business pages looking for an attached
	// professional account.
	ResolveViaPages(ctx context.Context, accessToken string) (accountID, handle string, err error)
	// ResolveViaMe reads the account's own metadata.
	ResolveViaMe(ctx context.Context, kind model.CredentialKind, accessToken string) (accountID, handle string, err error)

	// Media container protocol
	CreateMediaContainer(ctx context.Context, kind model.CredentialKind, accountID, imageURL, caption, accessToken string) (creationID string, err error)
	ContainerStatus(ctx context.Context, kind model.CredentialKind, creationID, accessToken string) (status string, err error)
	PublishContainer(ctx context.Context, kind model.CredentialKind, accountID, creationID, accessToken string) (mediaID string, err error)

	// Engagement
	PostCommentReply(ctx context.Context, kind model.CredentialKind, commentID, message, accessToken string) error
}

// IImageHost gates media formats before publishing. EnsureJPEG returns a
// publicly reachable JPEG URL for the given image, reprojecting unsupported
// formats when possible.
type IImageHost interface {
	EnsureJPEG(ctx context.Context, imageURL string) (string, error)
}
