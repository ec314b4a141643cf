package usecase

import (
	"context"
	"errors"
	"time"

	"prism-connector/domain/model"
	"prism-connector/domain/repository"
	"prism-connector/infrastructure/logger"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxWait      = 30 * time.Second
	rateLimitAttempts   = 3
	rateLimitBackoff    = 2 * time.Second
)

// PublishConfig carries the operator-provisioned fallback credential used
// when a persona's own token stops working, plus poll tuning (zero values
// take the platform defaults).
type PublishConfig struct {
	FallbackToken     string
	FallbackAccountID string
	PollInterval      time.Duration
	MaxWait           time.Duration
	RetryBackoff      time.Duration
}

type IPublishUsecase interface {
	Publish(ctx context.Context, personaID, imageURL, caption string) (string, error)
	SendCommentReply(ctx context.Context, conn *model.Connection, commentID, message string) error
}

type publishUsecase struct {
	cfg       PublishConfig
	graph     repository.IGraphClient
	imageHost repository.IImageHost
	store     *CredentialStore
}

func NewPublishUsecase(cfg PublishConfig, graph repository.IGraphClient, imageHost repository.IImageHost, store *CredentialStore) IPublishUsecase {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = rateLimitBackoff
	}
	return &publishUsecase{cfg: cfg, graph: graph, imageHost: imageHost, store: store}
}

// Publish runs the container protocol for a persona: format gate, container
// create, poll until ready, commit. When the primary credential fails and a
// distinct fallback credential is configured, the whole sequence is retried
// under the fallback, which is promoted into the store on success.
func (u *publishUsecase) Publish(ctx context.Context, personaID, imageURL, caption string) (string, error) {
	conn, ok := u.store.Get(personaID)
	if !ok {
		return "", newError(ErrCredential,
			"Instagram account not connected for persona_id=%s. Call /api/instagram/auth first.", personaID)
	}

	jpegURL, err := u.imageHost.EnsureJPEG(ctx, imageURL)
	if err != nil {
		return "", err
	}

	mediaID, err := u.attempt(ctx, conn, jpegURL, caption)
	if err == nil {
		return mediaID, nil
	}

	if u.cfg.FallbackToken == "" || u.cfg.FallbackToken == conn.AccessToken {
		return "", err
	}

	logger.GetLogger().
		WithField("persona_id", personaID).
		WithField("error", err).
		Warn("Primary credential failed; retrying with fallback")

	fallback := &model.Connection{
		PersonaID:     personaID,
		AccessToken:   u.cfg.FallbackToken,
		AccountID:     conn.AccountID,
		AccountHandle: conn.AccountHandle,
		Kind:          model.KindForToken(u.cfg.FallbackToken),
		ConnectedAt:   time.Now().UTC(),
	}
	if u.cfg.FallbackAccountID != "" {
		fallback.AccountID = u.cfg.FallbackAccountID
	}

	mediaID, fbErr := u.attempt(ctx, fallback, jpegURL, caption)
	if fbErr != nil {
		return "", newError(unwrapKind(err), "publish failed (primary: %v; fallback: %v)", err, fbErr)
	}

	// Fallback worked: promote it so the next publish skips the dead token.
	u.store.Upsert(ctx, fallback)
	logger.GetLogger().WithField("persona_id", personaID).Info("Fallback credential promoted")
	return mediaID, nil
}

func (u *publishUsecase) attempt(ctx context.Context, conn *model.Connection, imageURL, caption string) (string, error) {
	var creationID string
	err := u.withRateLimitRetry(ctx, func() error {
		var cErr error
		creationID, cErr = u.graph.CreateMediaContainer(ctx, conn.Kind, conn.AccountID, imageURL, caption, conn.AccessToken)
		return cErr
	})
	if err != nil {
		return "", err
	}

	if err := u.waitForContainer(ctx, conn, creationID); err != nil {
		return "", err
	}

	var mediaID string
	err = u.withRateLimitRetry(ctx, func() error {
		var pErr error
		mediaID, pErr = u.graph.PublishContainer(ctx, conn.Kind, conn.AccountID, creationID, conn.AccessToken)
		return pErr
	})
	if err != nil {
		return "", err
	}
	logger.GetLogger().
		WithField("persona_id", conn.PersonaID).
		WithField("media_id", mediaID).
		Info("Media published")
	return mediaID, nil
}

// waitForContainer polls container status on a fixed interval until the
// platform reports FINISHED, reports ERROR, or the bounded wait elapses.
func (u *publishUsecase) waitForContainer(ctx context.Context, conn *model.Connection, creationID string) error {
	deadline := time.Now().Add(u.cfg.MaxWait)
	for {
		status, err := u.graph.ContainerStatus(ctx, conn.Kind, creationID, conn.AccessToken)
		if err != nil {
			return err
		}
		switch status {
		case "FINISHED":
			return nil
		case "ERROR":
			return newError(ErrContainer, "container %s entered ERROR state", creationID)
		}
		if time.Now().Add(u.cfg.PollInterval).After(deadline) {
			return newError(ErrNotReady, "container %s not ready after %s (last status %s)", creationID, u.cfg.MaxWait, status)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(u.cfg.PollInterval):
		}
	}
}

// SendCommentReply posts a reply under an external comment using the given
// credential. This is the reply-send analog of Publish used by the
// interaction engine.
func (u *publishUsecase) SendCommentReply(ctx context.Context, conn *model.Connection, commentID, message string) error {
	return u.withRateLimitRetry(ctx, func() error {
		return u.graph.PostCommentReply(ctx, conn.Kind, commentID, message, conn.AccessToken)
	})
}

// withRateLimitRetry retries fn with linearly increasing backoff, but only
// when the platform explicitly rate-limited us. Other errors surface
// immediately.
func (u *publishUsecase) withRateLimitRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= rateLimitAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrRateLimited) {
			return err
		}
		if attempt == rateLimitAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * u.cfg.RetryBackoff):
		}
	}
	return err
}

// unwrapKind recovers the taxonomy sentinel from a wrapped error so the
// fallback wrap preserves the original classification.
func unwrapKind(err error) error {
	for _, kind := range []error{ErrContainer, ErrNotReady, ErrRateLimited, ErrCredential, ErrUnsupportedFormat} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrContainer
}
