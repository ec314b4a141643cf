package usecase

import (
	"context"
	"encoding/json"
	"time"

	"prism-connector/domain/dto"
	"prism-connector/domain/model"
	"prism-connector/domain/repository"
	"prism-connector/infrastructure/logger"

	"golang.org/x/oauth2"
)

// RenewalInterval keeps renewals well inside the ~60-day token validity.
const RenewalInterval = 50 * 24 * time.Hour

var instagramEndpoint = oauth2.Endpoint{
	AuthURL:  "https://api.instagram.com/oauth/authorize",
	TokenURL: "https://api.instagram.com/oauth/access_token",
}

var oauthScopes = []string{
	"instagram_business_basic",
	"instagram_business_content_publish",
	"instagram_business_manage_comments",
}

// IAlertPublisher is an outbound notification channel for renewal events.
// Publishing is fire-and-forget; failures are logged by the caller.
type IAlertPublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// ConnectConfig carries the application-level OAuth settings plus the
// pre-provisioned fallback identity used when account resolution fails.
type ConnectConfig struct {
	AppID             string
	AppSecret         string
	RedirectURI       string
	FallbackAccountID string
}

type IConnectUsecase interface {
	AuthorizeURL(personaID string) (string, error)
	Exchange(ctx context.Context, code, state string) (*model.Connection, error)
	DirectConnect(ctx context.Context, req *dto.DirectConnectRequest) (*model.Connection, error)
	Status(personaID string) dto.ConnectionStatusResponse
	Renew(ctx context.Context, personaID string)
	Disconnect(ctx context.Context, personaID string) bool
}

type connectUsecase struct {
	cfg        ConnectConfig
	graph      repository.IGraphClient
	store      *CredentialStore
	renewals   *RenewalScheduler
	publishers []IAlertPublisher
}

func NewConnectUsecase(
	cfg ConnectConfig,
	graph repository.IGraphClient,
	store *CredentialStore,
	renewals *RenewalScheduler,
	publishers ...IAlertPublisher,
) IConnectUsecase {
	return &connectUsecase{
		cfg:        cfg,
		graph:      graph,
		store:      store,
		renewals:   renewals,
		publishers: publishers,
	}
}

// AuthorizeURL builds the platform authorization dialog URL. The persona id
// rides in the OAuth state parameter for CSRF protection and routing.
func (u *connectUsecase) AuthorizeURL(personaID string) (string, error) {
	if u.cfg.AppID == "" {
		return "", newError(ErrConfig, "INSTAGRAM_APP_ID is not configured")
	}
	oc := &oauth2.Config{
		ClientID:    u.cfg.AppID,
		RedirectURL: u.cfg.RedirectURI,
		Scopes:      oauthScopes,
		Endpoint:    instagramEndpoint,
	}
	return oc.AuthCodeURL(personaID), nil
}

// Exchange upgrades the authorization code to a long-lived token (~60 days),
// resolves the external account identity, stores the Connection, and arms
// periodic renewal for the persona.
func (u *connectUsecase) Exchange(ctx context.Context, code, state string) (*model.Connection, error) {
	if u.cfg.AppID == "" || u.cfg.AppSecret == "" {
		return nil, newError(ErrConfig, "INSTAGRAM_APP_ID / INSTAGRAM_APP_SECRET not configured")
	}

	short, err := u.graph.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	long, err := u.graph.ExtendToken(ctx, short.AccessToken)
	if err != nil {
		return nil, err
	}

	accountID, handle, err := u.resolveAccount(ctx, long.AccessToken)
	if err != nil {
		return nil, err
	}

	conn := &model.Connection{
		PersonaID:     state,
		AccessToken:   long.AccessToken,
		AccountID:     accountID,
		AccountHandle: handle,
		Kind:          model.KindForToken(long.AccessToken),
		ConnectedAt:   time.Now().UTC(),
		ExpiresIn:     long.ExpiresIn,
	}
	u.store.Upsert(ctx, conn)
	u.renewals.Register(conn.PersonaID)
	logger.GetLogger().
		WithField("persona_id", conn.PersonaID).
		WithField("account_id", conn.AccountID).
		Info("Connection stored")
	return conn, nil
}

// DirectConnect registers a pre-obtained token, resolving the account
// identity when the caller did not supply one. One external account maps to
// one persona, so the persona id defaults to the resolved account id.
func (u *connectUsecase) DirectConnect(ctx context.Context, req *dto.DirectConnectRequest) (*model.Connection, error) {
	accountID, handle := req.AccountID, req.AccountHandle
	if accountID == "" {
		var err error
		accountID, handle, err = u.resolveAccount(ctx, req.AccessToken)
		if err != nil {
			return nil, err
		}
	}
	personaID := req.PersonaID
	if personaID == "" {
		personaID = accountID
	}
	conn := &model.Connection{
		PersonaID:     personaID,
		AccessToken:   req.AccessToken,
		AccountID:     accountID,
		AccountHandle: handle,
		Kind:          model.KindForToken(req.AccessToken),
		ConnectedAt:   time.Now().UTC(),
	}
	u.store.Upsert(ctx, conn)
	u.renewals.Register(conn.PersonaID)
	return conn, nil
}

func (u *connectUsecase) Status(personaID string) dto.ConnectionStatusResponse {
	conn, ok := u.store.Get(personaID)
	if !ok {
		return dto.ConnectionStatusResponse{Connected: false}
	}
	at := conn.ConnectedAt
	return dto.ConnectionStatusResponse{
		Connected:     true,
		AccountID:     conn.AccountID,
		AccountHandle: conn.AccountHandle,
		ConnectedAt:   &at,
	}
}

// Renew refreshes the persona's long-lived token in place. A persona with
// no stored Connection is a silent no-op: it may simply have disconnected
// since the timer was armed. On failure the old token is kept and an alert
// demanding manual re-authorization goes out.
func (u *connectUsecase) Renew(ctx context.Context, personaID string) {
	conn, ok := u.store.Get(personaID)
	if !ok {
		logger.GetLogger().WithField("persona_id", personaID).Info("Renewal skipped; persona not connected")
		return
	}

	fresh, err := u.graph.RefreshToken(ctx, conn.Kind, conn.AccessToken)
	if err != nil {
		logger.GetLogger().
			WithField("persona_id", personaID).
			WithField("error", err).
			Error("Token renewal failed; existing token kept")
		u.notify(ctx, "renewal_failed", personaID,
			"Token renewal failed. Manual re-authorization required before the current token expires.")
		return
	}

	now := time.Now().UTC()
	conn.AccessToken = fresh.AccessToken
	conn.ExpiresIn = fresh.ExpiresIn
	conn.RefreshedAt = &now
	u.store.Upsert(ctx, conn)
	logger.GetLogger().WithField("persona_id", personaID).Info("Token renewed")
	u.notify(ctx, "renewal_succeeded", personaID, "Token renewed for ~60 days.")
}

func (u *connectUsecase) Disconnect(ctx context.Context, personaID string) bool {
	u.renewals.Unregister(personaID)
	return u.store.Remove(ctx, personaID)
}

// resolveAccount tries the linked-business-page strategy, then direct
// account metadata, then the operator-provisioned fallback id from config.
func (u *connectUsecase) resolveAccount(ctx context.Context, accessToken string) (string, string, error) {
	accountID, handle, err := u.graph.ResolveViaPages(ctx, accessToken)
	if err == nil && accountID != "" {
		return accountID, handle, nil
	}
	pagesErr := err

	accountID, handle, err = u.graph.ResolveViaMe(ctx, model.KindForToken(accessToken), accessToken)
	if err == nil && accountID != "" {
		return accountID, handle, nil
	}

	if u.cfg.FallbackAccountID != "" {
		logger.GetLogger().
			WithField("account_id", u.cfg.FallbackAccountID).
			Warn("Account resolution fell back to configured account id")
		return u.cfg.FallbackAccountID, "", nil
	}

	return "", "", newError(ErrAccountResolution,
		"no professional account found (pages: %v; me: %v). "+
			"Ensure the Instagram account is a Professional/Creator account and is linked to a Facebook Page.",
		pagesErr, err)
}

type renewalAlert struct {
	Event     string `json:"event"`
	PersonaID string `json:"persona_id"`
	Detail    string `json:"detail"`
	At        string `json:"at"`
}

func (u *connectUsecase) notify(ctx context.Context, event, personaID, detail string) {
	if len(u.publishers) == 0 {
		return
	}
	payload, _ := json.Marshal(renewalAlert{
		Event:     event,
		PersonaID: personaID,
		Detail:    detail,
		At:        time.Now().UTC().Format(time.RFC3339),
	})
	for _, p := range u.publishers {
		if err := p.Publish(ctx, payload); err != nil {
			logger.GetLogger().WithField("event", event).WithField("error", err).Warn("Renewal alert publish failed")
		}
	}
}
