package usecase_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prism-connector/domain/dto"
	"prism-connector/domain/model"
	"prism-connector/domain/repository"
	"prism-connector/usecase"
)

func testConnectConfig() usecase.ConnectConfig {
	return usecase.ConnectConfig{
		AppID:       "app-1",
		AppSecret:   "secret-1",
		RedirectURI: "http://localhost:8000/api/instagram/callback",
	}
}

type connectFixture struct {
	graph    *MockGraphClient
	store    *usecase.CredentialStore
	renewals *usecase.RenewalScheduler
	alerts   *MockAlertPublisher
	uc       usecase.IConnectUsecase
}

func newConnectFixture(t *testing.T, cfg usecase.ConnectConfig) *connectFixture {
	t.Helper()
	f := &connectFixture{
		graph:    new(MockGraphClient),
		renewals: usecase.NewRenewalScheduler(time.Hour, func(string) {}),
		alerts:   new(MockAlertPublisher),
	}
	f.store, _ = newStore(t)
	f.uc = usecase.NewConnectUsecase(cfg, f.graph, f.store, f.renewals, f.alerts)
	t.Cleanup(f.renewals.Stop)
	return f
}

func TestAuthorizeURL(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())

	raw, err := f.uc.AuthorizeURL("luna")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.instagram.com", parsed.Host)
	q := parsed.Query()
	assert.Equal(t, "app-1", q.Get("client_id"))
	assert.Equal(t, "luna", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "instagram_business_content_publish")
}

func TestAuthorizeURL_MissingAppID(t *testing.T) {
	f := newConnectFixture(t, usecase.ConnectConfig{})

	_, err := f.uc.AuthorizeURL("luna")
	assert.ErrorIs(t, err, usecase.ErrConfig)
}

func TestExchange_HappyPath(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())
	ctx := context.Background()

	f.graph.On("ExchangeCode", mock.Anything, "code-1").
		Return(&repository.TokenInfo{AccessToken: "EAAshort"}, nil).Once()
	f.graph.On("ExtendToken", mock.Anything, "EAAshort").
		Return(&repository.TokenInfo{AccessToken: "EAAlong", ExpiresIn: 5183944}, nil).Once()
	f.graph.On("ResolveViaPages", mock.Anything, "EAAlong").
		Return("acct-9", "luna_official", nil).Once()

	conn, err := f.uc.Exchange(ctx, "code-1", "luna")
	require.NoError(t, err)
	assert.Equal(t, "luna", conn.PersonaID)
	assert.Equal(t, "acct-9", conn.AccountID)
	assert.Equal(t, "luna_official", conn.AccountHandle)
	assert.Equal(t, model.CredentialBusiness, conn.Kind)

	stored, ok := f.store.Get("luna")
	require.True(t, ok)
	assert.Equal(t, "EAAlong", stored.AccessToken)
	assert.True(t, f.renewals.Registered("luna"))
	f.graph.AssertExpectations(t)
}

func TestExchange_MissingConfig(t *testing.T) {
	f := newConnectFixture(t, usecase.ConnectConfig{AppID: "app-1"})

	_, err := f.uc.Exchange(context.Background(), "code-1", "luna")
	assert.ErrorIs(t, err, usecase.ErrConfig)
	f.graph.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
}

func TestExchange_ResolutionFallsBackToMe(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())

	f.graph.On("ExchangeCode", mock.Anything, "code-1").
		Return(&repository.TokenInfo{AccessToken: "IGAAshort"}, nil).Once()
	f.graph.On("ExtendToken", mock.Anything, "IGAAshort").
		Return(&repository.TokenInfo{AccessToken: "IGAAlong"}, nil).Once()
	f.graph.On("ResolveViaPages", mock.Anything, "IGAAlong").
		Return("", "", errors.New("no pages")).Once()
	f.graph.On("ResolveViaMe", mock.Anything, model.CredentialCreator, "IGAAlong").
		Return("acct-3", "luna_creator", nil).Once()

	conn, err := f.uc.Exchange(context.Background(), "code-1", "luna")
	require.NoError(t, err)
	assert.Equal(t, "acct-3", conn.AccountID)
	assert.Equal(t, model.CredentialCreator, conn.Kind)
}

func TestExchange_ResolutionFailsWithoutFallback(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())

	f.graph.On("ExchangeCode", mock.Anything, "code-1").
		Return(&repository.TokenInfo{AccessToken: "EAAshort"}, nil)
	f.graph.On("ExtendToken", mock.Anything, "EAAshort").
		Return(&repository.TokenInfo{AccessToken: "EAAlong"}, nil)
	f.graph.On("ResolveViaPages", mock.Anything, "EAAlong").
		Return("", "", errors.New("no pages"))
	f.graph.On("ResolveViaMe", mock.Anything, model.CredentialBusiness, "EAAlong").
		Return("", "", errors.New("no account"))

	_, err := f.uc.Exchange(context.Background(), "code-1", "luna")
	assert.ErrorIs(t, err, usecase.ErrAccountResolution)
	_, ok := f.store.Get("luna")
	assert.False(t, ok)
}

func TestExchange_ResolutionUsesConfiguredFallback(t *testing.T) {
	cfg := testConnectConfig()
	cfg.FallbackAccountID = "acct-fallback"
	f := newConnectFixture(t, cfg)

	f.graph.On("ExchangeCode", mock.Anything, "code-1").
		Return(&repository.TokenInfo{AccessToken: "EAAshort"}, nil)
	f.graph.On("ExtendToken", mock.Anything, "EAAshort").
		Return(&repository.TokenInfo{AccessToken: "EAAlong"}, nil)
	f.graph.On("ResolveViaPages", mock.Anything, "EAAlong").
		Return("", "", errors.New("no pages"))
	f.graph.On("ResolveViaMe", mock.Anything, model.CredentialBusiness, "EAAlong").
		Return("", "", errors.New("no account"))

	conn, err := f.uc.Exchange(context.Background(), "code-1", "luna")
	require.NoError(t, err)
	assert.Equal(t, "acct-fallback", conn.AccountID)
	assert.Empty(t, conn.AccountHandle)
}

func TestDirectConnect(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())
	ctx := context.Background()

	// Explicit account id skips resolution entirely.
	conn, err := f.uc.DirectConnect(ctx, &dto.DirectConnectRequest{
		PersonaID:   "luna",
		AccessToken: "EAAtoken",
		AccountID:   "acct-5",
	})
	require.NoError(t, err)
	assert.Equal(t, "luna", conn.PersonaID)
	assert.Equal(t, model.CredentialBusiness, conn.Kind)
	f.graph.AssertNotCalled(t, "ResolveViaPages", mock.Anything, mock.Anything)

	// IGAA token without account id resolves via /me and defaults the
	// persona id to the resolved account id.
	f.graph.On("ResolveViaPages", mock.Anything, "IGAAtoken").
		Return("", "", errors.New("no pages")).Once()
	f.graph.On("ResolveViaMe", mock.Anything, model.CredentialCreator, "IGAAtoken").
		Return("acct-6", "solo_creator", nil).Once()

	conn, err = f.uc.DirectConnect(ctx, &dto.DirectConnectRequest{AccessToken: "IGAAtoken"})
	require.NoError(t, err)
	assert.Equal(t, "acct-6", conn.PersonaID)
	assert.Equal(t, model.CredentialCreator, conn.Kind)
	assert.True(t, f.renewals.Registered("acct-6"))
}

func TestStatus(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())

	assert.False(t, f.uc.Status("luna").Connected)

	f.store.Upsert(context.Background(), &model.Connection{
		PersonaID:     "luna",
		AccessToken:   "EAAtoken",
		AccountID:     "acct-5",
		AccountHandle: "luna_official",
		ConnectedAt:   time.Now().UTC(),
	})
	status := f.uc.Status("luna")
	assert.True(t, status.Connected)
	assert.Equal(t, "acct-5", status.AccountID)
	assert.Equal(t, "luna_official", status.AccountHandle)
	require.NotNil(t, status.ConnectedAt)
}

func TestRenew_Success(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())
	ctx := context.Background()
	f.store.Upsert(ctx, &model.Connection{
		PersonaID:   "luna",
		AccessToken: "EAAold",
		AccountID:   "acct-5",
		Kind:        model.CredentialBusiness,
	})

	f.graph.On("RefreshToken", mock.Anything, model.CredentialBusiness, "EAAold").
		Return(&repository.TokenInfo{AccessToken: "EAAnew", ExpiresIn: 5183944}, nil).Once()
	f.alerts.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	f.uc.Renew(ctx, "luna")

	stored, ok := f.store.Get("luna")
	require.True(t, ok)
	assert.Equal(t, "EAAnew", stored.AccessToken)
	assert.NotNil(t, stored.RefreshedAt)
	f.alerts.AssertExpectations(t)
}

func TestRenew_FailureKeepsTokenAndAlerts(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())
	ctx := context.Background()
	f.store.Upsert(ctx, &model.Connection{
		PersonaID:   "luna",
		AccessToken: "EAAold",
		AccountID:   "acct-5",
		Kind:        model.CredentialBusiness,
	})

	f.graph.On("RefreshToken", mock.Anything, model.CredentialBusiness, "EAAold").
		Return(nil, errors.New("platform down")).Once()
	f.alerts.On("Publish", mock.Anything, mock.MatchedBy(func(p []byte) bool {
		return len(p) > 0
	})).Return(nil).Once()

	f.uc.Renew(ctx, "luna")

	stored, _ := f.store.Get("luna")
	assert.Equal(t, "EAAold", stored.AccessToken, "failed renewal must not clobber the token")
	f.alerts.AssertExpectations(t)
}

func TestRenew_UnknownPersonaIsNoOp(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())

	f.uc.Renew(context.Background(), "ghost")

	f.graph.AssertNotCalled(t, "RefreshToken", mock.Anything, mock.Anything, mock.Anything)
	f.alerts.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestDisconnect(t *testing.T) {
	f := newConnectFixture(t, testConnectConfig())
	ctx := context.Background()
	f.store.Upsert(ctx, &model.Connection{PersonaID: "luna", AccessToken: "EAAtoken", AccountID: "acct-5"})
	f.renewals.Register("luna")

	assert.True(t, f.uc.Disconnect(ctx, "luna"))
	assert.False(t, f.renewals.Registered("luna"))
	assert.False(t, f.uc.Disconnect(ctx, "luna"), "second disconnect reports nothing removed")
}
