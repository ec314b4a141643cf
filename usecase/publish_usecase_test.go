package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prism-connector/domain/model"
	"prism-connector/usecase"
)

func fastPublishConfig() usecase.PublishConfig {
	return usecase.PublishConfig{
		PollInterval: time.Millisecond,
		MaxWait:      20 * time.Millisecond,
		RetryBackoff: time.Millisecond,
	}
}

func connectedStore(t *testing.T, personaID, token, accountID string) *usecase.CredentialStore {
	t.Helper()
	store, _ := newStore(t)
	store.Upsert(context.Background(), &model.Connection{
		PersonaID:   personaID,
		AccessToken: token,
		AccountID:   accountID,
		Kind:        model.KindForToken(token),
		ConnectedAt: time.Now().UTC(),
	})
	return store
}

func TestPublish_NoCredential(t *testing.T) {
	store, _ := newStore(t)
	uc := usecase.NewPublishUsecase(fastPublishConfig(), new(MockGraphClient), new(MockImageHost), store)

	_, err := uc.Publish(context.Background(), "ghost", "https://img/x.jpg", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrCredential)
	assert.Contains(t, err.Error(), "persona_id=ghost")
}

func TestPublish_HappyPath(t *testing.T) {
	store := connectedStore(t, "luna", "EAAG-tok", "178")
	graph := new(MockGraphClient)
	images := new(MockImageHost)

	images.On("EnsureJPEG", mock.Anything, "https://img/x.webp").Return("https://img/x.jpg", nil)
	graph.On("CreateMediaContainer", mock.Anything, model.CredentialBusiness, "178", "https://img/x.jpg", "hi", "EAAG-tok").
		Return("container-1", nil)
	graph.On("ContainerStatus", mock.Anything, model.CredentialBusiness, "container-1", "EAAG-tok").
		Return("IN_PROGRESS", nil).Once()
	graph.On("ContainerStatus", mock.Anything, model.CredentialBusiness, "container-1", "EAAG-tok").
		Return("FINISHED", nil).Once()
	graph.On("PublishContainer", mock.Anything, model.CredentialBusiness, "178", "container-1", "EAAG-tok").
		Return("media-9", nil)

	uc := usecase.NewPublishUsecase(fastPublishConfig(), graph, images, store)
	mediaID, err := uc.Publish(context.Background(), "luna", "https://img/x.webp", "hi")
	require.NoError(t, err)
	assert.Equal(t, "media-9", mediaID)
	graph.AssertExpectations(t)
}

func TestPublish_ContainerError(t *testing.T) {
	store := connectedStore(t, "luna", "EAAG-tok", "178")
	graph := new(MockGraphClient)
	images := new(MockImageHost)

	images.On("EnsureJPEG", mock.Anything, mock.Anything).Return("https://img/x.jpg", nil)
	graph.On("CreateMediaContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("container-1", nil)
	graph.On("ContainerStatus", mock.Anything, mock.Anything, "container-1", mock.Anything).
		Return("ERROR", nil)

	uc := usecase.NewPublishUsecase(fastPublishConfig(), graph, images, store)
	_, err := uc.Publish(context.Background(), "luna", "https://img/x.jpg", "")
	assert.ErrorIs(t, err, usecase.ErrContainer)
	graph.AssertNotCalled(t, "PublishContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublish_ContainerNeverReady(t *testing.T) {
	store := connectedStore(t, "luna", "EAAG-tok", "178")
	graph := new(MockGraphClient)
	images := new(MockImageHost)

	images.On("EnsureJPEG", mock.Anything, mock.Anything).Return("https://img/x.jpg", nil)
	graph.On("CreateMediaContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("container-1", nil)
	graph.On("ContainerStatus", mock.Anything, mock.Anything, "container-1", mock.Anything).
		Return("IN_PROGRESS", nil)

	uc := usecase.NewPublishUsecase(fastPublishConfig(), graph, images, store)
	_, err := uc.Publish(context.Background(), "luna", "https://img/x.jpg", "")
	assert.ErrorIs(t, err, usecase.ErrNotReady)
}

func TestPublish_RateLimitRetries(t *testing.T) {
	store := connectedStore(t, "luna", "EAAG-tok", "178")
	graph := new(MockGraphClient)
	images := new(MockImageHost)

	images.On("EnsureJPEG", mock.Anything, mock.Anything).Return("https://img/x.jpg", nil)
	graph.On("CreateMediaContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", usecase.ErrRateLimited).Once()
	graph.On("CreateMediaContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("container-1", nil).Once()
	graph.On("ContainerStatus", mock.Anything, mock.Anything, "container-1", mock.Anything).
		Return("FINISHED", nil)
	graph.On("PublishContainer", mock.Anything, mock.Anything, mock.Anything, "container-1", mock.Anything).
		Return("media-1", nil)

	uc := usecase.NewPublishUsecase(fastPublishConfig(), graph, images, store)
	mediaID, err := uc.Publish(context.Background(), "luna", "https://img/x.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, "media-1", mediaID)
	graph.AssertExpectations(t)
}

func TestPublish_FallbackPromotion(t *testing.T) {
	store := connectedStore(t, "luna", "EAAG-dead", "178")
	graph := new(MockGraphClient)
	images := new(MockImageHost)

	images.On("EnsureJPEG", mock.Anything, mock.Anything).Return("https://img/x.jpg", nil)
	// Primary credential is rejected outright.
	graph.On("CreateMediaContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, "EAAG-dead").
		Return("", usecase.ErrContainer)
	// Fallback succeeds end to end.
	graph.On("CreateMediaContainer", mock.Anything, mock.Anything, "999", mock.Anything, mock.Anything, "EAAG-fallback").
		Return("container-2", nil)
	graph.On("ContainerStatus", mock.Anything, mock.Anything, "container-2", "EAAG-fallback").
		Return("FINISHED", nil)
	graph.On("PublishContainer", mock.Anything, mock.Anything, "999", "container-2", "EAAG-fallback").
		Return("media-2", nil)

	cfg := fastPublishConfig()
	cfg.FallbackToken = "EAAG-fallback"
	cfg.FallbackAccountID = "999"
	uc := usecase.NewPublishUsecase(cfg, graph, images, store)

	mediaID, err := uc.Publish(context.Background(), "luna", "https://img/x.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, "media-2", mediaID)

	// Next publish uses the promoted credential.
	conn, ok := store.Get("luna")
	require.True(t, ok)
	assert.Equal(t, "EAAG-fallback", conn.AccessToken)
	assert.Equal(t, "999", conn.AccountID)
}

func TestPublish_UnsupportedFormat(t *testing.T) {
	store := connectedStore(t, "luna", "EAAG-tok", "178")
	graph := new(MockGraphClient)
	images := new(MockImageHost)
	images.On("EnsureJPEG", mock.Anything, mock.Anything).Return("", usecase.ErrUnsupportedFormat)

	uc := usecase.NewPublishUsecase(fastPublishConfig(), graph, images, store)
	_, err := uc.Publish(context.Background(), "luna", "https://img/x.heic", "")
	assert.ErrorIs(t, err, usecase.ErrUnsupportedFormat)
	graph.AssertNotCalled(t, "CreateMediaContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
