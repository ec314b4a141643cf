package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism-connector/domain/dto"
	"prism-connector/infrastructure/persistence"
	httpiface "prism-connector/interfaces/http"
	"prism-connector/usecase"
)

const (
	testVerifyToken = "virtual_prism_webhook_token"
	testAppSecret   = "app-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type webhookFixture struct {
	router  *gin.Engine
	replies *persistence.MemoryReplyRepository
	uc      usecase.IInteractUsecase
}

func newWebhookFixture(t *testing.T, appSecret string) *webhookFixture {
	t.Helper()
	f := &webhookFixture{replies: persistence.NewMemoryReplyRepository()}
	store := usecase.NewCredentialStore(persistence.NewMemoryConnectionRepository())
	f.uc = usecase.NewInteractUsecase(
		f.replies, persistence.NewMemoryFanRepository(), store, nil, nil, nil, "demo")
	handler := httpiface.NewInteractHandler(f.uc, testVerifyToken, appSecret)

	f.router = gin.New()
	f.router.GET("/api/interact/webhook", handler.VerifyWebhook)
	f.router.POST("/api/interact/webhook", handler.ReceiveWebhook)
	f.router.GET("/api/interact/replies", handler.PendingReplies)
	f.router.POST("/api/interact/replies/:reply_id/dismiss", handler.DismissReply)
	f.router.GET("/api/interact/settings/:persona_id", handler.GetSettings)
	f.router.PUT("/api/interact/settings/:persona_id", handler.SetSettings)
	return f
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func commentEventBody(t *testing.T, text string) []byte {
	t.Helper()
	body, err := json.Marshal(dto.WebhookPayload{
		Object: "instagram",
		Entry: []dto.WebhookEntry{{
			ID: "acct-1",
			Changes: []dto.WebhookChange{{
				Field: "comments",
				Value: dto.CommentValue{
					ID:   "c1",
					Text: text,
					From: dto.CommentActor{ID: "fan-1", Name: "Mei"},
				},
			}},
		}},
	})
	require.NoError(t, err)
	return body
}

func TestVerifyWebhook(t *testing.T) {
	f := newWebhookFixture(t, testAppSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/interact/webhook?hub.mode=subscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=12345", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}

func TestVerifyWebhook_BadToken(t *testing.T) {
	f := newWebhookFixture(t, testAppSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/interact/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestReceiveWebhook_ValidSignature(t *testing.T) {
	f := newWebhookFixture(t, testAppSecret)
	body := commentEventBody(t, "so cute!")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/interact/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(testAppSecret, body))
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EVENT_RECEIVED", w.Body.String())

	drafts, err := f.uc.PendingReplies(context.Background(), "demo")
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestReceiveWebhook_BadSignatureLeavesStateUntouched(t *testing.T) {
	f := newWebhookFixture(t, testAppSecret)
	body := commentEventBody(t, "so cute!")

	for _, header := range []string{
		"",
		"sha256=deadbeef",
		signBody("other-secret", body),
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/interact/webhook", bytes.NewReader(body))
		if header != "" {
			req.Header.Set("X-Hub-Signature-256", header)
		}
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	}

	drafts, err := f.uc.PendingReplies(context.Background(), "demo")
	require.NoError(t, err)
	assert.Empty(t, drafts, "rejected webhooks must not create drafts")
}

func TestReceiveWebhook_NoSecretSkipsSignatureCheck(t *testing.T) {
	f := newWebhookFixture(t, "")
	body := commentEventBody(t, "hello")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/interact/webhook", bytes.NewReader(body))
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReceiveWebhook_MalformedBody(t *testing.T) {
	f := newWebhookFixture(t, testAppSecret)
	body := []byte("{not json")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/interact/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(testAppSecret, body))
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPendingReplies_RequiresPersona(t *testing.T) {
	f := newWebhookFixture(t, testAppSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/interact/replies", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDismissReply_NotFound(t *testing.T) {
	f := newWebhookFixture(t, testAppSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/interact/replies/nope/dismiss", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newWebhookFixture(t, testAppSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/interact/settings/luna",
		bytes.NewReader([]byte(`{"mode":"auto"}`)))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/interact/settings/luna", nil)
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "auto", resp["mode"])

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/interact/settings/luna",
		bytes.NewReader([]byte(`{"mode":"yolo"}`)))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
