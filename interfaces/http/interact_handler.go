package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"prism-connector/domain/dto"
	"prism-connector/domain/model"
	"prism-connector/infrastructure/logger"
	"prism-connector/usecase"
)

type IInteractHandler interface {
	VerifyWebhook(ctx *gin.Context)
	ReceiveWebhook(ctx *gin.Context)
	PendingReplies(ctx *gin.Context)
	SendReply(ctx *gin.Context)
	DismissReply(ctx *gin.Context)
	GetSettings(ctx *gin.Context)
	SetSettings(ctx *gin.Context)
}

type interactHandler struct {
	interactUsecase usecase.IInteractUsecase
	verifyToken     string
	appSecret       string
}

func NewInteractHandler(uc usecase.IInteractUsecase, verifyToken, appSecret string) IInteractHandler {
	return &interactHandler{interactUsecase: uc, verifyToken: verifyToken, appSecret: appSecret}
}

// VerifyWebhook answers the platform's subscription handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (h *interactHandler) VerifyWebhook(ctx *gin.Context) {
	mode := ctx.Query("hub.mode")
	token := ctx.Query("hub.verify_token")
	challenge := ctx.Query("hub.challenge")
	if mode == "subscribe" && token == h.verifyToken {
		ctx.String(http.StatusOK, challenge)
		return
	}
	ctx.Status(http.StatusForbidden)
}

// ReceiveWebhook ingests comment events. The signature is checked before
// anything else touches state; an invalid signature leaves the system
// unchanged.
func (h *interactHandler) ReceiveWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	if h.appSecret != "" {
		signature := ctx.GetHeader("X-Hub-Signature-256")
		if !validSignature(h.appSecret, signature, body) {
			logger.GetLogger().Warn("Webhook signature mismatch")
			ctx.Status(http.StatusForbidden)
			return
		}
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	h.interactUsecase.HandleWebhook(ctx.Request.Context(), &payload)
	ctx.String(http.StatusOK, "EVENT_RECEIVED")
}

func validSignature(secret, header string, body []byte) bool {
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(header, "sha256=")))
}

func (h *interactHandler) PendingReplies(ctx *gin.Context) {
	personaID := ctx.Query("persona_id")
	if personaID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "persona_id required"})
		return
	}
	drafts, err := h.interactUsecase.PendingReplies(ctx.Request.Context(), personaID)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"replies": drafts})
}

func (h *interactHandler) SendReply(ctx *gin.Context) {
	var body dto.SendReplyBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.interactUsecase.SendReply(ctx.Request.Context(), ctx.Param("reply_id"), body.PersonaID); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sent": true})
}

func (h *interactHandler) DismissReply(ctx *gin.Context) {
	if err := h.interactUsecase.DismissReply(ctx.Request.Context(), ctx.Param("reply_id")); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"dismissed": true})
}

func (h *interactHandler) GetSettings(ctx *gin.Context) {
	mode, err := h.interactUsecase.Setting(ctx.Request.Context(), ctx.Param("persona_id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"persona_id": ctx.Param("persona_id"), "mode": mode})
}

func (h *interactHandler) SetSettings(ctx *gin.Context) {
	var body dto.SettingsBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	personaID := ctx.Param("persona_id")
	if err := h.interactUsecase.SetSetting(ctx.Request.Context(), personaID, model.AutoReplyMode(body.Mode)); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"persona_id": personaID, "mode": body.Mode})
}
