package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prism-connector/domain/dto"
	"prism-connector/infrastructure/logger"
	"prism-connector/usecase"
)

type IConnectHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	DirectConnect(ctx *gin.Context)
	Status(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
}

type connectHandler struct {
	connectUsecase usecase.IConnectUsecase
	defaultPersona string
}

func NewConnectHandler(uc usecase.IConnectUsecase, defaultPersona string) IConnectHandler {
	return &connectHandler{connectUsecase: uc, defaultPersona: defaultPersona}
}

func (h *connectHandler) persona(ctx *gin.Context) string {
	if p := ctx.Query("persona_id"); p != "" {
		return p
	}
	return h.defaultPersona
}

// GetAuthURL builds the OAuth dialog URL (user must approve in browser).
func (h *connectHandler) GetAuthURL(ctx *gin.Context) {
	authURL, err := h.connectUsecase.AuthorizeURL(h.persona(ctx))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// Callback receives the OAuth redirect and completes the connect flow.
func (h *connectHandler) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	if code == "" {
		if reason := ctx.Query("error_description"); reason != "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": reason})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	conn, err := h.connectUsecase.Exchange(ctx.Request.Context(), code, ctx.Query("state"))
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("OAuth exchange failed")
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"connected":      true,
		"persona_id":     conn.PersonaID,
		"account_id":     conn.AccountID,
		"account_handle": conn.AccountHandle,
	})
}

// DirectConnect registers a pre-obtained access token.
func (h *connectHandler) DirectConnect(ctx *gin.Context) {
	var req dto.DirectConnectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	conn, err := h.connectUsecase.DirectConnect(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"connected":      true,
		"persona_id":     conn.PersonaID,
		"account_id":     conn.AccountID,
		"account_handle": conn.AccountHandle,
	})
}

func (h *connectHandler) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.connectUsecase.Status(h.persona(ctx)))
}

func (h *connectHandler) Disconnect(ctx *gin.Context) {
	removed := h.connectUsecase.Disconnect(ctx.Request.Context(), h.persona(ctx))
	ctx.JSON(http.StatusOK, gin.H{"disconnected": removed})
}
