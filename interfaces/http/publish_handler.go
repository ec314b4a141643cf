package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"prism-connector/domain/dto"
	"prism-connector/infrastructure/logger"
	"prism-connector/usecase"
)

type IPublishHandler interface {
	PublishNow(ctx *gin.Context)
	Schedule(ctx *gin.Context)
	ListScheduled(ctx *gin.Context)
	CancelScheduled(ctx *gin.Context)
}

type publishHandler struct {
	publishUsecase  usecase.IPublishUsecase
	scheduleUsecase usecase.IScheduleUsecase
}

func NewPublishHandler(pu usecase.IPublishUsecase, su usecase.IScheduleUsecase) IPublishHandler {
	return &publishHandler{publishUsecase: pu, scheduleUsecase: su}
}

// PublishNow runs the full container protocol synchronously.
func (h *publishHandler) PublishNow(ctx *gin.Context) {
	var req dto.PublishNowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	mediaID, err := h.publishUsecase.Publish(ctx.Request.Context(), req.PersonaID, req.ImageURL, req.Caption)
	if err != nil {
		logger.GetLogger().
			WithField("persona_id", req.PersonaID).
			WithField("error", err).
			Warn("Publish request failed")
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"published": true, "media_id": mediaID})
}

// Schedule registers a batch of future posts for one persona. The batch is
// not atomic: accepted posts stay scheduled even when a later one fails
// validation, and the response reports both sides. 201 means every post was
// accepted; 200 means a partial batch.
func (h *publishHandler) Schedule(ctx *gin.Context) {
	var req dto.ScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Posts) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "posts must not be empty"})
		return
	}

	accepted := make([]dto.ScheduledJobRef, 0, len(req.Posts))
	var failures []gin.H
	for i, post := range req.Posts {
		job, err := h.scheduleUsecase.Schedule(ctx.Request.Context(), req.PersonaID, post.ImageURL, post.Caption, post.PublishAt)
		if err != nil {
			failures = append(failures, gin.H{"index": i, "error": err.Error()})
			continue
		}
		accepted = append(accepted, dto.ScheduledJobRef{
			JobID:     job.JobID,
			PublishAt: job.RunAt.Format(time.RFC3339),
		})
	}

	status := http.StatusCreated
	switch {
	case len(accepted) == 0:
		status = http.StatusBadRequest
	case len(failures) > 0:
		status = http.StatusOK
	}
	ctx.JSON(status, gin.H{"scheduled": accepted, "failed": failures})
}

func (h *publishHandler) ListScheduled(ctx *gin.Context) {
	personaID := ctx.Query("persona_id")
	if personaID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "persona_id required"})
		return
	}
	jobs, err := h.scheduleUsecase.List(ctx.Request.Context(), personaID)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *publishHandler) CancelScheduled(ctx *gin.Context) {
	jobID := ctx.Param("job_id")
	if err := h.scheduleUsecase.Cancel(ctx.Request.Context(), jobID); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cancelled": true, "job_id": jobID})
}
