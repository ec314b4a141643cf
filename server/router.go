package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"prism-connector/infrastructure/configuration"
	"prism-connector/infrastructure/realtime"
	httpHandler "prism-connector/interfaces/http"
	"prism-connector/interfaces/middleware"
)

func InitiateRouter(
	connectHandler httpHandler.IConnectHandler,
	publishHandler httpHandler.IPublishHandler,
	interactHandler httpHandler.IInteractHandler,
	draftHub *realtime.Hub,
	counter middleware.Counter,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	origins := []string{"http://localhost:4200", "http://localhost:5173"}
	if configuration.C.App.FrontendURL != "" {
		origins = append(origins, configuration.C.App.FrontendURL)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Api-Key", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Browser-facing and platform-facing routes stay outside operator auth:
	// the OAuth redirect arrives unauthenticated and the webhook authenticates
	// by signature.
	router.GET("/api/instagram/callback", connectHandler.Callback)
	router.GET("/api/interact/webhook", interactHandler.VerifyWebhook)
	router.POST("/api/interact/webhook", interactHandler.ReceiveWebhook)

	api := router.Group("api")
	api.Use(middleware.Auth(configuration.C.App.APIKey, configuration.C.App.SecretKey))

	instagram := api.Group("/instagram")
	{
		instagram.GET("/auth", connectHandler.GetAuthURL)
		instagram.POST("/connect", connectHandler.DirectConnect)
		instagram.GET("/status", connectHandler.Status)
		instagram.DELETE("/disconnect", connectHandler.Disconnect)

		rl := configuration.C.RateLimit
		instagram.POST("/publish",
			middleware.RateLimit(counter, rl.PublishPerMinute, "publish"),
			publishHandler.PublishNow)
		instagram.POST("/schedule",
			middleware.RateLimit(counter, rl.SchedulePerMinute, "schedule"),
			publishHandler.Schedule)
		instagram.GET("/scheduled", publishHandler.ListScheduled)
		instagram.DELETE("/scheduled/:job_id", publishHandler.CancelScheduled)
	}

	interact := api.Group("/interact")
	{
		interact.GET("/replies", interactHandler.PendingReplies)
		interact.POST("/replies/:reply_id/send", interactHandler.SendReply)
		interact.POST("/replies/:reply_id/dismiss", interactHandler.DismissReply)
		interact.GET("/settings/:persona_id", interactHandler.GetSettings)
		interact.PUT("/settings/:persona_id", interactHandler.SetSettings)
		interact.GET("/stream/:persona_id", func(c *gin.Context) { draftHub.Serve(c) })
	}

	return router
}
