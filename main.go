package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prism-connector/domain/repository"
	"prism-connector/infrastructure/cache"
	graphclient "prism-connector/infrastructure/clients/graph"
	"prism-connector/infrastructure/clients/imagehost"
	"prism-connector/infrastructure/configuration"
	"prism-connector/infrastructure/logger"
	"prism-connector/infrastructure/persistence"
	"prism-connector/infrastructure/pubsub"
	"prism-connector/infrastructure/realtime"
	"prism-connector/infrastructure/servicebus"
	httpHandler "prism-connector/interfaces/http"
	"prism-connector/interfaces/middleware"
	"prism-connector/server"
	"prism-connector/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	db, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Database not available - using in-memory repositories")
		db = nil
	}

	var connectionRepo repository.IConnection
	var scheduleRepo repository.ISchedule
	var replyRepo repository.IReply
	if db == nil {
		connectionRepo = persistence.NewMemoryConnectionRepository()
		scheduleRepo = persistence.NewMemoryScheduleRepository()
		replyRepo = persistence.NewMemoryReplyRepository()
	} else if isMSSQL() {
		if err := persistence.EnsureSchemaMSSQL(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("Schema bootstrap failed")
		}
		connectionRepo = persistence.NewConnectionRepositoryMSSQL(db)
		scheduleRepo = persistence.NewScheduleRepositoryMSSQL(db)
		replyRepo = persistence.NewReplyRepositoryMSSQL(db)
	} else {
		if err := persistence.EnsureSchema(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("Schema bootstrap failed")
		}
		connectionRepo = persistence.NewConnectionRepository(db)
		scheduleRepo = persistence.NewScheduleRepository(db)
		replyRepo = persistence.NewReplyRepository(db)
	}

	// Fan memory rides on Mongo when available, local memory otherwise.
	var fanRepo repository.IFanMemory
	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing with in-memory fan history")
		fanRepo = persistence.NewMemoryFanRepository()
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing with in-memory fan history")
		fanRepo = persistence.NewMemoryFanRepository()
	} else {
		logger.GetLogger().Info("MongoDB connected successfully")
		fanRepo = persistence.NewFanRepository(mongoDb)
	}

	// Renewal alert channels are optional; nil clients mean the channel is
	// skipped.
	var publishers []usecase.IAlertPublisher
	if configuration.C.Notifier.PubsubProjectID != "" {
		pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Notifier.PubsubProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
		} else {
			publishers = append(publishers, pubsub.NewAlertPubSub(pubSubClient, configuration.C.Notifier.PubsubTopic))
		}
	}
	if configuration.C.Notifier.ServiceBusConn != "" {
		sbClient, err := servicebus.NewServiceBus(configuration.C.Notifier.ServiceBusConn)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus alerts")
		} else {
			publishers = append(publishers, servicebus.NewAlertServiceBus(sbClient, configuration.C.Notifier.ServiceBusQueue))
		}
	}

	var counter middleware.Counter
	redisClient, err := cache.NewRedisClient(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - rate limits are per-instance")
		counter = middleware.NewLocalCounter()
	} else {
		counter = cache.NewRedisCounter(redisClient)
	}

	ig := configuration.C.Instagram
	graphClient := graphclient.NewClient(graphclient.Config{
		AppID:       ig.AppID,
		AppSecret:   ig.AppSecret,
		RedirectURI: ig.RedirectURI,
	})
	imageHost := imagehost.NewCloudinary(imagehost.Config{
		CloudName: configuration.C.Cloudinary.CloudName,
		APIKey:    configuration.C.Cloudinary.APIKey,
		APISecret: configuration.C.Cloudinary.APISecret,
	})

	store := usecase.NewCredentialStore(connectionRepo)
	if err := store.Load(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Credential store load failed")
	}
	store.SeedFromEnv(ctx, os.Getenv("INSTAGRAM_ACCESS_TOKEN"), os.Getenv("IG_USER_ID"))

	connectUsecase := buildConnectUsecase(graphClient, store, publishers)

	publishUsecase := usecase.NewPublishUsecase(usecase.PublishConfig{
		FallbackToken:     ig.FallbackToken,
		FallbackAccountID: ig.FallbackAccountID,
	}, graphClient, imageHost, store)

	scheduleUsecase := usecase.NewScheduleUsecase(scheduleRepo, publishUsecase, store)

	draftHub := realtime.NewDraftHub()
	interactUsecase := usecase.NewInteractUsecase(
		replyRepo, fanRepo, store, publishUsecase, nil, draftHub, ig.DefaultPersona)

	connectHandler := httpHandler.NewConnectHandler(connectUsecase, ig.DefaultPersona)
	publishHandler := httpHandler.NewPublishHandler(publishUsecase, scheduleUsecase)
	interactHandler := httpHandler.NewInteractHandler(interactUsecase, ig.WebhookVerifyToken, ig.AppSecret)

	router := server.InitiateRouter(connectHandler, publishHandler, interactHandler, draftHub, counter)

	// Background scheduled-publish processor (simple ticker loop)
	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				procCtx, cancelProc := context.WithTimeout(ctx, 2*time.Minute)
				if err := scheduleUsecase.ProcessDueJobs(procCtx); err != nil {
					logger.GetLogger().WithField("error", err).Error("Due-job processing failed")
				}
				cancelProc()
			}
		}
	})

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// buildConnectUsecase wires the credential lifecycle and re-arms renewal
// timers for every connection that survived a restart.
func buildConnectUsecase(graph repository.IGraphClient, store *usecase.CredentialStore, publishers []usecase.IAlertPublisher) usecase.IConnectUsecase {
	ig := configuration.C.Instagram

	var connectUsecase usecase.IConnectUsecase
	renewals := usecase.NewRenewalScheduler(usecase.RenewalInterval, func(personaID string) {
		renewCtx, cancelRenew := context.WithTimeout(context.Background(), time.Minute)
		defer cancelRenew()
		connectUsecase.Renew(renewCtx, personaID)
	})

	connectUsecase = usecase.NewConnectUsecase(usecase.ConnectConfig{
		AppID:             ig.AppID,
		AppSecret:         ig.AppSecret,
		RedirectURI:       ig.RedirectURI,
		FallbackAccountID: ig.FallbackAccountID,
	}, graph, store, renewals, publishers...)

	for _, personaID := range store.Personas() {
		renewals.Register(personaID)
	}
	return connectUsecase
}

func isMSSQL() bool {
	env := os.Getenv("ENV")
	return os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod"
}

// InitiateDatabase picks the SQL vendor: MSSQL in production or when
// DB_VENDOR=mssql, PostgreSQL otherwise.
func InitiateDatabase() (*sql.DB, error) {
	if isMSSQL() {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, err
		}
		return db, nil
	}
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, err
	}
	return db, nil
}
