package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/repopulse/repopulse/internal"
	"github.com/repopulse/repopulse/internal/github"
	"github.com/repopulse/repopulse/internal/handler"
	"github.com/repopulse/repopulse/internal/pipeline"
	"github.com/repopulse/repopulse/internal/service"
	"github.com/repopulse/repopulse/internal/settings"
	"github.com/repopulse/repopulse/internal/store"
	"github.com/repopulse/repopulse/internal/util"
)

func main() {
	internal.InitializeConfiguration()
	if exists, _ := util.PathExists(internal.DotEnvPath); exists {
		settings.ReadDotenv(internal.DotEnvPath)
	}
	settings.Settings = settings.NewSettings()

	ctx := context.Background()

	db := store.NewDatabase(settings.Settings.SQLiteDbString())
	defer db.Close()
	conn, err := db.Conn(ctx)
	if err != nil {
		log.Fatal("fatal error opening sqlite database: ", err)
	}
	store.RunMigrations(conn)

	retryPolicy := store.NewRetryPolicy(
		internal.Config.RetryMaxAttempts,
		time.Duration(internal.Config.RetryBackoffMS)*time.Millisecond,
	)
	executor := store.NewExecutor(db, retryPolicy)
	txManager := store.NewTxManager(db, retryPolicy)

	scheduleStore := store.NewScheduleSQLiteStore(executor)
	historyStore := store.NewHistorySQLiteStore(executor)
	notificationStore := store.NewNotificationSQLiteStore(executor)
	repoStore := store.NewRepoSQLiteStore(executor)

	fetcher := github.NewClient(os.Getenv("REPOPULSE_GITHUB_TOKEN"))
	registry := pipeline.NewRegistry()
	registry.Register(
		store.PipelineGithubSync,
		pipeline.NewGithubSyncRunner(fetcher, repoStore, txManager),
	)
	registry.Register(
		store.PipelineDataProcessing,
		pipeline.NewRankingRunner(repoStore, txManager),
	)
	registry.Register(
		store.PipelineDataEnrichment,
		pipeline.NewEnrichmentRunner(repoStore, txManager),
	)
	registry.Register(
		store.PipelineAIAnalysis,
		pipeline.NewAnalysisRunner(pipeline.NewTemplateSummarizer(), repoStore),
	)

	scheduler := service.NewScheduler()
	defer scheduler.Shutdown()

	events := service.NewEvents()
	notificationSvc := service.NewNotificationService(
		notificationStore,
		events,
		internal.Config.DispatchPerMinute,
	)
	schedulerSvc := service.NewSchedulerService(
		scheduleStore,
		historyStore,
		scheduler,
		registry,
		events,
		time.Duration(internal.Config.ExecutionTimeoutMinutes),
	)

	if err := schedulerSvc.RehydrateSchedules(ctx); err != nil {
		log.Fatal("err rehydrating schedules: ", err)
	}
	if err := service.SeedSchedules(
		ctx, internal.ScheduleSeedPath, scheduleStore, schedulerSvc,
	); err != nil {
		log.Println("err seeding schedules:", err)
	}
	scheduler.Start()

	var webhookKeyHash []byte
	if settings.Settings.WebhookKey != "" {
		webhookKeyHash, err = bcrypt.GenerateFromPassword(
			[]byte(settings.Settings.WebhookKey), bcrypt.DefaultCost,
		)
		if err != nil {
			log.Fatal(err)
		}
	}

	e := setupEcho()
	api := e.Group("/api")
	handler.SetupScheduleRoutes(api, schedulerSvc, webhookKeyHash)
	handler.SetupNotificationRoutes(api, notificationSvc)

	go func() {
		if err := e.Start(settings.Settings.Port); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Println("err shutting down server:", err)
	}
}

func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(
		middleware.Recover(),
		middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(20))),
	)
	return e
}
