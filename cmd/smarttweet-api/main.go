// SmartTweet API — HTTP-интерфейс планирования публикаций.
//
// Принимает записи от владельцев, сохраняет их в pending и публикует
// немедленные посты синхронно. Отложенные записи публикует
// smarttweet-scheduler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/SmartTweet/internal/api"
	"github.com/shaiso/SmartTweet/internal/app"
	"github.com/shaiso/SmartTweet/internal/config"
	"github.com/shaiso/SmartTweet/internal/executor"
	"github.com/shaiso/SmartTweet/internal/posts"
	"github.com/shaiso/SmartTweet/internal/telemetry"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("info", "json").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting smarttweet-api", "db_driver", cfg.DB.Driver)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, _, err := app.OpenStore(ctx, cfg.DB)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	applied, err := store.Migrate(ctx)
	if err != nil {
		logger.Error("failed to migrate", "error", err)
		os.Exit(1)
	}
	logger.Info("store ready", "migrations_applied", len(applied))

	enhancer, err := app.NewEnhancer(ctx, cfg.AI, logger)
	if err != nil {
		logger.Error("failed to init enhancer", "error", err)
		os.Exit(1)
	}

	locker, closeLocker, err := app.NewLocker(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to init post locker", "error", err)
		os.Exit(1)
	}
	defer closeLocker()

	mqConn, events, err := app.ConnectEvents(ctx, cfg.RabbitMQ, "smarttweet-api", logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running without lifecycle events", "error", err)
	}
	if mqConn != nil {
		defer mqConn.Close()
	}

	execCfg := executor.Config{
		Store:    store,
		Registry: executor.NewRegistry(app.NewPublisher(cfg.Twitter, logger), enhancer),
		Locker:   locker,
		Logger:   logger,
	}
	svcCfg := posts.Config{
		Store:    store,
		Enhancer: enhancer,
		Logger:   logger,
	}
	if events != nil {
		execCfg.Events = events
		svcCfg.Events = events
	}
	svcCfg.Publisher = executor.New(execCfg)

	handler := api.NewHandler(api.Config{
		Posts:  posts.NewService(svcCfg),
		Logger: logger,
	})

	mux := app.OpsMux(startTime)
	handler.RegisterRoutes(mux)

	if err := app.Serve(ctx, ":"+cfg.HTTP.APIPort, mux, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("smarttweet-api stopped")
}
