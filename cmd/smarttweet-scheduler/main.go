// SmartTweet Scheduler — цикл публикации отложенных записей.
//
// По расписанию SCHEDULER_CADENCE находит записи, время которых
// наступило, и публикует каждую через executor. При Postgres
// сканирует только лидер (advisory lock), остальные процессы ждут.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/SmartTweet/internal/app"
	"github.com/shaiso/SmartTweet/internal/config"
	"github.com/shaiso/SmartTweet/internal/executor"
	"github.com/shaiso/SmartTweet/internal/repo"
	"github.com/shaiso/SmartTweet/internal/scheduler"
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
	logger.Info("starting smarttweet-scheduler", "db_driver", cfg.DB.Driver, "cadence", cfg.Scheduler.Cadence)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, pool, err := app.OpenStore(ctx, cfg.DB)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

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

	mqConn, events, err := app.ConnectEvents(ctx, cfg.RabbitMQ, "smarttweet-scheduler", logger)
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
	if events != nil {
		execCfg.Events = events
	}

	schedCfg := scheduler.Config{
		Store:    store,
		Executor: executor.New(execCfg),
		Cadence:  cfg.Scheduler.Cadence,
		Logger:   logger,
	}
	if pool != nil && cfg.Scheduler.LeaderLock {
		lock := repo.NewAdvisoryLock(pool, repo.SchedulerLockKey)
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Warn("failed to release leader lock", "error", err)
			}
		}()
		schedCfg.Leader = lock
		logger.Info("leader election enabled", "lock_key", repo.SchedulerLockKey)
	}

	sched := scheduler.New(schedCfg)

	go func() {
		if err := app.Serve(ctx, ":"+cfg.HTTP.SchedPort, app.OpsMux(startTime), logger); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler failed", "error", err)
		os.Exit(1)
	}

	logger.Info("smarttweet-scheduler stopped")
}
