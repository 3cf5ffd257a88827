// SmartTweet Migrate — применяет недостающие миграции схемы и выходит.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/SmartTweet/internal/app"
	"github.com/shaiso/SmartTweet/internal/config"
	"github.com/shaiso/SmartTweet/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("info", "json").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)

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
		logger.Error("migration failed", "error", err)
		store.Close()
		os.Exit(1)
	}

	if len(applied) == 0 {
		logger.Info("schema is up to date", "db_driver", cfg.DB.Driver)
		return
	}
	for _, name := range applied {
		logger.Info("applied migration", "name", name)
	}
}
