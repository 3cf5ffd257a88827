// SmartTweet Notifier — уведомления о результатах публикаций.
//
// Читает события из очереди posts.events и пересылает post.failed
// и post.posted на NOTIFY_WEBHOOK_URL. Без URL события только
// логируются.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/SmartTweet/internal/app"
	"github.com/shaiso/SmartTweet/internal/config"
	"github.com/shaiso/SmartTweet/internal/mq"
	"github.com/shaiso/SmartTweet/internal/notify"
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
	logger.Info("starting smarttweet-notifier")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := mq.NewConnection(mq.ConnectionConfig{
		URL:  cfg.RabbitMQ.URL,
		Name: "smarttweet-notifier",
	}, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	logger.Debug("rabbitmq topology", "info", mq.TopologyInfo())

	notifier := notify.New(notify.Config{
		WebhookURL: cfg.Notify.WebhookURL,
		Logger:     logger,
	})

	consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
		Queue:   mq.QueuePostEvents,
		Handler: notifier.Handle,
		Tag:     "smarttweet-notifier",
	})

	go func() {
		if err := app.Serve(ctx, ":"+cfg.HTTP.NotifierPort, app.OpsMux(startTime, brokerCheck(conn)), logger); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer failed", "error", err)
		os.Exit(1)
	}

	logger.Info("smarttweet-notifier stopped")
}

func brokerCheck(conn *mq.Connection) app.HealthCheck {
	return func() error {
		if !conn.IsConnected() {
			return errors.New("rabbitmq disconnected")
		}
		return nil
	}
}
