package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/shaiso/SmartTweet/internal/brain"
	"github.com/shaiso/SmartTweet/internal/config"
	"github.com/shaiso/SmartTweet/internal/executor"
	"github.com/shaiso/SmartTweet/internal/mq"
	"github.com/shaiso/SmartTweet/internal/repo"
	"github.com/shaiso/SmartTweet/internal/twitter"
)

// OpenStore открывает хранилище записей.
// Для Postgres дополнительно возвращает пул (нужен advisory lock); для SQLite пул nil.
func OpenStore(ctx context.Context, cfg config.DBConfig) (repo.PostStore, *pgxpool.Pool, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := repo.NewPool(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewPostRepo(pool), pool, nil
	default:
		store, err := repo.OpenSQLite(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

// NewEnhancer создаёт Enhancer. Без API-ключа работают только шаблонные варианты опроса.
func NewEnhancer(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (*brain.Enhancer, error) {
	if cfg.APIKey() == "" {
		logger.Warn("ai api key not set, content enhancement disabled", "provider", cfg.Provider)
		return brain.New(brain.Config{Logger: logger}), nil
	}

	gen, err := brain.NewGenerator(ctx, cfg.Provider, cfg.APIKey(), cfg.Model())
	if err != nil {
		return nil, fmt.Errorf("ai generator: %w", err)
	}
	logger.Info("ai generator ready", "provider", cfg.Provider, "model", cfg.Model())

	return brain.New(brain.Config{Generator: gen, Logger: logger}), nil
}

// NewPublisher создаёт клиент X API.
func NewPublisher(cfg config.TwitterConfig, logger *slog.Logger) *twitter.Client {
	if cfg.BearerToken == "" {
		logger.Warn("twitter bearer token not set, publishing will fail")
	}
	return twitter.NewClient(twitter.Config{
		BaseURL: cfg.APIURL,
		Tokens:  twitter.StaticToken(cfg.BearerToken),
		Logger:  logger,
	})
}

// NewLocker выбирает блокировку записей: Redis, если задан адрес, иначе в памяти.
// Возвращаемая функция закрывает клиент Redis.
func NewLocker(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (executor.Locker, func() error, error) {
	if cfg.Addr == "" {
		logger.Info("redis not configured, using in-process post locks")
		return executor.NewLocalLocker(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis connected", "addr", cfg.Addr)

	return executor.NewRedisLocker(client, cfg.LockTTL), client.Close, nil
}

// ConnectEvents подключается к RabbitMQ и объявляет топологию.
// Пустой URL — события отключены, возвращаются nil.
func ConnectEvents(ctx context.Context, cfg config.RabbitMQConfig, name string, logger *slog.Logger) (*mq.Connection, *mq.EventPublisher, error) {
	if cfg.URL == "" {
		logger.Info("RABBITMQ_URL not set, lifecycle events disabled")
		return nil, nil, nil
	}

	conn, err := mq.NewConnection(mq.ConnectionConfig{URL: cfg.URL, Name: name}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq topology: %w", err)
	}
	logger.Info("rabbitmq connected")

	return conn, mq.NewEventPublisher(mq.NewPublisher(conn, logger), logger), nil
}

// HealthCheck возвращает ошибку, если зависимость недоступна.
type HealthCheck func() error

// OpsMux возвращает mux с /healthz и /metrics.
// Если любая из checks возвращает ошибку, /healthz отвечает 503.
func OpsMux(startTime time.Time, checks ...HealthCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		for _, check := range checks {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, "unhealthy: %v", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Serve слушает addr до отмены ctx, затем останавливает сервер за 10 секунд.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
