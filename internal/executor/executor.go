package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/SmartTweet/internal/domain"
	"github.com/shaiso/SmartTweet/internal/repo"
	"github.com/shaiso/SmartTweet/internal/telemetry"
)

// Store — чтение записи под блокировкой и запись итогового статуса.
type Store interface {
	Get(ctx context.Context, id int64) (*domain.Post, error)
	SetStatus(ctx context.Context, id int64, status domain.PostStatus, errMsg string, postedAt *time.Time) (bool, error)
}

// Events получает события о завершённых попытках.
// Ошибки событий не влияют на статус записи.
type Events interface {
	PostPublished(ctx context.Context, post *domain.Post, receiptID string) error
	PostFailed(ctx context.Context, post *domain.Post) error
}

// Outcome — итог обработки одной записи.
type Outcome struct {
	PostID    int64
	Status    domain.PostStatus
	ReceiptID string

	// Err — причина неудачи, уже записанная в error_message.
	Err error

	// Skipped — попытки не было: запись обрабатывается кем-то ещё
	// или к моменту блокировки уже не ожидает публикации.
	Skipped bool
}

// Executor выполняет попытку публикации и записывает её итог.
//
// На каждую запись — ровно одна запись статуса: posted с posted_at
// или failed с сообщением. Ошибки публикации не пробрасываются наружу,
// возвращается только ошибка записи статуса.
//
// Переданная запись — снимок из выборки. Под блокировкой Executor
// перечитывает её и публикует свежую версию, только если она всё ещё
// pending и срок наступил.
type Executor struct {
	store    Store
	registry *Registry
	locker   Locker
	events   Events
	logger   *slog.Logger
	now      func() time.Time
}

// Config — конфигурация Executor.
type Config struct {
	Store    Store
	Registry *Registry

	// Locker (опционально; если nil — LocalLocker)
	Locker Locker

	// Events (опционально)
	Events Events

	Logger *slog.Logger

	// Now (опционально; для тестов)
	Now func() time.Time
}

// New создаёт новый Executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	locker := cfg.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Executor{
		store:    cfg.Store,
		registry: cfg.Registry,
		locker:   locker,
		events:   cfg.Events,
		logger:   logger,
		now:      now,
	}
}

// Publish выполняет публикацию без записи статуса.
// Используется для «опубликовать сейчас».
func (e *Executor) Publish(ctx context.Context, post *domain.Post) (*Result, error) {
	handler, err := e.registry.Get(post.Kind)
	if err != nil {
		return nil, err
	}
	return handler.Execute(ctx, post)
}

// Process выполняет попытку публикации записи и сохраняет итог.
func (e *Executor) Process(ctx context.Context, post *domain.Post) (*Outcome, error) {
	logger := telemetry.WithPost(e.logger, post.ID, post.OwnerID, string(post.Kind))
	outcome := &Outcome{PostID: post.ID}

	unlock, err := e.locker.Lock(ctx, lockKey(post.ID))
	if errors.Is(err, ErrLocked) {
		logger.Debug("post is locked by another executor, skipping")
		return e.skip(post, outcome), nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock post %d: %w", post.ID, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release post lock", "error", err)
		}
	}()

	fresh, err := e.store.Get(ctx, post.ID)
	if errors.Is(err, repo.ErrNotFound) {
		logger.Debug("post deleted before publish, skipping")
		return e.skip(post, outcome), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reload post %d: %w", post.ID, err)
	}
	if !fresh.IsDue(e.now()) {
		logger.Debug("post is no longer due, skipping", "status", fresh.Status)
		return e.skip(post, outcome), nil
	}
	*post = *fresh

	result, execErr := e.Publish(ctx, post)
	if execErr != nil {
		return e.fail(ctx, logger, post, outcome, execErr)
	}

	postedAt := e.now().UTC()
	if _, err := e.store.SetStatus(ctx, post.ID, domain.PostStatusPosted, "", &postedAt); err != nil {
		return nil, fmt.Errorf("mark post %d posted: %w", post.ID, err)
	}
	post.MarkPosted(postedAt)

	outcome.Status = domain.PostStatusPosted
	outcome.ReceiptID = result.ReceiptID
	telemetry.PublishAttempts.WithLabelValues(string(post.Kind), "posted").Inc()

	logger.Info("post published", "receipt_id", result.ReceiptID)

	if e.events != nil {
		if err := e.events.PostPublished(ctx, post, result.ReceiptID); err != nil {
			logger.Warn("failed to emit post.posted", "error", err)
		}
	}

	return outcome, nil
}

func (e *Executor) skip(post *domain.Post, outcome *Outcome) *Outcome {
	telemetry.PublishAttempts.WithLabelValues(string(post.Kind), "skipped").Inc()
	outcome.Skipped = true
	return outcome
}

// fail записывает failed и сообщение об ошибке.
func (e *Executor) fail(ctx context.Context, logger *slog.Logger, post *domain.Post, outcome *Outcome, cause error) (*Outcome, error) {
	msg := cause.Error()
	if _, err := e.store.SetStatus(ctx, post.ID, domain.PostStatusFailed, msg, nil); err != nil {
		return nil, fmt.Errorf("mark post %d failed: %w", post.ID, err)
	}
	post.MarkFailed(msg)

	outcome.Status = domain.PostStatusFailed
	outcome.Err = cause
	telemetry.PublishAttempts.WithLabelValues(string(post.Kind), "failed").Inc()

	logger.Error("post publish failed", "error", cause)

	if e.events != nil {
		if err := e.events.PostFailed(ctx, post); err != nil {
			logger.Warn("failed to emit post.failed", "error", err)
		}
	}

	return outcome, nil
}
