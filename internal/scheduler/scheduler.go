package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/SmartTweet/internal/domain"
	"github.com/shaiso/SmartTweet/internal/executor"
	"github.com/shaiso/SmartTweet/internal/telemetry"
)

// ErrCycleInProgress возвращается Tick, если предыдущий цикл ещё идёт.
var ErrCycleInProgress = errors.New("scan cycle already in progress")

// DueLister — выборка записей, которым пора публиковаться.
type DueLister interface {
	GetDue(ctx context.Context, now time.Time) ([]domain.Post, error)
}

// Processor — выполнение одной попытки публикации.
type Processor interface {
	Process(ctx context.Context, post *domain.Post) (*executor.Outcome, error)
}

// Leader — блокировка лидера. Сканирует только процесс, владеющий ей.
type Leader interface {
	TryAcquire(ctx context.Context) (bool, error)
}

// Scheduler — периодический сканер due-записей.
type Scheduler struct {
	store    DueLister
	executor Processor
	leader   Leader
	cadence  string
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// Config — конфигурация Scheduler.
type Config struct {
	Store    DueLister
	Executor Processor

	// Leader (опционально). Если nil, процесс всегда считается лидером.
	Leader Leader

	// Cadence — расписание циклов (default: "@every 1m").
	Cadence string

	Logger *slog.Logger

	// Now (опционально; для тестов)
	Now func() time.Time
}

// Stats — итог одного цикла.
type Stats struct {
	Due     int
	Posted  int
	Failed  int
	Skipped int
	Errors  int
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	cadence := cfg.Cadence
	if cadence == "" {
		cadence = DefaultCadence
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		store:    cfg.Store,
		executor: cfg.Executor,
		leader:   cfg.Leader,
		cadence:  cadence,
		logger:   logger,
		now:      now,
	}
}

// Tick выполняет один цикл сканирования.
//
// 1. Проверяет, что процесс — лидер
// 2. Находит due-записи
// 3. Для каждой вызывает executor
//
// Ошибка одной записи не блокирует обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) (*Stats, error) {
	if !s.mu.TryLock() {
		telemetry.ScanCycles.WithLabelValues("overlap").Inc()
		return nil, ErrCycleInProgress
	}
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		telemetry.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	stats := &Stats{}

	if s.leader != nil {
		ok, err := s.leader.TryAcquire(ctx)
		if err != nil {
			telemetry.ScanCycles.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("acquire leader lock: %w", err)
		}
		if !ok {
			s.logger.Debug("not a leader, skipping scan cycle")
			telemetry.ScanCycles.WithLabelValues("skipped").Inc()
			return stats, nil
		}
	}

	now := s.now().UTC()

	posts, err := s.store.GetDue(ctx, now)
	if err != nil {
		telemetry.ScanCycles.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list due posts: %w", err)
	}

	stats.Due = len(posts)
	telemetry.DuePosts.Set(float64(len(posts)))

	if len(posts) == 0 {
		telemetry.ScanCycles.WithLabelValues("ok").Inc()
		return stats, nil
	}

	s.logger.Debug("found due posts", "count", len(posts))

	for i := range posts {
		if ctx.Err() != nil {
			break
		}
		s.processPost(ctx, &posts[i], stats)
	}

	s.logger.Info("scan cycle completed",
		"due", stats.Due,
		"posted", stats.Posted,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)

	telemetry.ScanCycles.WithLabelValues("ok").Inc()
	return stats, nil
}

// processPost обрабатывает одну запись и обновляет счётчики цикла.
func (s *Scheduler) processPost(ctx context.Context, post *domain.Post, stats *Stats) {
	outcome, err := s.executor.Process(ctx, post)
	if err != nil {
		s.logger.Error("failed to process post",
			"post_id", post.ID,
			"owner_id", post.OwnerID,
			"error", err,
		)
		stats.Errors++
		return
	}

	switch {
	case outcome.Skipped:
		stats.Skipped++
	case outcome.Status == domain.PostStatusPosted:
		stats.Posted++
	default:
		stats.Failed++
	}
}

// Run запускает циклы по расписанию и блокируется до отмены ctx.
// Первый цикл выполняется сразу. После отмены дожидается текущего цикла.
func (s *Scheduler) Run(ctx context.Context) error {
	schedule, err := ParseCadence(s.cadence)
	if err != nil {
		return err
	}

	s.runCycle(ctx)

	c := cron.New(
		cron.WithLogger(cronLogger(s.logger)),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger(s.logger))),
	)
	c.Schedule(schedule, cron.FuncJob(func() { s.runCycle(ctx) }))
	c.Start()

	s.logger.Info("scheduler started", "cadence", s.cadence)

	<-ctx.Done()

	s.logger.Info("scheduler stopping, waiting for running cycle")
	<-c.Stop().Done()

	return nil
}

// runCycle — Tick с логированием ошибок.
func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Tick(ctx); err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			s.logger.Warn("previous scan cycle still running, skipping")
			return
		}
		s.logger.Error("scan cycle failed", "error", err)
	}
}
