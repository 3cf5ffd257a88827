package posts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shaiso/SmartTweet/internal/brain"
	"github.com/shaiso/SmartTweet/internal/domain"
	"github.com/shaiso/SmartTweet/internal/executor"
	"github.com/shaiso/SmartTweet/internal/repo"
	"github.com/shaiso/SmartTweet/internal/telemetry"
)

// Enhancer — AI-улучшение текста и генерация вариантов опроса.
type Enhancer interface {
	EnhanceContent(ctx context.Context, content string, ownerID int64) (string, error)
	ExtractOptions(ctx context.Context, question string, ownerID int64) []string
}

// Publisher — синхронная публикация без записи статуса (executor.Executor).
type Publisher interface {
	Publish(ctx context.Context, post *domain.Post) (*executor.Result, error)
}

// Events — события, которые порождает сервис (mq.EventPublisher).
type Events interface {
	PostScheduled(ctx context.Context, post *domain.Post) error
	PostCancelled(ctx context.Context, post *domain.Post) error
	PostPublished(ctx context.Context, post *domain.Post, receiptID string) error
}

// Service — операции владельца над отложенными публикациями.
type Service struct {
	store     repo.PostStore
	publisher Publisher
	enhancer  Enhancer
	events    Events
	logger    *slog.Logger
	now       func() time.Time
}

// Config — конфигурация Service.
type Config struct {
	Store repo.PostStore

	// Publisher нужен для PostNow.
	Publisher Publisher

	// Enhancer (опционально). Без него Enhance и Preview возвращают исходный текст.
	Enhancer Enhancer

	// Events (опционально)
	Events Events

	Logger *slog.Logger

	// Now (опционально; для тестов)
	Now func() time.Time
}

// NewService создаёт новый Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		enhancer:  cfg.Enhancer,
		events:    cfg.Events,
		logger:    logger,
		now:       now,
	}
}

// --- Requests ---

// ScheduleRequest — создание отложенной записи.
type ScheduleRequest struct {
	OwnerID     int64
	Content     string
	Kind        domain.PostKind
	ScheduledAt time.Time

	// Только для опросов
	Options         []string
	PreviewOptions  []string
	DurationMinutes int

	// Enhance — переписать текст через AI перед сохранением.
	Enhance bool
}

// PostNowRequest — немедленная публикация.
type PostNowRequest struct {
	OwnerID         int64
	Content         string
	Kind            domain.PostKind
	Options         []string
	DurationMinutes int
	Enhance         bool
}

// PreviewRequest — предпросмотр AI-улучшения.
type PreviewRequest struct {
	OwnerID int64
	Content string
	Kind    domain.PostKind
}

// PreviewResult — результат предпросмотра.
type PreviewResult struct {
	Content string

	// Enhanced — false, если AI недоступен и возвращён исходный текст.
	Enhanced bool

	// Options — предложенные варианты (только для опросов).
	// Клиент сохраняет их как previewPollOptions.
	Options []string
}

// EditRequest — редактирование записи.
type EditRequest struct {
	Content         string
	ScheduledAt     time.Time
	Options         []string
	PreviewOptions  []string
	DurationMinutes int

	// ResetToPending — вернуть failed/cancelled запись в очередь.
	ResetToPending bool
}

// ListOptions — параметры списка записей.
type ListOptions struct {
	View   string
	Limit  int
	Offset int
}

// --- Owners ---

// CreateOwner регистрирует владельца.
func (s *Service) CreateOwner(ctx context.Context, username string) (*domain.Owner, error) {
	if err := validateUsername(ctx, username); err != nil {
		return nil, err
	}
	return s.store.CreateOwner(ctx, username)
}

// GetOwner возвращает владельца по ID.
func (s *Service) GetOwner(ctx context.Context, id int64) (*domain.Owner, error) {
	return s.store.GetOwner(ctx, id)
}

// --- Posts ---

// Schedule создаёт pending-запись.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (*domain.Post, error) {
	if req.Kind == "" {
		req.Kind = domain.KindPlain
	}
	now := s.now().UTC()
	if err := validateSchedule(ctx, &req, now); err != nil {
		return nil, err
	}

	content := req.Content
	if req.Enhance {
		content = s.enhance(ctx, content, req.OwnerID)
	}

	post := &domain.Post{
		OwnerID:     req.OwnerID,
		Content:     content,
		Kind:        req.Kind,
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      domain.PostStatusPending,
		Metadata:    buildMetadata(req.Kind, req.Options, req.PreviewOptions, req.DurationMinutes),
		CreatedAt:   now,
	}

	if _, err := s.store.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	logger := telemetry.WithPost(s.logger, post.ID, post.OwnerID, string(post.Kind))
	logger.Info("post scheduled", "scheduled_at", post.ScheduledAt)

	if s.events != nil {
		if err := s.events.PostScheduled(ctx, post); err != nil {
			logger.Warn("failed to emit post.scheduled", "error", err)
		}
	}

	return post, nil
}

// PostNow публикует запись синхронно и сохраняет её как историю.
// При ошибке публикации ничего не сохраняется.
func (s *Service) PostNow(ctx context.Context, req PostNowRequest) (*domain.Post, error) {
	if req.Kind == "" {
		req.Kind = domain.KindPlain
	}
	if err := validatePostNow(ctx, &req); err != nil {
		return nil, err
	}
	if s.publisher == nil {
		return nil, fmt.Errorf("%w: publisher not configured", domain.ErrPublish)
	}

	content := req.Content
	if req.Enhance {
		content = s.enhance(ctx, content, req.OwnerID)
	}

	now := s.now().UTC()
	post := &domain.Post{
		OwnerID:     req.OwnerID,
		Content:     content,
		Kind:        req.Kind,
		ScheduledAt: now,
		Metadata:    buildMetadata(req.Kind, req.Options, nil, req.DurationMinutes),
		CreatedAt:   now,
		IsImmediate: true,
	}

	result, err := s.publisher.Publish(ctx, post)
	if err != nil {
		return nil, err
	}

	// В историю попадают варианты, с которыми опрос реально опубликован.
	if post.Kind == domain.KindPoll && len(result.Options) > 0 {
		post.Metadata.Poll.Options = result.Options
	}
	post.MarkPosted(now)

	if _, err := s.store.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("record immediate post: %w", err)
	}

	logger := telemetry.WithPost(s.logger, post.ID, post.OwnerID, string(post.Kind))
	logger.Info("post published immediately", "receipt_id", result.ReceiptID)

	if s.events != nil {
		if err := s.events.PostPublished(ctx, post, result.ReceiptID); err != nil {
			logger.Warn("failed to emit post.posted", "error", err)
		}
	}

	return post, nil
}

// Preview возвращает улучшенный текст и, для опросов, предложенные варианты.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	if req.Kind == "" {
		req.Kind = domain.KindPlain
	}
	if err := validatePreview(ctx, &req); err != nil {
		return nil, err
	}

	result := &PreviewResult{Content: req.Content}
	if s.enhancer == nil {
		return result, nil
	}

	enhanced, err := s.enhancer.EnhanceContent(ctx, req.Content, req.OwnerID)
	if err != nil {
		s.logger.Warn("content enhancement failed, returning original", "owner_id", req.OwnerID, "error", err)
		result.Content = fallbackContent(req.Content)
	} else {
		result.Content = enhanced
		result.Enhanced = true
	}

	if req.Kind == domain.KindPoll {
		options := s.enhancer.ExtractOptions(ctx, result.Content, req.OwnerID)
		if len(options) > domain.MaxPollOptions {
			options = options[:domain.MaxPollOptions]
		}
		for _, o := range options {
			result.Options = append(result.Options, domain.TruncateOption(o))
		}
	}

	return result, nil
}

// Edit меняет текст, время и варианты записи владельца.
// Без ResetToPending редактируется только pending-запись.
func (s *Service) Edit(ctx context.Context, id, ownerID int64, req EditRequest) (*domain.Post, error) {
	post, err := s.ownedPost(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if post.IsImmediate {
		return nil, fmt.Errorf("%w: immediate posts cannot be edited", repo.ErrInvalidState)
	}
	if err := validateEdit(ctx, &req, post.Kind, s.now().UTC()); err != nil {
		return nil, err
	}
	if !req.ResetToPending && post.Status != domain.PostStatusPending {
		return nil, fmt.Errorf("%w: post is %s", repo.ErrInvalidState, post.Status)
	}

	changed, err := s.store.Update(ctx, id, ownerID, repo.PostUpdate{
		Content:        req.Content,
		ScheduledAt:    req.ScheduledAt.UTC(),
		Metadata:       buildMetadata(post.Kind, req.Options, req.PreviewOptions, req.DurationMinutes),
		ResetToPending: req.ResetToPending,
	})
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if !changed {
		return nil, repo.ErrInvalidState
	}

	s.logger.Info("post edited", "post_id", id, "owner_id", ownerID, "reset", req.ResetToPending)
	return s.store.Get(ctx, id)
}

// Cancel отменяет pending-запись.
// Повторная отмена возвращает changed=false без ошибки.
func (s *Service) Cancel(ctx context.Context, id, ownerID int64) (bool, error) {
	post, err := s.ownedPost(ctx, id, ownerID)
	if err != nil {
		return false, err
	}

	switch post.Status {
	case domain.PostStatusCancelled:
		return false, nil
	case domain.PostStatusPending:
	default:
		return false, fmt.Errorf("%w: post is %s", repo.ErrInvalidState, post.Status)
	}

	changed, err := s.store.Cancel(ctx, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("cancel post: %w", err)
	}
	if !changed {
		// Кто-то успел раньше: executor или параллельная отмена.
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if current.Status == domain.PostStatusCancelled {
			return false, nil
		}
		return false, fmt.Errorf("%w: post is %s", repo.ErrInvalidState, current.Status)
	}

	post.Status = domain.PostStatusCancelled
	s.logger.Info("post cancelled", "post_id", id, "owner_id", ownerID)

	if s.events != nil {
		if err := s.events.PostCancelled(ctx, post); err != nil {
			s.logger.Warn("failed to emit post.cancelled", "post_id", id, "error", err)
		}
	}

	return true, nil
}

// DeletePermanently удаляет pending или cancelled запись.
func (s *Service) DeletePermanently(ctx context.Context, id, ownerID int64) error {
	post, err := s.ownedPost(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !post.Status.Deletable() {
		return fmt.Errorf("%w: post is %s", repo.ErrInvalidState, post.Status)
	}

	changed, err := s.store.Delete(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !changed {
		return repo.ErrInvalidState
	}

	s.logger.Info("post deleted", "post_id", id, "owner_id", ownerID)
	return nil
}

// Get возвращает запись владельца.
func (s *Service) Get(ctx context.Context, id, ownerID int64) (*domain.Post, error) {
	return s.ownedPost(ctx, id, ownerID)
}

// List возвращает записи владельца в выбранной проекции.
func (s *Service) List(ctx context.Context, ownerID int64, opts ListOptions) ([]domain.Post, error) {
	view, err := repo.ParseListView(opts.View)
	if err != nil {
		return nil, err
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrValidation)
	}
	return s.store.ListByOwner(ctx, ownerID, repo.ListFilter{View: view, Limit: opts.Limit, Offset: opts.Offset})
}

// Stats возвращает количество записей владельца по статусам.
func (s *Service) Stats(ctx context.Context, ownerID int64) (repo.StatusCounts, error) {
	return s.store.CountByOwner(ctx, ownerID)
}

// ownedPost загружает запись и проверяет владельца.
func (s *Service) ownedPost(ctx context.Context, id, ownerID int64) (*domain.Post, error) {
	post, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsOwnedBy(ownerID) {
		return nil, fmt.Errorf("%w: post %d belongs to another owner", domain.ErrForbidden, id)
	}
	return post, nil
}

// enhance возвращает улучшенный текст или исходный при ошибке AI.
func (s *Service) enhance(ctx context.Context, content string, ownerID int64) string {
	if s.enhancer == nil {
		return content
	}
	enhanced, err := s.enhancer.EnhanceContent(ctx, content, ownerID)
	if err != nil {
		s.logger.Warn("content enhancement failed, using original", "owner_id", ownerID, "error", err)
		return fallbackContent(content)
	}
	return enhanced
}

// fallbackContent — исходный текст без хвостовой метки времени.
// Если кроме метки ничего нет, текст остаётся как есть.
func fallbackContent(content string) string {
	if stripped := brain.StripTimestamp(content); strings.TrimSpace(stripped) != "" {
		return stripped
	}
	return content
}

func buildMetadata(kind domain.PostKind, options, preview []string, duration int) domain.Metadata {
	if kind != domain.KindPoll {
		return domain.Metadata{}
	}
	return domain.Metadata{Poll: &domain.PollMetadata{
		Options:         options,
		PreviewOptions:  preview,
		DurationMinutes: duration,
	}}
}
