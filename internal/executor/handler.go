package executor

import (
	"context"
	"fmt"

	"github.com/shaiso/SmartTweet/internal/domain"
)

// Publisher — клиент социальной платформы.
type Publisher interface {
	PublishPost(ctx context.Context, content string, ownerID int64) (string, error)
	PublishPoll(ctx context.Context, question string, options []string, durationMinutes int, ownerID int64) (string, error)
}

// ContentEnhancer генерирует варианты опроса по вопросу.
// Никогда не возвращает ошибку: при сбое AI отдаёт варианты по шаблонам.
type ContentEnhancer interface {
	ExtractOptions(ctx context.Context, question string, ownerID int64) []string
}

// Handler — публикация одного типа записи.
//
// Реализации: PlainHandler, PollHandler.
type Handler interface {
	Execute(ctx context.Context, post *domain.Post) (*Result, error)
}

// Result — результат успешной публикации.
type Result struct {
	// ReceiptID — идентификатор, выданный платформой.
	ReceiptID string

	// Options — варианты, с которыми опубликован опрос.
	Options []string
}

// Registry — реестр обработчиков по типу записи.
type Registry struct {
	handlers map[domain.PostKind]Handler
}

// NewRegistry создаёт реестр с обработчиками post и poll.
func NewRegistry(publisher Publisher, enhancer ContentEnhancer) *Registry {
	r := &Registry{handlers: make(map[domain.PostKind]Handler)}
	r.Register(domain.KindPlain, &PlainHandler{Publisher: publisher})
	r.Register(domain.KindPoll, &PollHandler{Publisher: publisher, Enhancer: enhancer})
	return r
}

// Register добавляет обработчик для типа.
func (r *Registry) Register(kind domain.PostKind, h Handler) {
	r.handlers[kind] = h
}

// Get возвращает обработчик для типа.
func (r *Registry) Get(kind domain.PostKind) (Handler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown post kind %q", domain.ErrValidation, kind)
	}
	return h, nil
}

// PlainHandler публикует обычный пост.
type PlainHandler struct {
	Publisher Publisher
}

// Execute публикует content от имени владельца.
func (h *PlainHandler) Execute(ctx context.Context, post *domain.Post) (*Result, error) {
	receipt, err := h.Publisher.PublishPost(ctx, post.Content, post.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPublish, err)
	}
	return &Result{ReceiptID: receipt}, nil
}

// PollHandler публикует опрос.
//
// Варианты берутся из PreviewOptions, затем из Options,
// а если оба пусты — запрашиваются у ContentEnhancer.
// Количество вариантов вне 2..4 — ошибка валидации, варианты не обрезаются.
type PollHandler struct {
	Publisher Publisher
	Enhancer  ContentEnhancer
}

// Execute публикует опрос.
func (h *PollHandler) Execute(ctx context.Context, post *domain.Post) (*Result, error) {
	meta := post.Metadata.PollMeta()

	options := meta.ResolvedOptions()
	if len(options) == 0 && h.Enhancer != nil {
		options = h.Enhancer.ExtractOptions(ctx, post.Content, post.OwnerID)
	}

	if !domain.ValidPollOptionCount(len(options)) {
		return nil, fmt.Errorf("%w: poll needs %d-%d options, got %d",
			domain.ErrValidation, domain.MinPollOptions, domain.MaxPollOptions, len(options))
	}

	receipt, err := h.Publisher.PublishPoll(ctx, post.Content, options, meta.Duration(), post.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPublish, err)
	}
	return &Result{ReceiptID: receipt, Options: options}, nil
}
