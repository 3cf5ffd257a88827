package mq

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/SmartTweet/internal/domain"
)

// Sender — отправка сообщения в брокер. Реализуется Publisher.
type Sender interface {
	Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error
}

// PostEventPayload — payload всех событий post.*.
type PostEventPayload struct {
	PostID      int64      `json:"post_id"`
	OwnerID     int64      `json:"owner_id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Content     string     `json:"content"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	ReceiptID   string     `json:"receipt_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	IsImmediate bool       `json:"is_immediate,omitempty"`
}

// EventPublisher публикует события жизненного цикла записей
// в exchange smarttweet.posts.
type EventPublisher struct {
	sender Sender
	logger *slog.Logger
	now    func() time.Time
}

// NewEventPublisher создаёт EventPublisher.
func NewEventPublisher(sender Sender, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{sender: sender, logger: logger, now: time.Now}
}

// PostPublished — запись опубликована (потребитель: notifier).
func (p *EventPublisher) PostPublished(ctx context.Context, post *domain.Post, receiptID string) error {
	payload := payloadFromPost(post)
	payload.ReceiptID = receiptID
	return p.emit(ctx, MessageTypePostPosted, RoutingKeyPosted, payload)
}

// PostFailed — попытка публикации завершилась ошибкой.
func (p *EventPublisher) PostFailed(ctx context.Context, post *domain.Post) error {
	return p.emit(ctx, MessageTypePostFailed, RoutingKeyFailed, payloadFromPost(post))
}

// PostScheduled — создана отложенная запись.
func (p *EventPublisher) PostScheduled(ctx context.Context, post *domain.Post) error {
	return p.emit(ctx, MessageTypePostScheduled, RoutingKeyScheduled, payloadFromPost(post))
}

// PostCancelled — запись отменена владельцем.
func (p *EventPublisher) PostCancelled(ctx context.Context, post *domain.Post) error {
	return p.emit(ctx, MessageTypePostCancelled, RoutingKeyCancelled, payloadFromPost(post))
}

func (p *EventPublisher) emit(ctx context.Context, typ MessageType, key RoutingKey, payload PostEventPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      typ,
		Payload:   payload,
		Timestamp: p.now().UTC(),
	}
	if err := p.sender.Publish(ctx, ExchangePosts, key, msg); err != nil {
		return err
	}
	p.logger.Debug("post event emitted", "type", typ, "post_id", payload.PostID)
	return nil
}

func payloadFromPost(post *domain.Post) PostEventPayload {
	return PostEventPayload{
		PostID:      post.ID,
		OwnerID:     post.OwnerID,
		Kind:        string(post.Kind),
		Status:      string(post.Status),
		Content:     post.Content,
		ScheduledAt: post.ScheduledAt,
		PostedAt:    post.PostedAt,
		Error:       post.ErrorMessage,
		IsImmediate: post.IsImmediate,
	}
}
