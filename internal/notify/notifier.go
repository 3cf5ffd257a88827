package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/SmartTweet/internal/mq"
	"github.com/shaiso/SmartTweet/internal/telemetry"
)

// Event — тело запроса к webhook.
type Event struct {
	ID        string              `json:"id"`
	Type      mq.MessageType      `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Post      mq.PostEventPayload `json:"post"`
}

// Notifier пересылает события post.* во внешний webhook.
type Notifier struct {
	webhookURL string
	types      map[mq.MessageType]bool
	client     *http.Client
	logger     *slog.Logger
}

// Config — конфигурация Notifier.
type Config struct {
	WebhookURL string

	// Types — пересылаемые типы (default: post.failed и post.posted).
	Types []mq.MessageType

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New создаёт Notifier.
func New(cfg Config) *Notifier {
	types := cfg.Types
	if len(types) == 0 {
		types = []mq.MessageType{mq.MessageTypePostFailed, mq.MessageTypePostPosted}
	}
	set := make(map[mq.MessageType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		webhookURL: cfg.WebhookURL,
		types:      set,
		client:     client,
		logger:     logger,
	}
}

// Handle — mq.Handler. Ошибка webhook возвращается, и сообщение
// будет доставлено повторно.
func (n *Notifier) Handle(ctx context.Context, d *mq.Delivery) error {
	msg := d.Message
	if !n.types[msg.Type] {
		telemetry.NotificationsSent.WithLabelValues(string(msg.Type), "ignored").Inc()
		return nil
	}

	payload, err := mq.ParsePayload[mq.PostEventPayload](&msg)
	if err != nil {
		// Повтор не поможет: подтверждаем и забываем.
		n.logger.Error("invalid post event payload", "message_id", msg.ID, "error", err)
		telemetry.NotificationsSent.WithLabelValues(string(msg.Type), "invalid").Inc()
		return nil
	}

	logger := telemetry.WithPost(n.logger, payload.PostID, payload.OwnerID, payload.Kind)

	if n.webhookURL == "" {
		logger.Info("post event", "type", msg.Type, "status", payload.Status, "error_message", payload.Error)
		telemetry.NotificationsSent.WithLabelValues(string(msg.Type), "logged").Inc()
		return nil
	}

	if err := n.send(ctx, Event{ID: msg.ID, Type: msg.Type, Timestamp: msg.Timestamp, Post: payload}); err != nil {
		telemetry.NotificationsSent.WithLabelValues(string(msg.Type), "error").Inc()
		return err
	}

	logger.Debug("event forwarded to webhook", "type", msg.Type)
	telemetry.NotificationsSent.WithLabelValues(string(msg.Type), "sent").Inc()
	return nil
}

func (n *Notifier) send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
