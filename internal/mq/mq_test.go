package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/SmartTweet/internal/domain"
)

// --- Test helpers ---

type sent struct {
	exchange   Exchange
	routingKey RoutingKey
	msg        *Message
}

type fakeSender struct {
	sent []sent
	err  error
}

func (s *fakeSender) Publish(_ context.Context, exchange Exchange, key RoutingKey, msg *Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{exchange, key, msg})
	return nil
}

type fakeAcknowledger struct {
	acked    int
	nacked   int
	requeued bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error { a.acked++; return nil }

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(uint64, bool) error { return nil }

func delivery(t *testing.T, ack amqp.Acknowledger, msg Message, redelivered bool) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body, Redelivered: redelivered}
}

func samplePost() *domain.Post {
	posted := time.Date(2025, 3, 10, 12, 1, 0, 0, time.UTC)
	return &domain.Post{
		ID:          42,
		OwnerID:     7,
		Content:     "hello",
		Kind:        domain.KindPlain,
		Status:      domain.PostStatusPosted,
		ScheduledAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		PostedAt:    &posted,
	}
}

// --- Tests ---

func TestEventPublisher_RoutesByType(t *testing.T) {
	sender := &fakeSender{}
	p := NewEventPublisher(sender, nil)
	ctx := context.Background()
	post := samplePost()

	if err := p.PostPublished(ctx, post, "tweet-1"); err != nil {
		t.Fatalf("PostPublished: %v", err)
	}
	p.PostFailed(ctx, post)
	p.PostScheduled(ctx, post)
	p.PostCancelled(ctx, post)

	want := []struct {
		key RoutingKey
		typ MessageType
	}{
		{RoutingKeyPosted, MessageTypePostPosted},
		{RoutingKeyFailed, MessageTypePostFailed},
		{RoutingKeyScheduled, MessageTypePostScheduled},
		{RoutingKeyCancelled, MessageTypePostCancelled},
	}
	if len(sender.sent) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(sender.sent))
	}
	for i, w := range want {
		got := sender.sent[i]
		if got.exchange != ExchangePosts || got.routingKey != w.key || got.msg.Type != w.typ {
			t.Errorf("message %d: got %s/%s %s", i, got.exchange, got.routingKey, got.msg.Type)
		}
		if got.msg.ID == "" {
			t.Errorf("message %d: empty id", i)
		}
	}

	payload := sender.sent[0].msg.Payload.(PostEventPayload)
	if payload.PostID != 42 || payload.OwnerID != 7 || payload.ReceiptID != "tweet-1" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestEventPublisher_SenderError(t *testing.T) {
	p := NewEventPublisher(&fakeSender{err: errors.New("broker down")}, nil)
	if err := p.PostFailed(context.Background(), samplePost()); err == nil {
		t.Error("expected sender error")
	}
}

func TestParsePayload(t *testing.T) {
	sender := &fakeSender{}
	NewEventPublisher(sender, nil).PostPublished(context.Background(), samplePost(), "r-9")

	// Конверт проходит через JSON, как при доставке из брокера.
	body, _ := json.Marshal(sender.sent[0].msg)
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	payload, err := ParsePayload[PostEventPayload](&msg)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if payload.PostID != 42 || payload.ReceiptID != "r-9" || payload.PostedAt == nil {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestHandleDelivery(t *testing.T) {
	msg := Message{ID: "m-1", Type: MessageTypePostFailed, Payload: map[string]any{"post_id": 1}}
	handlerErr := errors.New("webhook down")

	tests := []struct {
		name        string
		handlerErr  error
		redelivered bool
		wantAck     bool
		wantRequeue bool
	}{
		{"success", nil, false, true, false},
		{"first failure requeued", handlerErr, false, false, true},
		{"second failure dead-lettered", handlerErr, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Delivery
			c := NewConsumer(nil, nil, ConsumerConfig{
				Queue: QueuePostEvents,
				Handler: func(_ context.Context, d *Delivery) error {
					got = d
					return tt.handlerErr
				},
			})

			ack := &fakeAcknowledger{}
			c.handleDelivery(context.Background(), delivery(t, ack, msg, tt.redelivered))

			if got == nil || got.Message.ID != "m-1" {
				t.Fatalf("handler not called with message: %+v", got)
			}
			if tt.wantAck && ack.acked != 1 {
				t.Errorf("expected ack")
			}
			if !tt.wantAck && (ack.nacked != 1 || ack.requeued != tt.wantRequeue) {
				t.Errorf("expected nack requeue=%v, got nacked=%d requeue=%v", tt.wantRequeue, ack.nacked, ack.requeued)
			}
		})
	}
}

func TestHandleDelivery_InvalidBody(t *testing.T) {
	called := false
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue:   QueuePostEvents,
		Handler: func(context.Context, *Delivery) error { called = true; return nil },
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	if called {
		t.Error("handler must not be called for invalid body")
	}
	if ack.nacked != 1 || ack.requeued {
		t.Error("invalid body must go to DLQ without requeue")
	}
}

func TestBindings(t *testing.T) {
	got := bindings()
	if len(got) != len(EventRoutingKeys)+1 {
		t.Fatalf("unexpected bindings %v", got)
	}
	for i, key := range EventRoutingKeys {
		if got[i].queue != QueuePostEvents || got[i].routingKey != key || got[i].exchange != ExchangePosts {
			t.Errorf("binding %d: %+v", i, got[i])
		}
	}
	if last := got[len(got)-1]; last.queue != QueueDLQPosts || last.exchange != ExchangeDLQ {
		t.Errorf("unexpected dlq binding %+v", last)
	}
}
