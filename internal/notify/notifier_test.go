package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shaiso/SmartTweet/internal/mq"
)

func delivery(t *testing.T, typ mq.MessageType, payload mq.PostEventPayload) *mq.Delivery {
	t.Helper()
	// Конверт проходит через JSON, как при доставке из брокера.
	body, err := json.Marshal(mq.Message{ID: "m-1", Type: typ, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var msg mq.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &mq.Delivery{Message: msg}
}

func TestHandle_ForwardsFailedEvent(t *testing.T) {
	var got Event
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := New(Config{WebhookURL: server.URL})
	err := n.Handle(context.Background(), delivery(t, mq.MessageTypePostFailed, mq.PostEventPayload{
		PostID: 5, OwnerID: 2, Kind: "poll", Status: "failed", Error: "poll needs 2-4 options, got 1",
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected 1 webhook call, got %d", calls)
	}
	if got.Type != mq.MessageTypePostFailed || got.Post.PostID != 5 || got.Post.Error == "" {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestHandle_IgnoresUnselectedTypes(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	n := New(Config{WebhookURL: server.URL})
	if err := n.Handle(context.Background(), delivery(t, mq.MessageTypePostScheduled, mq.PostEventPayload{PostID: 1})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if calls != 0 {
		t.Errorf("post.scheduled is not forwarded by default")
	}
}

func TestHandle_WebhookErrorRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := New(Config{WebhookURL: server.URL})
	if err := n.Handle(context.Background(), delivery(t, mq.MessageTypePostPosted, mq.PostEventPayload{PostID: 1})); err == nil {
		t.Error("webhook failure must be returned so the message is redelivered")
	}
}

func TestHandle_NoWebhookLogsOnly(t *testing.T) {
	n := New(Config{Types: []mq.MessageType{mq.MessageTypePostCancelled}})
	if err := n.Handle(context.Background(), delivery(t, mq.MessageTypePostCancelled, mq.PostEventPayload{PostID: 1})); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
