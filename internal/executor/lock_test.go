package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	unlock, err := l.Lock(ctx, "post:1")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := l.Lock(ctx, "post:1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if _, err := l.Lock(ctx, "post:2"); err != nil {
		t.Fatalf("other key must be free: %v", err)
	}

	unlock(ctx)
	if _, err := l.Lock(ctx, "post:1"); err != nil {
		t.Errorf("lock after unlock: %v", err)
	}
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, time.Minute), mr
}

func TestRedisLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLocker(t)

	unlock, err := l.Lock(ctx, "post:1")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if !mr.Exists(defaultLockPrefix + "post:1") {
		t.Fatal("lock key must exist in redis")
	}
	if _, err := l.Lock(ctx, "post:1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if mr.Exists(defaultLockPrefix + "post:1") {
		t.Error("unlock must delete the key")
	}
}

func TestRedisLocker_ExpiredLockNotStolenBack(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLocker(t)

	staleUnlock, err := l.Lock(ctx, "post:2")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := l.Lock(ctx, "post:2"); err != nil {
		t.Fatalf("lock after ttl expiry: %v", err)
	}

	// Старый владелец не должен снять чужую блокировку
	if err := staleUnlock(ctx); err != nil {
		t.Fatalf("stale unlock: %v", err)
	}
	if !mr.Exists(defaultLockPrefix + "post:2") {
		t.Error("stale unlock removed a lock held by another owner")
	}
}

func TestRedisLocker_ServerDown(t *testing.T) {
	l, mr := newRedisLocker(t)
	mr.Close()

	if _, err := l.Lock(context.Background(), "post:3"); err == nil || errors.Is(err, ErrLocked) {
		t.Errorf("expected connection error, got %v", err)
	}
}
