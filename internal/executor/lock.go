package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked — запись уже обрабатывается другим исполнителем.
var ErrLocked = errors.New("post is already being processed")

// Unlock снимает блокировку записи.
type Unlock func(ctx context.Context) error

// Locker гарантирует не более одной попытки публикации записи одновременно.
//
// Реализации: LocalLocker (в пределах процесса) и RedisLocker (между процессами).
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// LocalLocker — блокировки в памяти процесса.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker создаёт LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Lock захватывает key или возвращает ErrLocked.
func (l *LocalLocker) Lock(_ context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}

	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		return nil
	}, nil
}

const (
	defaultLockTTL    = 2 * time.Minute
	defaultLockPrefix = "smarttweet:lock:"
)

// unlockScript удаляет ключ, только если он всё ещё принадлежит владельцу токена.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker — блокировки через SET NX PX.
//
// TTL ограничивает время удержания, если процесс упал посреди публикации.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisLocker создаёт RedisLocker. ttl <= 0 — значение по умолчанию (2m).
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, prefix: defaultLockPrefix}
}

// Lock захватывает key или возвращает ErrLocked.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		if err := unlockScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("redis unlock %s: %w", fullKey, err)
		}
		return nil
	}, nil
}

// lockKey — ключ блокировки записи.
func lockKey(postID int64) string {
	return fmt.Sprintf("post:%d", postID)
}
