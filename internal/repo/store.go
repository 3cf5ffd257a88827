package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shaiso/SmartTweet/internal/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// PostStore — контракт хранилища отложенных публикаций.
//
// Реализации: PostRepo (PostgreSQL) и SQLiteRepo (SQLite).
// Операции, меняющие состояние, возвращают changed=false вместо ошибки,
// если запись не найдена или уже в неподходящем статусе.
type PostStore interface {
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Post, error)
	GetDue(ctx context.Context, now time.Time) ([]domain.Post, error)
	SetStatus(ctx context.Context, id int64, status domain.PostStatus, errMsg string, postedAt *time.Time) (bool, error)
	Update(ctx context.Context, id, ownerID int64, upd PostUpdate) (bool, error)
	Cancel(ctx context.Context, id, ownerID int64) (bool, error)
	Delete(ctx context.Context, id, ownerID int64) (bool, error)
	ListByOwner(ctx context.Context, ownerID int64, filter ListFilter) ([]domain.Post, error)
	CountByOwner(ctx context.Context, ownerID int64) (StatusCounts, error)

	CreateOwner(ctx context.Context, username string) (*domain.Owner, error)
	GetOwner(ctx context.Context, id int64) (*domain.Owner, error)

	Migrate(ctx context.Context) ([]string, error)
	Close() error
}

// PostUpdate — новые значения редактируемых полей.
type PostUpdate struct {
	Content     string
	ScheduledAt time.Time
	Metadata    domain.Metadata

	// ResetToPending возвращает запись в pending из любого статуса
	// и очищает error_message и posted_at.
	ResetToPending bool
}

// ListView — проекция списка записей владельца.
type ListView string

const (
	// ViewAll — вся история, новые сверху.
	ViewAll ListView = "all"

	// ViewScheduled — только отложенные записи (без мгновенных).
	ViewScheduled ListView = "scheduled"

	// ViewPending — ожидающие публикации, ближайшие сверху.
	ViewPending ListView = "pending"

	// ViewImmediate — опубликованные мгновенно.
	ViewImmediate ListView = "immediate"
)

// ParseListView парсит строку в ListView. Пустая строка — ViewAll.
func ParseListView(s string) (ListView, error) {
	switch ListView(s) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewScheduled, ViewPending, ViewImmediate:
		return ListView(s), nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", domain.ErrValidation, s)
	}
}

// ListFilter — параметры выборки списка.
type ListFilter struct {
	View   ListView
	Limit  int
	Offset int
}

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

func (f ListFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// viewClause возвращает условие и сортировку для проекции.
// Плейсхолдеры не используются, поэтому результат общий для обоих диалектов.
func viewClause(view ListView) (where, order string) {
	switch view {
	case ViewScheduled:
		return "AND is_immediate = false", "ORDER BY scheduled_time DESC, id DESC"
	case ViewPending:
		return "AND status = 'pending' AND is_immediate = false", "ORDER BY scheduled_time ASC, id ASC"
	case ViewImmediate:
		return "AND is_immediate = true", "ORDER BY posted_at DESC, id DESC"
	default:
		return "", "ORDER BY scheduled_time DESC, id DESC"
	}
}

// StatusCounts — количество записей владельца по статусам.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Posted    int `json:"posted"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Total — общее количество.
func (c StatusCounts) Total() int {
	return c.Pending + c.Posted + c.Failed + c.Cancelled
}

func (c *StatusCounts) add(status string, n int) {
	switch domain.PostStatus(status) {
	case domain.PostStatusPending:
		c.Pending += n
	case domain.PostStatusPosted:
		c.Posted += n
	case domain.PostStatusFailed:
		c.Failed += n
	case domain.PostStatusCancelled:
		c.Cancelled += n
	}
}

// --- Metadata codec ---

// encodeMetadata сериализует вариант метаданных в JSON-колонку.
// Для обычных постов хранится "{}".
func encodeMetadata(kind domain.PostKind, m domain.Metadata) ([]byte, error) {
	if kind != domain.KindPoll || m.Poll == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m.Poll)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

// decodeMetadata восстанавливает вариант по типу записи.
func decodeMetadata(kind domain.PostKind, data []byte) (domain.Metadata, error) {
	if kind != domain.KindPoll {
		return domain.Metadata{}, nil
	}
	var poll domain.PollMetadata
	if len(data) > 0 {
		if err := json.Unmarshal(data, &poll); err != nil {
			return domain.Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return domain.Metadata{Poll: &poll}, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
