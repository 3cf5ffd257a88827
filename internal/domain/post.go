package domain

import (
	"time"
	"unicode/utf8"
)

// Ограничения опросов платформы.
const (
	MinPollOptions = 2
	MaxPollOptions = 4

	// MaxPollOptionLen — максимальная длина варианта в символах.
	MaxPollOptionLen = 25

	// DefaultPollDuration — длительность опроса по умолчанию (24 часа).
	DefaultPollDuration = 1440

	MinPollDuration = 5
	MaxPollDuration = 10080
)

// Post — запись об отложенной (или мгновенной) публикации.
//
// Инварианты:
//   - PostedAt != nil тогда и только тогда, когда Status == posted
//   - ErrorMessage заполнен только после перехода в failed
//   - IsImmediate записи создаются сразу в posted и никогда не попадают в выборку сканера
type Post struct {
	// ID — назначается хранилищем, монотонно растёт в порядке вставки.
	ID int64 `json:"id"`

	// OwnerID — владелец записи.
	OwnerID int64 `json:"owner_id"`

	// Content — текст поста или вопрос опроса.
	Content string `json:"content"`

	// Kind — post или poll.
	Kind PostKind `json:"kind"`

	// ScheduledAt — момент, не раньше которого запись может быть опубликована (UTC).
	ScheduledAt time.Time `json:"scheduled_at"`

	// Status — текущее состояние.
	Status PostStatus `json:"status"`

	// Metadata — данные, специфичные для типа.
	Metadata Metadata `json:"metadata"`

	CreatedAt time.Time  `json:"created_at"`
	PostedAt  *time.Time `json:"posted_at,omitempty"`

	// ErrorMessage — причина последней неудачной попытки.
	ErrorMessage string `json:"error_message,omitempty"`

	// IsImmediate — запись создана через «опубликовать сейчас» и хранится как история.
	IsImmediate bool `json:"is_immediate"`
}

// IsDue сообщает, подходит ли запись под выборку сканера на момент now.
func (p *Post) IsDue(now time.Time) bool {
	return p.Status == PostStatusPending && !p.IsImmediate && !p.ScheduledAt.After(now)
}

// IsOwnedBy проверяет владельца.
func (p *Post) IsOwnedBy(ownerID int64) bool {
	return p.OwnerID == ownerID
}

// MarkPosted переводит запись в posted.
func (p *Post) MarkPosted(at time.Time) {
	p.Status = PostStatusPosted
	p.PostedAt = &at
	p.ErrorMessage = ""
}

// MarkFailed переводит запись в failed с причиной.
func (p *Post) MarkFailed(reason string) {
	p.Status = PostStatusFailed
	p.PostedAt = nil
	p.ErrorMessage = reason
}

// Metadata — вариантная часть записи, зависящая от Kind.
// Для обычных постов Poll == nil.
type Metadata struct {
	Poll *PollMetadata `json:"poll,omitempty"`
}

// PollMetadata — параметры опроса.
type PollMetadata struct {
	// Options — варианты, заданные пользователем.
	Options []string `json:"options,omitempty"`

	// PreviewOptions — варианты, предложенные AI и подтверждённые при предпросмотре.
	// Имеют приоритет над Options.
	PreviewOptions []string `json:"previewPollOptions,omitempty"`

	// DurationMinutes — длительность опроса; 0 означает DefaultPollDuration.
	DurationMinutes int `json:"durationMinutes,omitempty"`
}

// PollMeta возвращает метаданные опроса, никогда не nil.
func (m Metadata) PollMeta() PollMetadata {
	if m.Poll == nil {
		return PollMetadata{}
	}
	return *m.Poll
}

// ResolvedOptions возвращает варианты для публикации: сначала PreviewOptions,
// затем Options. Пустой результат означает, что варианты нужно сгенерировать.
func (m PollMetadata) ResolvedOptions() []string {
	if len(m.PreviewOptions) > 0 {
		return m.PreviewOptions
	}
	return m.Options
}

// Duration возвращает длительность опроса с учётом значения по умолчанию.
func (m PollMetadata) Duration() int {
	if m.DurationMinutes <= 0 {
		return DefaultPollDuration
	}
	return m.DurationMinutes
}

// ValidPollOptionCount проверяет допустимое количество вариантов.
func ValidPollOptionCount(n int) bool {
	return n >= MinPollOptions && n <= MaxPollOptions
}

// TruncateOption обрезает вариант до MaxPollOptionLen символов.
func TruncateOption(s string) string {
	if utf8.RuneCountInString(s) <= MaxPollOptionLen {
		return s
	}
	return string([]rune(s)[:MaxPollOptionLen])
}
