package api

import (
	"time"

	"github.com/shaiso/SmartTweet/internal/domain"
	"github.com/shaiso/SmartTweet/internal/repo"
)

// Owner DTOs

// CreateOwnerRequest — регистрация владельца.
type CreateOwnerRequest struct {
	Username string `json:"username"`
}

// OwnerResponse — владелец.
type OwnerResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerFromDomain конвертирует domain.Owner в OwnerResponse.
func OwnerFromDomain(o *domain.Owner) OwnerResponse {
	return OwnerResponse{ID: o.ID, Username: o.Username, CreatedAt: o.CreatedAt}
}

// Post DTOs

// SchedulePostRequest — создание отложенной записи.
type SchedulePostRequest struct {
	Content         string    `json:"content"`
	Kind            string    `json:"kind,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Options         []string  `json:"options,omitempty"`
	PreviewOptions  []string  `json:"preview_options,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Enhance         bool      `json:"enhance,omitempty"`
}

// PostNowRequest — немедленная публикация.
type PostNowRequest struct {
	Content         string   `json:"content"`
	Kind            string   `json:"kind,omitempty"`
	Options         []string `json:"options,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	Enhance         bool     `json:"enhance,omitempty"`
}

// PreviewRequest — предпросмотр AI-улучшения.
type PreviewRequest struct {
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
}

// PreviewResponse — результат предпросмотра.
type PreviewResponse struct {
	Content  string   `json:"content"`
	Enhanced bool     `json:"enhanced"`
	Options  []string `json:"options,omitempty"`
}

// UpdatePostRequest — редактирование записи.
type UpdatePostRequest struct {
	Content         string    `json:"content"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Options         []string  `json:"options,omitempty"`
	PreviewOptions  []string  `json:"preview_options,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	ResetToPending  bool      `json:"reset_to_pending,omitempty"`
}

// PollResponse — параметры опроса.
type PollResponse struct {
	Options         []string `json:"options,omitempty"`
	PreviewOptions  []string `json:"preview_options,omitempty"`
	DurationMinutes int      `json:"duration_minutes"`
}

// PostResponse — запись.
type PostResponse struct {
	ID           int64         `json:"id"`
	OwnerID      int64         `json:"owner_id"`
	Content      string        `json:"content"`
	Kind         string        `json:"kind"`
	Status       string        `json:"status"`
	ScheduledAt  time.Time     `json:"scheduled_at"`
	CreatedAt    time.Time     `json:"created_at"`
	PostedAt     *time.Time    `json:"posted_at,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	IsImmediate  bool          `json:"is_immediate"`
	Poll         *PollResponse `json:"poll,omitempty"`
}

// PostFromDomain конвертирует domain.Post в PostResponse.
func PostFromDomain(p *domain.Post) PostResponse {
	resp := PostResponse{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Content:      p.Content,
		Kind:         string(p.Kind),
		Status:       string(p.Status),
		ScheduledAt:  p.ScheduledAt,
		CreatedAt:    p.CreatedAt,
		PostedAt:     p.PostedAt,
		ErrorMessage: p.ErrorMessage,
		IsImmediate:  p.IsImmediate,
	}
	if p.Kind == domain.KindPoll {
		meta := p.Metadata.PollMeta()
		resp.Poll = &PollResponse{
			Options:         meta.Options,
			PreviewOptions:  meta.PreviewOptions,
			DurationMinutes: meta.Duration(),
		}
	}
	return resp
}

// CancelResponse — результат отмены.
type CancelResponse struct {
	// Changed — false, если запись уже была отменена.
	Changed bool `json:"changed"`
}

// StatsResponse — количество записей по статусам.
type StatsResponse struct {
	Pending   int `json:"pending"`
	Posted    int `json:"posted"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// StatsFromCounts конвертирует repo.StatusCounts в StatsResponse.
func StatsFromCounts(c repo.StatusCounts) StatsResponse {
	return StatsResponse{
		Pending:   c.Pending,
		Posted:    c.Posted,
		Failed:    c.Failed,
		Cancelled: c.Cancelled,
		Total:     c.Total(),
	}
}
