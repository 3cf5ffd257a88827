package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shaiso/SmartTweet/internal/domain"
	"github.com/shaiso/SmartTweet/internal/posts"
	"github.com/shaiso/SmartTweet/internal/telemetry"
)

// CreateOwner регистрирует владельца.
// POST /api/v1/owners
func (h *Handler) CreateOwner(w http.ResponseWriter, r *http.Request) {
	var req CreateOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	owner, err := h.posts.CreateOwner(r.Context(), req.Username)
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	Created(w, OwnerFromDomain(owner))
}

// ListPosts возвращает записи владельца.
// GET /api/v1/posts?view=all|scheduled|pending|immediate&limit=...&offset=...
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, ok := queryInt(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(w, q.Get("offset"), "offset")
	if !ok {
		return
	}

	list, err := h.posts.List(r.Context(), ownerID(r), posts.ListOptions{
		View:   q.Get("view"),
		Limit:  limit,
		Offset: offset,
	})
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	result := make([]PostResponse, len(list))
	for i := range list {
		result[i] = PostFromDomain(&list[i])
	}

	List(w, result, len(result))
}

// SchedulePost создаёт отложенную запись.
// POST /api/v1/posts
func (h *Handler) SchedulePost(w http.ResponseWriter, r *http.Request) {
	var req SchedulePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	post, err := h.posts.Schedule(r.Context(), posts.ScheduleRequest{
		OwnerID:         ownerID(r),
		Content:         req.Content,
		Kind:            domain.PostKind(req.Kind),
		ScheduledAt:     req.ScheduledAt,
		Options:         req.Options,
		PreviewOptions:  req.PreviewOptions,
		DurationMinutes: req.DurationMinutes,
		Enhance:         req.Enhance,
	})
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	Created(w, PostFromDomain(post))
}

// PostNow публикует запись немедленно.
// POST /api/v1/posts/now
func (h *Handler) PostNow(w http.ResponseWriter, r *http.Request) {
	var req PostNowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	post, err := h.posts.PostNow(r.Context(), posts.PostNowRequest{
		OwnerID:         ownerID(r),
		Content:         req.Content,
		Kind:            domain.PostKind(req.Kind),
		Options:         req.Options,
		DurationMinutes: req.DurationMinutes,
		Enhance:         req.Enhance,
	})
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	Created(w, PostFromDomain(post))
}

// PreviewPost возвращает AI-улучшенный текст без сохранения.
// POST /api/v1/posts/preview
func (h *Handler) PreviewPost(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	res, err := h.posts.Preview(r.Context(), posts.PreviewRequest{
		OwnerID: ownerID(r),
		Content: req.Content,
		Kind:    domain.PostKind(req.Kind),
	})
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	Success(w, PreviewResponse{Content: res.Content, Enhanced: res.Enhanced, Options: res.Options})
}

// GetStats возвращает количество записей владельца по статусам.
// GET /api/v1/posts/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.posts.Stats(r.Context(), ownerID(r))
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	Success(w, StatsFromCounts(counts))
}

// GetPost возвращает запись по ID.
// GET /api/v1/posts/{id}
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	post, err := h.posts.Get(r.Context(), id, ownerID(r))
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	Success(w, PostFromDomain(post))
}

// UpdatePost редактирует запись.
// PUT /api/v1/posts/{id}
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	post, err := h.posts.Edit(r.Context(), id, ownerID(r), posts.EditRequest{
		Content:         req.Content,
		ScheduledAt:     req.ScheduledAt,
		Options:         req.Options,
		PreviewOptions:  req.PreviewOptions,
		DurationMinutes: req.DurationMinutes,
		ResetToPending:  req.ResetToPending,
	})
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	Success(w, PostFromDomain(post))
}

// CancelPost отменяет pending-запись.
// POST /api/v1/posts/{id}/cancel
func (h *Handler) CancelPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	changed, err := h.posts.Cancel(r.Context(), id, ownerID(r))
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	Success(w, CancelResponse{Changed: changed})
}

// DeletePost удаляет запись навсегда.
// DELETE /api/v1/posts/{id}
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.posts.DeletePermanently(r.Context(), id, ownerID(r))
	if HandleServiceError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	NoContent(w)
}

// pathID парсит {id}; при ошибке отвечает 400.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(w, "invalid post id")
		return 0, false
	}
	return id, true
}

// queryInt парсит необязательный числовой параметр; при ошибке отвечает 400.
func queryInt(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		BadRequest(w, "invalid "+name)
		return 0, false
	}
	return n, true
}
