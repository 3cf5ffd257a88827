package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		RequestID(h.logger),
		Logging(),
	)

	// Маршруты записей требуют X-Owner-ID
	owned := Chain(chain, Owner(h.posts.GetOwner))

	// Owners
	mux.Handle("POST /api/v1/owners", chain(http.HandlerFunc(h.CreateOwner)))

	// Posts
	mux.Handle("GET /api/v1/posts", owned(http.HandlerFunc(h.ListPosts)))
	mux.Handle("POST /api/v1/posts", owned(http.HandlerFunc(h.SchedulePost)))
	mux.Handle("POST /api/v1/posts/now", owned(http.HandlerFunc(h.PostNow)))
	mux.Handle("POST /api/v1/posts/preview", owned(http.HandlerFunc(h.PreviewPost)))
	mux.Handle("GET /api/v1/posts/stats", owned(http.HandlerFunc(h.GetStats)))
	mux.Handle("GET /api/v1/posts/{id}", owned(http.HandlerFunc(h.GetPost)))
	mux.Handle("PUT /api/v1/posts/{id}", owned(http.HandlerFunc(h.UpdatePost)))
	mux.Handle("POST /api/v1/posts/{id}/cancel", owned(http.HandlerFunc(h.CancelPost)))
	mux.Handle("DELETE /api/v1/posts/{id}", owned(http.HandlerFunc(h.DeletePost)))
}
