package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/SmartTweet/internal/domain"
	"github.com/shaiso/SmartTweet/internal/repo"
	"github.com/shaiso/SmartTweet/internal/telemetry"
)

// HeaderOwnerID — заголовок с ID владельца.
// Аутентификация вне сервиса: шлюз проставляет заголовок после проверки сессии.
const HeaderOwnerID = "X-Owner-ID"

// HeaderRequestID — заголовок корреляции запросов.
const HeaderRequestID = "X-Request-ID"

// Middleware — функция-обёртка для http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain применяет middleware в порядке слева направо.
// Chain(m1, m2)(handler) = m1(m2(handler))
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// RequestID присваивает запросу ID и кладёт в контекст логгер с ним.
func RequestID(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			ctx := telemetry.WithLogger(r.Context(), logger.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logging логирует HTTP запросы и считает их в метриках.
func Logging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			telemetry.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rw.status)).Inc()
			telemetry.FromContext(r.Context()).Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// Recovery восстанавливается после паники.
func Recovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"stack", string(debug.Stack()),
						"path", r.URL.Path,
					)
					InternalError(w, logger, nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// OwnerLookup загружает владельца по ID.
type OwnerLookup func(ctx context.Context, id int64) (*domain.Owner, error)

type ownerKey struct{}

// Owner требует X-Owner-ID существующего владельца.
// Нет заголовка, он некорректен или владелец неизвестен — 401.
func Owner(lookup OwnerLookup) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderOwnerID)
			if raw == "" {
				Unauthorized(w, "missing "+HeaderOwnerID+" header")
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				Unauthorized(w, "invalid "+HeaderOwnerID+" header")
				return
			}

			owner, err := lookup(r.Context(), id)
			if errors.Is(err, repo.ErrNotFound) {
				Unauthorized(w, "unknown owner")
				return
			}
			if err != nil {
				InternalError(w, telemetry.FromContext(r.Context()), err)
				return
			}

			ctx := context.WithValue(r.Context(), ownerKey{}, owner.ID)
			ctx = telemetry.WithLogger(ctx, telemetry.FromContext(ctx).With("owner_id", owner.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ownerID возвращает ID владельца, проставленный Owner.
func ownerID(r *http.Request) int64 {
	id, _ := r.Context().Value(ownerKey{}).(int64)
	return id
}

// responseWriter — обёртка для захвата статуса ответа.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
