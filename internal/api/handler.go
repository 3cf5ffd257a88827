package api

import (
	"log/slog"

	"github.com/shaiso/SmartTweet/internal/posts"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	posts  *posts.Service
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Posts  *posts.Service
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		posts:  cfg.Posts,
		logger: logger,
	}
}
