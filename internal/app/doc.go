// Package app собирает зависимости бинарников SmartTweet из config.Config.
//
// Каждая функция отвечает за один внешний ресурс (хранилище, ИИ,
// X API, Redis, RabbitMQ) и сама решает, что делать, если ресурс не
// настроен: работать без него или вернуть ошибку. OpsMux и Serve
// дают всем процессам одинаковые /healthz, /metrics и graceful shutdown.
package app
