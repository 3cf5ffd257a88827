// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go      — Handler с DI (posts.Service, logger)
//   - routes.go       — регистрация маршрутов
//   - middleware.go   — middleware (recovery, request id, logging, owner)
//   - response.go     — унифицированные JSON-ответы и маппинг ошибок
//   - dto.go          — Data Transfer Objects (request/response)
//   - post_handler.go — обработчики для /owners и /posts
//
// Владелец передаётся в заголовке X-Owner-ID. Коды ошибок:
// 400 валидация, 401 нет владельца, 403 чужая запись, 404 не найдена,
// 422 недопустимый статус, 502 платформа отклонила публикацию.
package api
