// Package domain содержит модель отложенных публикаций.
//
//   - post.go   — Post, Metadata (вариант по типу), PollMetadata
//   - status.go — PostStatus, PostKind
//   - errors.go — таксономия ошибок (validation, forbidden, publish, storage)
//
// Пакет не зависит от хранилища и транспорта. Сериализация Metadata
// выполняется только на границе хранилища (internal/repo).
package domain
