// Package repo — хранилище отложенных публикаций.
//
// Структура:
//   - store.go         — интерфейс PostStore, фильтры, кодек metadata
//   - post_repo.go     — реализация на PostgreSQL (pgxpool)
//   - sqlite_repo.go   — реализация на SQLite (database/sql + go-sqlite3)
//   - migrate.go       — упорядоченные миграции и журнал migrations
//   - advisory_lock.go — pg_try_advisory_lock для выбора лидера планировщика
//   - db.go            — создание пула PostgreSQL
//
// Выборка GetDue: status = 'pending', is_immediate = false,
// scheduled_time <= now, ORDER BY scheduled_time, id.
//
// Ошибки драйвера оборачиваются в domain.ErrStorage.
// Отсутствие записи — ErrNotFound.
package repo
