// Package executor выполняет попытку публикации отложенной записи.
//
// Структура:
//   - handler.go  — Publisher, ContentEnhancer, Handler, Registry (post, poll)
//   - executor.go — Executor.Process: блокировка, публикация, запись статуса, события
//   - lock.go     — Locker: LocalLocker и RedisLocker (SET NX + Lua unlock)
//
// Разрешение вариантов опроса:
//
//	PreviewOptions → Options → ContentEnhancer.ExtractOptions
//
// Итоговое количество вне 2..4 переводит запись в failed с ошибкой валидации.
//
// Повторных попыток нет: failed остаётся failed, пока владелец
// не вернёт запись в pending через редактирование.
package executor
