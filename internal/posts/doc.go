// Package posts — операции владельца над публикациями: планирование,
// немедленная публикация, предпросмотр, редактирование, отмена, удаление.
//
// Service проверяет запросы (ozzo-validation), владельца и состояние записи,
// а решение о гонках оставляет хранилищу: изменения применяются только
// при status = 'pending' (или явном ResetToPending).
//
// Ошибки:
//   - domain.ErrValidation — некорректный запрос
//   - domain.ErrForbidden  — запись другого владельца
//   - repo.ErrNotFound     — записи нет
//   - repo.ErrInvalidState — операция недопустима в текущем статусе
//   - domain.ErrPublish    — PostNow: платформа отклонила публикацию
package posts
