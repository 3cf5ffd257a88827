package domain

import "errors"

// Таксономия ошибок планировщика публикаций.
//
// Ошибки оборачиваются через fmt.Errorf("%w: ...") и проверяются errors.Is.
var (
	// ErrValidation — некорректный ввод: время в прошлом, неверное
	// количество вариантов опроса, неизвестный тип.
	ErrValidation = errors.New("validation error")

	// ErrForbidden — операцию над записью пытается выполнить не владелец.
	ErrForbidden = errors.New("forbidden")

	// ErrPublish — платформа отклонила публикацию или недоступна.
	ErrPublish = errors.New("publish error")

	// ErrStorage — хранилище недоступно или нарушено ограничение.
	ErrStorage = errors.New("storage error")
)
