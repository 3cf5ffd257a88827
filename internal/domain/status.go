package domain

// PostStatus — статус отложенной публикации.
//
// Жизненный цикл:
//
//	pending → posted
//	        ↘ failed    (reset через Edit → обратно в pending)
//	        ↘ cancelled (только из pending)
type PostStatus string

const (
	// PostStatusPending — запись ждёт своего времени публикации.
	PostStatusPending PostStatus = "pending"

	// PostStatusPosted — публикация прошла успешно.
	PostStatusPosted PostStatus = "posted"

	// PostStatusFailed — попытка публикации завершилась ошибкой.
	// Автоматического retry нет.
	PostStatusFailed PostStatus = "failed"

	// PostStatusCancelled — запись отменена владельцем до публикации.
	PostStatusCancelled PostStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный для сканера.
func (s PostStatus) IsTerminal() bool {
	switch s {
	case PostStatusPosted, PostStatusFailed, PostStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid сообщает, известен ли статус.
func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusPending, PostStatusPosted, PostStatusFailed, PostStatusCancelled:
		return true
	default:
		return false
	}
}

// Deletable — можно ли удалить запись навсегда.
func (s PostStatus) Deletable() bool {
	return s == PostStatusPending || s == PostStatusCancelled
}

// String возвращает строковое представление PostStatus.
func (s PostStatus) String() string {
	return string(s)
}

// PostKind — тип публикации.
type PostKind string

const (
	// KindPlain — обычный текстовый пост.
	KindPlain PostKind = "post"

	// KindPoll — опрос с 2-4 вариантами ответа.
	KindPoll PostKind = "poll"
)

// IsValid сообщает, известен ли тип.
func (k PostKind) IsValid() bool {
	return k == KindPlain || k == KindPoll
}

// String возвращает строковое представление PostKind.
func (k PostKind) String() string {
	return string(k)
}
