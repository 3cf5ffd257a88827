package domain

import "time"

// Owner — владелец записей. Аутентификация вне этого пакета,
// здесь только идентичность для проверки прав.
type Owner struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
