// Package models содержит доменные структуры сайта подписок:
// пользователей админ-панели, подписчиков рассылки, посты блога,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// User представляет учётную запись админ-панели.
type User struct {
	UID                string    `json:"id"`                  // Уникальный идентификатор пользователя
	Username           string    `json:"username"`            // Имя пользователя (уникальное)
	PasswordHash       string    `json:"-"`                   // Хэш пароля, наружу не отдаётся
	Role               string    `json:"role"`                // Роль пользователя, admin или user
	AuthorizationLevel string    `json:"authorization_level"` // Уровень доступа, отдаётся клиенту как есть
	CreatedAt          time.Time `json:"created_at"`          // Дата создания учётной записи
}

// LoginRequest используется для приёма данных формы входа.
type LoginRequest struct {
	Username string `json:"username" validate:"required"` // Имя пользователя
	Password string `json:"password" validate:"required"` // Пароль в открытом виде
}

// RefreshRequest используется для обмена refresh-токена на новый access-токен.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken описывает запись refresh-токена в хранилище.
// Сам токен не сохраняется: хранится только его SHA-256 отпечаток.
type RefreshToken struct {
	ID        string    // Идентификатор записи
	UserUID   string    // Владелец токена
	TokenHash string    // SHA-256 отпечаток токена в hex
	ExpiresAt time.Time // Срок действия
	Revoked   bool      // Признак отзыва (logout)
	CreatedAt time.Time // Дата выдачи
}
