package rest

import "fmt"

// NetworkError — транспортный сбой: бэкенд недоступен на уровне
// соединения (DNS, connection refused и т.п.). Сообщение всегда
// называет недоступный endpoint.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: backend unreachable at %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthenticationError — refresh не удался или refresh-токен отсутствует.
// Терминальна для текущего запроса: токены очищены, вызван обработчик
// неавторизованного состояния.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// ValidationError — отказ бэкенда со статусом 4xx (кроме 401 обёртки).
// Detail содержит сообщение из тела ответа либо запасной текст операции.
type ValidationError struct {
	Status int
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request rejected (%d): %s", e.Status, e.Detail)
}

// NotFoundError — выделенный случай 404 при чтении одиночного ресурса.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ServerError — отказ бэкенда со статусом 5xx.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Detail)
}
