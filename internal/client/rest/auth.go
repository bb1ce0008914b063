package rest

import (
	"context"
	"log/slog"
	"net/http"
)

// User — текущий пользователь админ-панели, как его отдаёт бэкенд.
type User struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	AuthorizationLevel string `json:"authorization_level"`
}

// LoginResponse — ответ на успешный вход.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// Login выполняет вход и сохраняет полученную пару токенов в хранилище.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "login failed")
	}

	var data LoginResponse
	if err := decodeInto(resp, &data); err != nil {
		return nil, err
	}
	c.tokens.Store(data.AccessToken, data.RefreshToken)
	c.log.Info("login successful", slog.String("username", data.User.Username))
	return &data, nil
}

// Logout завершает сессию на бэкенде и очищает локальные токены.
// Локальная сессия сбрасывается при любом ответе сервера, включая
// ошибочный: отказ бэкенда не оставляет учётные данные на диске.
// Токены переживают только транспортную ошибку, когда ответа не было.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/logout", nil)
	if err != nil {
		return err
	}
	defer c.tokens.Clear()
	if !ok(resp) {
		return errorFromResponse(resp, "logout failed")
	}
	drain(resp)
	return nil
}

// Me возвращает текущего пользователя.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to get current user")
	}

	var user User
	if err := decodeInto(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
