package data

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/subscription-site/internal/client/query"
	"github.com/magabrotheeeer/subscription-site/internal/client/rest"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
)

// keyCurrentUser — ключ кеша для текущего пользователя.
const keyCurrentUser = "auth/me"

// Session — операции входа и выхода плюс кешированный текущий пользователь.
type Session struct {
	cache  *query.Cache
	api    *rest.Client
	notify Notifier
	log    *slog.Logger
}

// NewSession создаёт хранилище сессии.
func NewSession(cache *query.Cache, api *rest.Client, notify Notifier, log *slog.Logger) *Session {
	return &Session{
		cache:  cache,
		api:    api,
		notify: notify,
		log:    log,
	}
}

// Login выполняет вход. Кеш очищается целиком: данные прежней сессии
// не должны пережить смену пользователя.
func (s *Session) Login(ctx context.Context, username, password string) (*rest.User, error) {
	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.log.Error("login failed", sl.Err(err))
		s.notify.Error("Login failed", "Invalid username or password.")
		return nil, err
	}

	s.cache.Clear()
	s.cache.Set(keyCurrentUser, &resp.User)
	s.notify.Success("Welcome back!", "You are now signed in.")
	return &resp.User, nil
}

// Logout завершает сессию и очищает кеш. Локальное состояние
// сбрасывается даже при ошибке бэкенда: сессия считается завершённой.
func (s *Session) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	s.cache.Clear()
	if err != nil {
		s.log.Warn("logout request failed", sl.Err(err))
		return err
	}
	return nil
}

// CurrentUser возвращает текущего пользователя, используя кеш.
func (s *Session) CurrentUser(ctx context.Context) (*rest.User, error) {
	v, err := s.cache.Fetch(ctx, keyCurrentUser, func(ctx context.Context) (any, error) {
		return s.api.Me(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*rest.User), nil
}
