// Package auth содержит логику бизнес-уровня для аутентификации
// пользователей админ-панели: вход, обновление access-токена по
// refresh-токену, выход и проверка JWT.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-site/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-site/internal/lib/password"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
	"github.com/magabrotheeeer/subscription-site/internal/storage/repository"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidRefreshToken возвращается для неизвестного, отозванного
// или истёкшего refresh-токена.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// RefreshTokenRepository описывает контракт для работы с refresh-токенами.
type RefreshTokenRepository interface {
	// SaveRefreshToken сохраняет запись токена и возвращает её ID.
	SaveRefreshToken(ctx context.Context, token models.RefreshToken) (string, error)
	// FindRefreshToken возвращает запись по отпечатку токена.
	FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	// RevokeRefreshTokens отзывает все активные токены пользователя.
	RevokeRefreshTokens(ctx context.Context, userUID string) (int, error)
	// DeleteExpiredRefreshTokens удаляет токены с истёкшим сроком действия.
	DeleteExpiredRefreshTokens(ctx context.Context) (int, error)
}

// Service отвечает за вход, обновление токенов и валидацию JWT.
type Service struct {
	users      UserRepository
	tokens     RefreshTokenRepository
	jwtMaker   jwt.Maker
	refreshTTL time.Duration
	log        *slog.Logger
}

// New создает новый экземпляр Service.
func New(users UserRepository, tokens RefreshTokenRepository, jwtMaker jwt.Maker,
	refreshTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		jwtMaker:   jwtMaker,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// Login проверяет пароль пользователя и выдаёт пару токенов:
// access JWT и непрозрачный refresh-токен, который сохраняется в базе
// в виде SHA-256 отпечатка.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (access, refresh string, user *models.User, err error) {
	const op = "auth.Login"

	user, err = s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	access, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", "", nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err = newOpaqueToken()
	if err != nil {
		return "", "", nil, fmt.Errorf("%s: %w", op, err)
	}
	_, err = s.tokens.SaveRefreshToken(ctx, models.RefreshToken{
		UserUID:   user.UID,
		TokenHash: hashToken(refresh),
		ExpiresAt: time.Now().UTC().Add(s.refreshTTL),
	})
	if err != nil {
		return "", "", nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user logged in", slog.String("username", user.Username))
	return access, refresh, user, nil
}

// Refresh обменивает refresh-токен на новый access-токен.
// Сам refresh-токен не ротируется: он остаётся действительным до
// истечения срока или отзыва.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "auth.Refresh"

	record, err := s.tokens.FindRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if record.Revoked || time.Now().UTC().After(record.ExpiresAt) {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.users.GetUser(ctx, record.UserUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	access, err := s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return access, nil
}

// Logout отзывает все refresh-токены пользователя.
func (s *Service) Logout(ctx context.Context, userUID string) error {
	const op = "auth.Logout"

	revoked, err := s.tokens.RevokeRefreshTokens(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user logged out", slog.String("user_uid", userUID), slog.Int("revoked_tokens", revoked))
	return nil
}

// PurgeExpiredTokens удаляет истёкшие refresh-токены из базы.
// Истёкший токен и так не проходит проверку в Refresh, чистка лишь
// не даёт таблице расти бесконечно.
func (s *Service) PurgeExpiredTokens(ctx context.Context) error {
	const op = "auth.PurgeExpiredTokens"

	deleted, err := s.tokens.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if deleted > 0 {
		s.log.Info("purged expired refresh tokens", slog.Int("deleted", deleted))
	}
	return nil
}

// Me возвращает пользователя по его UID.
func (s *Service) Me(ctx context.Context, userUID string) (*models.User, error) {
	const op = "auth.Me"

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ValidateToken проверяет access JWT и возвращает информацию о пользователе.
func (s *Service) ValidateToken(_ context.Context, token string) (*models.User, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		s.log.Debug("token validation failed", sl.Err(err))
		return nil, err
	}
	return &models.User{
		UID:      claims.UserUID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// newOpaqueToken генерирует 32 случайных байта в hex.
func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken возвращает SHA-256 отпечаток токена в hex.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
