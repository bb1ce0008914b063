package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-site/internal/models"
)

// SaveRefreshToken сохраняет запись refresh-токена и возвращает её ID.
// В базу попадает только отпечаток токена, не сам токен.
func (s *Storage) SaveRefreshToken(ctx context.Context, token models.RefreshToken) (string, error) {
	const op = "storage.SaveRefreshToken"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO refresh_tokens (user_uid, token_hash, expires_at)
			  VALUES ($1, $2, $3)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		token.UserUID, token.TokenHash, token.ExpiresAt).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindRefreshToken возвращает запись refresh-токена по его отпечатку.
func (s *Storage) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	const op = "storage.FindRefreshToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, token_hash, expires_at, revoked, created_at
			  FROM refresh_tokens
			  WHERE token_hash = $1`
	t := &models.RefreshToken{}
	row := s.DB.QueryRowContext(ctx, query, tokenHash)

	if err := row.Scan(&t.ID, &t.UserUID, &t.TokenHash,
		&t.ExpiresAt, &t.Revoked, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// RevokeRefreshTokens отзывает все активные refresh-токены пользователя
// и возвращает количество отозванных записей.
func (s *Storage) RevokeRefreshTokens(ctx context.Context, userUID string) (int, error) {
	const op = "storage.RevokeRefreshTokens"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE refresh_tokens
			  SET revoked = true
			  WHERE user_uid = $1
			    AND revoked = false`
	result, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DeleteExpiredRefreshTokens удаляет записи с истёкшим сроком действия.
func (s *Storage) DeleteExpiredRefreshTokens(ctx context.Context) (int, error) {
	const op = "storage.DeleteExpiredRefreshTokens"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM refresh_tokens WHERE expires_at < NOW()`
	result, err := s.DB.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
