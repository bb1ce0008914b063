package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-site/internal/models"
)

// CreateSubscriber вставляет нового подписчика и возвращает его ID.
func (s *Storage) CreateSubscriber(ctx context.Context, sub models.Subscriber) (string, error) {
	const op = "storage.CreateSubscriber"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO subscribers (email, name, is_active, plan_id)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	err := s.DB.QueryRowContext(ctx, query,
		sub.Email, sub.Name, sub.IsActive, sub.PlanID).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadSubscriber возвращает подписчика по его ID.
func (s *Storage) ReadSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	const op = "storage.ReadSubscriber"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, name, is_active, plan_id, subscribed_at, unsubscribed_at
			  FROM subscribers
			  WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Subscriber
	var unsubscribedAt sql.NullTime
	if err := row.Scan(&result.ID, &result.Email, &result.Name, &result.IsActive,
		&result.PlanID, &result.SubscribedAt, &unsubscribedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if unsubscribedAt.Valid {
		result.UnsubscribedAt = &unsubscribedAt.Time
	}
	return &result, nil
}

// FindSubscriberByEmail возвращает подписчика по электронной почте.
func (s *Storage) FindSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	const op = "storage.FindSubscriberByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, name, is_active, plan_id, subscribed_at, unsubscribed_at
			  FROM subscribers
			  WHERE email = $1`
	row := s.DB.QueryRowContext(ctx, query, email)

	var result models.Subscriber
	var unsubscribedAt sql.NullTime
	if err := row.Scan(&result.ID, &result.Email, &result.Name, &result.IsActive,
		&result.PlanID, &result.SubscribedAt, &unsubscribedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if unsubscribedAt.Valid {
		result.UnsubscribedAt = &unsubscribedAt.Time
	}
	return &result, nil
}

// ListSubscribers возвращает страницу подписчиков по фильтру и общее
// количество записей, попадающих под фильтр.
func (s *Storage) ListSubscribers(ctx context.Context, filter models.SubscriberFilter) ([]*models.Subscriber, int, error) {
	const op = "storage.ListSubscribers"
	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where := ` WHERE ($1::text = '' OR email ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
			     AND ($2::boolean IS NULL OR is_active = $2)
			     AND ($3::text IS NULL OR plan_id = $3)`

	var total int
	countQuery := `SELECT COUNT(*) FROM subscribers` + where
	if err := s.DB.QueryRowContext(ctx, countQuery,
		filter.Search, filter.IsActive, filter.PlanID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, email, name, is_active, plan_id, subscribed_at, unsubscribed_at
			  FROM subscribers` + where + `
			  ORDER BY subscribed_at DESC
			  LIMIT $4 OFFSET $5`
	rows, err := s.DB.QueryContext(ctx, query,
		filter.Search, filter.IsActive, filter.PlanID, filter.Limit, filter.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscriber
	for rows.Next() {
		var item models.Subscriber
		var unsubscribedAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.Email, &item.Name, &item.IsActive,
			&item.PlanID, &item.SubscribedAt, &unsubscribedAt); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		if unsubscribedAt.Valid {
			item.UnsubscribedAt = &unsubscribedAt.Time
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// UpdateSubscriber перезаписывает изменяемые поля подписчика и возвращает
// количество изменённых строк.
func (s *Storage) UpdateSubscriber(ctx context.Context, sub models.Subscriber) (int, error) {
	const op = "storage.UpdateSubscriber"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscribers
			  SET name = $1, is_active = $2, plan_id = $3, unsubscribed_at = $4
			  WHERE id = $5`
	result, err := s.DB.ExecContext(ctx, query,
		sub.Name, sub.IsActive, sub.PlanID, sub.UnsubscribedAt, sub.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RemoveSubscriber удаляет подписчика по ID и возвращает количество удалённых строк.
func (s *Storage) RemoveSubscriber(ctx context.Context, id string) (int, error) {
	const op = "storage.RemoveSubscriber"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM subscribers WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
