package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-site/internal/models"
)

// CreatePost вставляет новый пост и возвращает его ID.
func (s *Storage) CreatePost(ctx context.Context, post models.Post) (string, error) {
	const op = "storage.CreatePost"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO posts (title, content, excerpt, published)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	err := s.DB.QueryRowContext(ctx, query,
		post.Title, post.Content, post.Excerpt, post.Published).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadPost возвращает пост по его ID.
func (s *Storage) ReadPost(ctx context.Context, id string) (*models.Post, error) {
	const op = "storage.ReadPost"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, content, excerpt, created_at, published
			  FROM posts
			  WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Post
	if err := row.Scan(&result.ID, &result.Title, &result.Content,
		&result.Excerpt, &result.CreatedAt, &result.Published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// ListPosts возвращает страницу постов по фильтру и общее количество
// записей, попадающих под фильтр.
func (s *Storage) ListPosts(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error) {
	const op = "storage.ListPosts"
	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where := ` WHERE ($1::boolean IS NULL OR published = $1)`

	var total int
	countQuery := `SELECT COUNT(*) FROM posts` + where
	if err := s.DB.QueryRowContext(ctx, countQuery, filter.Published).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, title, content, excerpt, created_at, published
			  FROM posts` + where + `
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, filter.Published, filter.Limit, filter.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Post
	for rows.Next() {
		var item models.Post
		if err := rows.Scan(&item.ID, &item.Title, &item.Content,
			&item.Excerpt, &item.CreatedAt, &item.Published); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// UpdatePost перезаписывает изменяемые поля поста и возвращает
// количество изменённых строк.
func (s *Storage) UpdatePost(ctx context.Context, post models.Post) (int, error) {
	const op = "storage.UpdatePost"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE posts
			  SET title = $1, content = $2, excerpt = $3, published = $4
			  WHERE id = $5`
	result, err := s.DB.ExecContext(ctx, query,
		post.Title, post.Content, post.Excerpt, post.Published, post.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RemovePost удаляет пост по ID и возвращает количество удалённых строк.
func (s *Storage) RemovePost(ctx context.Context, id string) (int, error) {
	const op = "storage.RemovePost"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM posts WHERE id = $1`
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
