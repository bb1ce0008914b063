// Package post содержит бизнес-логику для управления постами блога.
// Анонс поста — производное поле: пересчитывается из markdown-контента
// при создании и при изменении текста.
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-site/internal/lib/excerpt"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
	"github.com/magabrotheeeer/subscription-site/internal/storage/repository"
)

// ErrNotFound возвращается, когда пост отсутствует.
var ErrNotFound = errors.New("post not found")

// Repository определяет методы для работы с постами в хранилище.
type Repository interface {
	// CreatePost добавляет новый пост и возвращает его ID.
	CreatePost(ctx context.Context, post models.Post) (string, error)
	// ReadPost возвращает пост по ID.
	ReadPost(ctx context.Context, id string) (*models.Post, error)
	// ListPosts возвращает страницу постов и общее количество.
	ListPosts(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error)
	// UpdatePost перезаписывает изменяемые поля поста.
	UpdatePost(ctx context.Context, post models.Post) (int, error)
	// RemovePost удаляет пост по ID.
	RemovePost(ctx context.Context, id string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику работы с постами.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// List возвращает страницу постов по фильтру.
func (s *Service) List(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListPosts(ctx, filter)
}

// Get возвращает пост по ID, используя кеш или репозиторий.
func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	var result *models.Post
	cacheKey := fmt.Sprintf("post:%s", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return result, nil
	}

	result, err = s.repo.ReadPost(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return result, nil
}

// Create создает пост. Анонс выводится из контента, новый пост
// публикуется сразу, если published не передан.
func (s *Service) Create(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	const op = "post.Create"

	published := true
	if req.Published != nil {
		published = *req.Published
	}

	id, err := s.repo.CreatePost(ctx, models.Post{
		Title:     req.Title,
		Content:   req.Content,
		Excerpt:   excerpt.FromMarkdown(req.Content),
		Published: published,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	post, err := s.repo.ReadPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new post", slog.String("id", id))
	return post, nil
}

// Update применяет частичное обновление поста. Изменение контента
// пересчитывает анонс.
func (s *Service) Update(ctx context.Context, id string, req models.UpdatePostRequest) (*models.Post, error) {
	const op = "post.Update"

	post, err := s.repo.ReadPost(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil {
		post.Content = *req.Content
		post.Excerpt = excerpt.FromMarkdown(*req.Content)
	}
	if req.Published != nil {
		post.Published = *req.Published
	}

	if _, err := s.repo.UpdatePost(ctx, *post); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheKey := fmt.Sprintf("post:%s", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return post, nil
}

// Delete удаляет пост по ID и инвалидирует кеш.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "post.Delete"

	cacheKey := fmt.Sprintf("post:%s", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}

	count, err := s.repo.RemovePost(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
