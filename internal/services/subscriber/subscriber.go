// Package subscriber содержит бизнес-логику для управления подписчиками
// рассылки, включая кеширование одиночных чтений.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
	"github.com/magabrotheeeer/subscription-site/internal/rabbitmq"
	"github.com/magabrotheeeer/subscription-site/internal/storage/repository"
)

// ErrNotFound возвращается, когда подписчик отсутствует.
var ErrNotFound = errors.New("subscriber not found")

// ErrEmailTaken возвращается при попытке создать подписчика с занятой почтой.
var ErrEmailTaken = errors.New("email already subscribed")

// ErrUnknownPlan возвращается при попытке назначить неизвестный тариф.
var ErrUnknownPlan = errors.New("unknown plan")

// Repository определяет методы для работы с подписчиками в хранилище.
type Repository interface {
	// CreateSubscriber добавляет нового подписчика и возвращает его ID.
	CreateSubscriber(ctx context.Context, sub models.Subscriber) (string, error)
	// ReadSubscriber возвращает подписчика по ID.
	ReadSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
	// FindSubscriberByEmail возвращает подписчика по почте.
	FindSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	// ListSubscribers возвращает страницу подписчиков и общее количество.
	ListSubscribers(ctx context.Context, filter models.SubscriberFilter) ([]*models.Subscriber, int, error)
	// UpdateSubscriber перезаписывает изменяемые поля подписчика.
	UpdateSubscriber(ctx context.Context, sub models.Subscriber) (int, error)
	// RemoveSubscriber удаляет подписчика по ID.
	RemoveSubscriber(ctx context.Context, id string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// EventPublisher публикует доменные события в брокер.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service реализует бизнес-логику работы с подписчиками.
type Service struct {
	repo   Repository
	cache  Cache
	events EventPublisher
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		events: events,
		log:    log,
	}
}

// List возвращает страницу подписчиков по фильтру.
func (s *Service) List(ctx context.Context, filter models.SubscriberFilter) ([]*models.Subscriber, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListSubscribers(ctx, filter)
}

// Create добавляет подписчика с публичной формы подписки. Новый
// подписчик активен и получает тариф free. Занятая почта отклоняется.
func (s *Service) Create(ctx context.Context, req models.CreateSubscriberRequest) (*models.Subscriber, error) {
	const op = "subscriber.Create"

	if _, err := s.repo.FindSubscriberByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.repo.CreateSubscriber(ctx, models.Subscriber{
		Email:    req.Email,
		Name:     req.Name,
		IsActive: true,
		PlanID:   models.PlanFree,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.repo.ReadSubscriber(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new subscriber", slog.String("id", id))

	if err := s.events.Publish(rabbitmq.RoutingSubscriberCreated, sub); err != nil {
		s.log.Warn("failed to publish subscriber.created event", sl.Err(err))
	}
	return sub, nil
}

// Get возвращает подписчика по ID, используя кеш или репозиторий.
func (s *Service) Get(ctx context.Context, id string) (*models.Subscriber, error) {
	var result *models.Subscriber
	cacheKey := fmt.Sprintf("subscriber:%s", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return result, nil
	}

	result, err = s.repo.ReadSubscriber(ctx, id)
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

// Update применяет частичное обновление подписчика. Переключение
// статуса ведёт дату отписки: деактивация проставляет unsubscribed_at,
// повторная активация очищает её.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateSubscriberRequest) (*models.Subscriber, error) {
	const op = "subscriber.Update"

	sub, err := s.repo.ReadSubscriber(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.PlanID != nil {
		if !models.IsValidPlan(*req.PlanID) {
			return nil, ErrUnknownPlan
		}
		sub.PlanID = *req.PlanID
	}
	if req.IsActive != nil && *req.IsActive != sub.IsActive {
		sub.IsActive = *req.IsActive
		if sub.IsActive {
			sub.UnsubscribedAt = nil
		} else {
			now := time.Now().UTC()
			sub.UnsubscribedAt = &now
		}
	}

	if _, err := s.repo.UpdateSubscriber(ctx, *sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheKey := fmt.Sprintf("subscriber:%s", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return sub, nil
}

// Delete удаляет подписчика по ID и инвалидирует кеш.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "subscriber.Delete"

	cacheKey := fmt.Sprintf("subscriber:%s", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}

	count, err := s.repo.RemoveSubscriber(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
