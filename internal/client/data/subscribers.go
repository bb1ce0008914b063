package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-site/internal/client/query"
	"github.com/magabrotheeeer/subscription-site/internal/client/rest"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
)

// keySubscribers — базовый ключ семейства подписчиков. Выборки с
// параметрами кешируются под производными ключами; оптимистичные
// правки применяются к базовому ключу.
const keySubscribers = "subscribers"

// subscribersKey строит ключ кеша для выборки с параметрами.
func subscribersKey(params *rest.ListSubscribersParams) string {
	if params == nil {
		return keySubscribers
	}
	skip, limit := 0, 100
	if params.Skip != nil {
		skip = *params.Skip
	}
	if params.Limit != nil {
		limit = *params.Limit
	}
	active := "all"
	if params.IsActive != nil {
		active = fmt.Sprintf("%t", *params.IsActive)
	}
	return query.Key(keySubscribers, fmt.Sprintf("skip=%d", skip), fmt.Sprintf("limit=%d", limit), fmt.Sprintf("active=%s", active))
}

// Subscribers — хранилище подписчиков для админ-панели.
type Subscribers struct {
	cache  *query.Cache
	api    *rest.Client
	notify Notifier
	log    *slog.Logger
}

// NewSubscribers создаёт хранилище подписчиков.
func NewSubscribers(cache *query.Cache, api *rest.Client, notify Notifier, log *slog.Logger) *Subscribers {
	return &Subscribers{
		cache:  cache,
		api:    api,
		notify: notify,
		log:    log,
	}
}

// List возвращает страницу подписчиков, используя кеш запросов.
func (s *Subscribers) List(ctx context.Context, params *rest.ListSubscribersParams) (*rest.SubscriberList, error) {
	v, err := s.cache.Fetch(ctx, subscribersKey(params), func(ctx context.Context) (any, error) {
		return s.api.ListSubscribers(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return v.(*rest.SubscriberList), nil
}

// Create добавляет подписчика и инвалидирует списки семейства.
func (s *Subscribers) Create(ctx context.Context, email, name string) (*rest.Subscriber, error) {
	sub, err := s.api.CreateSubscriber(ctx, email, name)
	if err != nil {
		s.log.Error("failed to create subscriber", sl.Err(err))
		s.notify.Error("Failed to create subscriber", "Unable to create subscriber. Please try again later.")
		return nil, err
	}
	s.cache.InvalidatePrefix(keySubscribers)
	s.notify.Success("Subscriber added!", "New subscriber has been created.")
	return sub, nil
}

// Update изменяет подписчика с оптимистичной правкой без отката:
// при неудаче правка намеренно остаётся в кеше (решение продукта),
// пользователь получает только уведомление об ошибке.
func (s *Subscribers) Update(ctx context.Context, id string, req rest.UpdateSubscriberRequest) (*rest.Subscriber, error) {
	s.cache.CancelPrefix(keySubscribers)
	s.applyUpdate(id, req)

	sub, err := s.api.UpdateSubscriber(ctx, id, req)
	if err != nil {
		s.log.Error("failed to update subscriber", sl.Err(err))
		s.notify.Error("Failed to update subscriber", "Unable to update subscriber. Please try again later.")
		return nil, err
	}

	s.cache.InvalidatePrefix(keySubscribers)
	return sub, nil
}

// SetActive переключает статус подписчика. Деактивация и активация
// идут через Update и наследуют его политику без отката.
func (s *Subscribers) SetActive(ctx context.Context, id string, active bool) (*rest.Subscriber, error) {
	return s.Update(ctx, id, rest.UpdateSubscriberRequest{IsActive: &active})
}

// Delete удаляет подписчика с оптимистичным удалением из списка и
// откатом к снимку при неудаче.
func (s *Subscribers) Delete(ctx context.Context, id string) error {
	s.cache.CancelPrefix(keySubscribers)
	snap := s.cache.Snapshot(keySubscribers)

	if list, exists := s.cachedList(); exists {
		next := &rest.SubscriberList{
			Subscribers: make([]rest.Subscriber, 0, len(list.Subscribers)),
			Total:       list.Total - 1,
			Page:        list.Page,
			Limit:       list.Limit,
		}
		for _, sub := range list.Subscribers {
			if sub.ID != id {
				next.Subscribers = append(next.Subscribers, sub)
			}
		}
		s.cache.Set(keySubscribers, next)
	}

	if err := s.api.DeleteSubscriber(ctx, id); err != nil {
		s.cache.Restore(snap)
		s.log.Error("failed to delete subscriber", sl.Err(err))
		s.notify.Error("Failed to delete subscriber", "Unable to delete subscriber. Please try again later.")
		return err
	}

	s.cache.InvalidatePrefix(keySubscribers)
	s.notify.Success("Subscriber deleted!", "The subscriber has been removed.")
	return nil
}

// cachedList возвращает список под базовым ключом, если он закеширован.
func (s *Subscribers) cachedList() (*rest.SubscriberList, bool) {
	v, exists := s.cache.Get(keySubscribers)
	if !exists {
		return nil, false
	}
	list, isList := v.(*rest.SubscriberList)
	return list, isList
}

// applyUpdate применяет частичное обновление к кешированному списку,
// не модифицируя прежнее значение: строится новая копия списка.
func (s *Subscribers) applyUpdate(id string, req rest.UpdateSubscriberRequest) {
	list, exists := s.cachedList()
	if !exists {
		return
	}
	next := &rest.SubscriberList{
		Subscribers: make([]rest.Subscriber, len(list.Subscribers)),
		Total:       list.Total,
		Page:        list.Page,
		Limit:       list.Limit,
	}
	copy(next.Subscribers, list.Subscribers)
	for i, sub := range next.Subscribers {
		if sub.ID != id {
			continue
		}
		if req.Name != nil {
			sub.Name = *req.Name
		}
		if req.IsActive != nil {
			sub.IsActive = *req.IsActive
		}
		if req.PlanID != nil {
			sub.PlanID = *req.PlanID
		}
		next.Subscribers[i] = sub
	}
	s.cache.Set(keySubscribers, next)
}
