// Package subscription реализует оформление платной подписки с
// публичной страницы тарифов: проверка тарифа, создание или
// переиспользование подписчика, имитация платежа и публикация события.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
	"github.com/magabrotheeeer/subscription-site/internal/rabbitmq"
	"github.com/magabrotheeeer/subscription-site/internal/storage/repository"
)

// ErrUnknownPlan возвращается при оформлении неизвестного тарифа.
var ErrUnknownPlan = errors.New("unknown plan")

// ErrPaymentRequired возвращается, когда платный тариф оформляется
// без платёжных данных.
var ErrPaymentRequired = errors.New("payment details required")

// simulatedPaymentDelay — задержка имитации обращения к платёжному
// провайдеру. Реальная интеграция отсутствует.
const simulatedPaymentDelay = 150 * time.Millisecond

// SubscriberRepository определяет доступ к подписчикам из потока оформления.
type SubscriberRepository interface {
	CreateSubscriber(ctx context.Context, sub models.Subscriber) (string, error)
	ReadSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
	FindSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	UpdateSubscriber(ctx context.Context, sub models.Subscriber) (int, error)
}

// EventPublisher публикует доменные события в брокер.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service реализует поток оформления подписки.
type Service struct {
	subscribers SubscriberRepository
	events      EventPublisher
	log         *slog.Logger
}

// New создает новый экземпляр Service.
func New(subscribers SubscriberRepository, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		subscribers: subscribers,
		events:      events,
		log:         log,
	}
}

// subscriptionCreatedEvent — полезная нагрузка события оформления.
type subscriptionCreatedEvent struct {
	SubscriptionID string    `json:"subscription_id"`
	SubscriberID   string    `json:"subscriber_id"`
	Email          string    `json:"email"`
	Plan           string    `json:"plan"`
	CreatedAt      time.Time `json:"created_at"`
}

// Create оформляет подписку на тариф. Существующий подписчик
// переводится на новый тариф и активируется, новый — создаётся.
// Платёж имитируется, событие оформления уходит в брокер.
func (s *Service) Create(ctx context.Context, req models.CreateSubscriptionRequest) (*models.Subscription, error) {
	const op = "subscription.Create"

	if !models.IsValidPlan(req.PlanID) {
		return nil, ErrUnknownPlan
	}
	if req.PlanID != models.PlanFree && req.PaymentDetails == nil {
		return nil, ErrPaymentRequired
	}

	if req.PlanID != models.PlanFree {
		if err := s.processPayment(ctx, req); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	sub, err := s.subscribers.FindSubscriberByEmail(ctx, req.Email)
	switch {
	case err == nil:
		sub.Name = req.Name
		sub.PlanID = req.PlanID
		if !sub.IsActive {
			sub.IsActive = true
			sub.UnsubscribedAt = nil
		}
		if _, err := s.subscribers.UpdateSubscriber(ctx, *sub); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case errors.Is(err, repository.ErrNotFound):
		id, err := s.subscribers.CreateSubscriber(ctx, models.Subscriber{
			Email:    req.Email,
			Name:     req.Name,
			IsActive: true,
			PlanID:   req.PlanID,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sub, err = s.subscribers.ReadSubscriber(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &models.Subscription{
		SubscriptionID: uuid.NewString(),
		Status:         "active",
		Plan:           req.PlanID,
		Subscriber:     *sub,
	}
	s.log.Info("subscription created",
		slog.String("subscription_id", result.SubscriptionID),
		slog.String("plan", result.Plan),
	)

	if err := s.events.Publish(rabbitmq.RoutingSubscriptionCreated, subscriptionCreatedEvent{
		SubscriptionID: result.SubscriptionID,
		SubscriberID:   sub.ID,
		Email:          sub.Email,
		Plan:           result.Plan,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		s.log.Warn("failed to publish subscription.created event", sl.Err(err))
	}

	return result, nil
}

// processPayment имитирует обращение к платёжному провайдеру:
// принятый токен не списывает средства.
func (s *Service) processPayment(ctx context.Context, req models.CreateSubscriptionRequest) error {
	select {
	case <-time.After(simulatedPaymentDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("payment simulated", slog.String("plan", req.PlanID))
	return nil
}
