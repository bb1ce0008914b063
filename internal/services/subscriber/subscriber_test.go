package subscriber

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-site/internal/models"
	"github.com/magabrotheeeer/subscription-site/internal/rabbitmq"
	"github.com/magabrotheeeer/subscription-site/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateSubscriber(ctx context.Context, sub models.Subscriber) (string, error) {
	args := m.Called(ctx, sub)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) ReadSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	args := m.Called(ctx, id)
	sub, _ := args.Get(0).(*models.Subscriber)
	return sub, args.Error(1)
}

func (m *RepoMock) FindSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	args := m.Called(ctx, email)
	sub, _ := args.Get(0).(*models.Subscriber)
	return sub, args.Error(1)
}

func (m *RepoMock) ListSubscribers(ctx context.Context, filter models.SubscriberFilter) ([]*models.Subscriber, int, error) {
	args := m.Called(ctx, filter)
	subs, _ := args.Get(0).([]*models.Subscriber)
	return subs, args.Int(1), args.Error(2)
}

func (m *RepoMock) UpdateSubscriber(ctx context.Context, sub models.Subscriber) (int, error) {
	args := m.Called(ctx, sub)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) RemoveSubscriber(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCreate_PublishesEvent(t *testing.T) {
	repo := new(RepoMock)
	events := new(PublisherMock)
	service := New(repo, new(CacheMock), events, newNoopLogger())

	created := &models.Subscriber{ID: "s1", Email: "a@b.c", Name: "Alice", IsActive: true, PlanID: models.PlanFree}
	repo.On("FindSubscriberByEmail", mock.Anything, "a@b.c").Return(nil, repository.ErrNotFound)
	repo.On("CreateSubscriber", mock.Anything, mock.MatchedBy(func(sub models.Subscriber) bool {
		return sub.Email == "a@b.c" && sub.IsActive && sub.PlanID == models.PlanFree
	})).Return("s1", nil)
	repo.On("ReadSubscriber", mock.Anything, "s1").Return(created, nil)
	events.On("Publish", rabbitmq.RoutingSubscriberCreated, created).Return(nil)

	sub, err := service.Create(context.Background(), models.CreateSubscriberRequest{Email: "a@b.c", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "s1", sub.ID)
	events.AssertExpectations(t)
}

func TestCreate_EmailTaken(t *testing.T) {
	repo := new(RepoMock)
	service := New(repo, new(CacheMock), new(PublisherMock), newNoopLogger())

	repo.On("FindSubscriberByEmail", mock.Anything, "a@b.c").
		Return(&models.Subscriber{ID: "s1", Email: "a@b.c"}, nil)

	_, err := service.Create(context.Background(), models.CreateSubscriberRequest{Email: "a@b.c", Name: "Alice"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	repo.AssertNotCalled(t, "CreateSubscriber", mock.Anything, mock.Anything)
}

func TestCreate_PublishFailureDoesNotFail(t *testing.T) {
	repo := new(RepoMock)
	events := new(PublisherMock)
	service := New(repo, new(CacheMock), events, newNoopLogger())

	created := &models.Subscriber{ID: "s1", Email: "a@b.c"}
	repo.On("FindSubscriberByEmail", mock.Anything, "a@b.c").Return(nil, repository.ErrNotFound)
	repo.On("CreateSubscriber", mock.Anything, mock.Anything).Return("s1", nil)
	repo.On("ReadSubscriber", mock.Anything, "s1").Return(created, nil)
	events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker is down"))

	sub, err := service.Create(context.Background(), models.CreateSubscriberRequest{Email: "a@b.c", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "s1", sub.ID)
}

func TestUpdate_DeactivationSetsUnsubscribedAt(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, new(PublisherMock), newNoopLogger())

	repo.On("ReadSubscriber", mock.Anything, "s1").
		Return(&models.Subscriber{ID: "s1", IsActive: true, PlanID: models.PlanFree}, nil)
	repo.On("UpdateSubscriber", mock.Anything, mock.MatchedBy(func(sub models.Subscriber) bool {
		return !sub.IsActive && sub.UnsubscribedAt != nil
	})).Return(1, nil)
	cache.On("Invalidate", "subscriber:s1").Return(nil)

	isActive := false
	sub, err := service.Update(context.Background(), "s1", models.UpdateSubscriberRequest{IsActive: &isActive})
	require.NoError(t, err)
	assert.False(t, sub.IsActive)
	require.NotNil(t, sub.UnsubscribedAt)
	assert.WithinDuration(t, time.Now().UTC(), *sub.UnsubscribedAt, time.Minute)
}

func TestUpdate_ReactivationClearsUnsubscribedAt(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, new(PublisherMock), newNoopLogger())

	unsubscribedAt := time.Now().UTC().Add(-time.Hour)
	repo.On("ReadSubscriber", mock.Anything, "s1").
		Return(&models.Subscriber{ID: "s1", IsActive: false, PlanID: models.PlanFree, UnsubscribedAt: &unsubscribedAt}, nil)
	repo.On("UpdateSubscriber", mock.Anything, mock.MatchedBy(func(sub models.Subscriber) bool {
		return sub.IsActive && sub.UnsubscribedAt == nil
	})).Return(1, nil)
	cache.On("Invalidate", "subscriber:s1").Return(nil)

	isActive := true
	sub, err := service.Update(context.Background(), "s1", models.UpdateSubscriberRequest{IsActive: &isActive})
	require.NoError(t, err)
	assert.True(t, sub.IsActive)
	assert.Nil(t, sub.UnsubscribedAt)
}

func TestUpdate_SameStatusKeepsUnsubscribedAt(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, new(PublisherMock), newNoopLogger())

	unsubscribedAt := time.Now().UTC().Add(-time.Hour)
	repo.On("ReadSubscriber", mock.Anything, "s1").
		Return(&models.Subscriber{ID: "s1", IsActive: false, PlanID: models.PlanFree, UnsubscribedAt: &unsubscribedAt}, nil)
	repo.On("UpdateSubscriber", mock.Anything, mock.Anything).Return(1, nil)
	cache.On("Invalidate", "subscriber:s1").Return(nil)

	// Деактивация уже неактивного подписчика не трогает дату отписки.
	isActive := false
	sub, err := service.Update(context.Background(), "s1", models.UpdateSubscriberRequest{IsActive: &isActive})
	require.NoError(t, err)
	require.NotNil(t, sub.UnsubscribedAt)
	assert.Equal(t, unsubscribedAt, *sub.UnsubscribedAt)
}

func TestUpdate_UnknownPlan(t *testing.T) {
	repo := new(RepoMock)
	service := New(repo, new(CacheMock), new(PublisherMock), newNoopLogger())

	repo.On("ReadSubscriber", mock.Anything, "s1").
		Return(&models.Subscriber{ID: "s1", IsActive: true, PlanID: models.PlanFree}, nil)

	plan := "legacy-gold"
	_, err := service.Update(context.Background(), "s1", models.UpdateSubscriberRequest{PlanID: &plan})
	assert.ErrorIs(t, err, ErrUnknownPlan)
	repo.AssertNotCalled(t, "UpdateSubscriber", mock.Anything, mock.Anything)
}

func TestGet_CacheHitSkipsRepository(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, new(PublisherMock), newNoopLogger())

	cache.On("Get", "subscriber:s1", mock.Anything).
		Run(func(args mock.Arguments) {
			ptr := args.Get(1).(**models.Subscriber)
			*ptr = &models.Subscriber{ID: "s1", Email: "a@b.c"}
		}).Return(true, nil)

	sub, err := service.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", sub.Email)
	repo.AssertNotCalled(t, "ReadSubscriber", mock.Anything, mock.Anything)
}

func TestDelete_NotFound(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, new(PublisherMock), newNoopLogger())

	cache.On("Invalidate", "subscriber:missing").Return(nil)
	repo.On("RemoveSubscriber", mock.Anything, "missing").Return(0, nil)

	err := service.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
