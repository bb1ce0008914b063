// Package subscriptionsite собирает HTTP-сервис сайта подписок:
// хранилище, миграции, кеш, брокер событий и маршруты.
package subscriptionsite

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-site/internal/cache"
	"github.com/magabrotheeeer/subscription-site/internal/config"
	"github.com/magabrotheeeer/subscription-site/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-site/internal/migrations"
	"github.com/magabrotheeeer/subscription-site/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/subscription-site/internal/services/auth"
	postservice "github.com/magabrotheeeer/subscription-site/internal/services/post"
	subscriberservice "github.com/magabrotheeeer/subscription-site/internal/services/subscriber"
	subscriptionservice "github.com/magabrotheeeer/subscription-site/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-site/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и подключения к внешним системам.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	broker *amqp.Connection
	auth   *authservice.Service
}

// tokenPurgeInterval задаёт период чистки истёкших refresh-токенов.
const tokenPurgeInterval = time.Hour

// New создает приложение: подключает Postgres, прогоняет миграции,
// поднимает Redis и RabbitMQ, собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	brokerConn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}
	channel, err := rabbitmq.SetupChannel(brokerConn, rabbitmq.GetEventQueues())
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(channel)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)

	authService := authservice.New(db, db, jwtMaker, cfg.JWTToken.RefreshTokenTTL, logger)
	subscriberService := subscriberservice.New(db, cacheRedis, publisher, logger)
	postService := postservice.New(db, cacheRedis, logger)
	subscriptionService := subscriptionservice.New(db, publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, authService, subscriberService, postService, subscriptionService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		broker: brokerConn,
		auth:   authService,
	}, nil
}

// Run запускает HTTP-сервер, фоновую чистку истёкших refresh-токенов
// и останавливает всё при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	go a.purgeExpiredTokens(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", slog.Any("err", closeErr))
		}
		if closeErr := a.broker.Close(); closeErr != nil {
			a.logger.Error("failed to close broker connection", slog.Any("err", closeErr))
		}
		return err
	}
}

// purgeExpiredTokens чистит истёкшие refresh-токены при старте
// и далее раз в tokenPurgeInterval, пока контекст не отменён.
func (a *App) purgeExpiredTokens(ctx context.Context) {
	if err := a.auth.PurgeExpiredTokens(ctx); err != nil {
		a.logger.Error("failed to purge expired refresh tokens", slog.Any("err", err))
	}

	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.auth.PurgeExpiredTokens(ctx); err != nil {
				a.logger.Error("failed to purge expired refresh tokens", slog.Any("err", err))
			}
		}
	}
}
