package subscriptionsite

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/subscription-site/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/subscription-site/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/subscription-site/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/subscription-site/internal/http/handlers/auth/refresh"
	"github.com/magabrotheeeer/subscription-site/internal/http/handlers/health"
	postcreate "github.com/magabrotheeeer/subscription-site/internal/http/handlers/post/create"
	postlist "github.com/magabrotheeeer/subscription-site/internal/http/handlers/post/list"
	postread "github.com/magabrotheeeer/subscription-site/internal/http/handlers/post/read"
	postremove "github.com/magabrotheeeer/subscription-site/internal/http/handlers/post/remove"
	postupdate "github.com/magabrotheeeer/subscription-site/internal/http/handlers/post/update"
	subscribercreate "github.com/magabrotheeeer/subscription-site/internal/http/handlers/subscriber/create"
	subscriberlist "github.com/magabrotheeeer/subscription-site/internal/http/handlers/subscriber/list"
	subscriberremove "github.com/magabrotheeeer/subscription-site/internal/http/handlers/subscriber/remove"
	subscriberupdate "github.com/magabrotheeeer/subscription-site/internal/http/handlers/subscriber/update"
	subscriptioncreate "github.com/magabrotheeeer/subscription-site/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/subscription-site/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/subscription-site/internal/services/auth"
	postservice "github.com/magabrotheeeer/subscription-site/internal/services/post"
	subscriberservice "github.com/magabrotheeeer/subscription-site/internal/services/subscriber"
	subscriptionservice "github.com/magabrotheeeer/subscription-site/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-site/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	db *repository.Storage,
	authService *authservice.Service,
	subscriberService *subscriberservice.Service,
	postService *postservice.Service,
	subscriptionService *subscriptionservice.Service,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
			r.Post("/auth/refresh", refresh.New(logger, authService).ServeHTTP)
			r.Get("/posts", postlist.New(logger, postService).ServeHTTP)
			r.Get("/posts/{id}", postread.New(logger, postService).ServeHTTP)
			r.Post("/subscribers", subscribercreate.New(logger, subscriberService).ServeHTTP)
			r.Post("/subscriptions", subscriptioncreate.New(logger, subscriptionService).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Post("/auth/logout", logout.New(logger, authService).ServeHTTP)
			r.Get("/auth/me", me.New(logger, authService).ServeHTTP)

			// Административные конечные точки
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(logger))
				r.Get("/subscribers", subscriberlist.New(logger, subscriberService).ServeHTTP)
				r.Patch("/subscribers/{id}", subscriberupdate.New(logger, subscriberService).ServeHTTP)
				r.Delete("/subscribers/{id}", subscriberremove.New(logger, subscriberService).ServeHTTP)
				r.Post("/posts", postcreate.New(logger, postService).ServeHTTP)
				r.Patch("/posts/{id}", postupdate.New(logger, postService).ServeHTTP)
				r.Delete("/posts/{id}", postremove.New(logger, postService).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
