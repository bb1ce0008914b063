// Package health реализует HTTP-обработчик проверки готовности сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-site/internal/http/response"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
)

// Handler управляет HTTP-запросами проверки готовности.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает проверку готовности хранилища.
type Service interface {
	CheckDatabaseReady(ctx context.Context) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Description Возвращает статус ok, если база данных доступна и мигрирована.
// @Tags Health
// @Produce  json
// @Success 200 {object} map[string]string "Сервис готов"
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.service.CheckDatabaseReady(r.Context()); err != nil {
		log.Error("database is not ready", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database is not ready"))
		return
	}

	render.JSON(w, r, map[string]string{"status": "ok"})
}
