// Package remove реализует HTTP-обработчик удаления подписчика из админ-панели.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-site/internal/http/response"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	subscriberservice "github.com/magabrotheeeer/subscription-site/internal/services/subscriber"
)

// Handler управляет HTTP-запросами на удаление подписчика.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления подписчика.
type Service interface {
	Delete(ctx context.Context, id string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить подписчика
// @Description Удаляет подписчика по ID.
// @Tags Subscribers
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID подписчика"
// @Success 200 {object} map[string]string "Подписчик удалён"
// @Failure 404 {object} response.ErrorResponse "Подписчик не найден"
// @Router /subscribers/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriber.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, subscriberservice.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscriber not found"))
			return
		}
		log.Error("failed to delete subscriber", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}

	log.Info("subscriber deleted", slog.String("id", id))
	render.JSON(w, r, map[string]string{"message": "subscriber deleted"})
}
