// Package update реализует HTTP-обработчик частичного обновления подписчика
// из админ-панели. Переключение статуса ведёт дату отписки.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-site/internal/http/response"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
	subscriberservice "github.com/magabrotheeeer/subscription-site/internal/services/subscriber"
)

// Handler управляет HTTP-запросами на обновление подписчика.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики обновления подписчика.
type Service interface {
	Update(ctx context.Context, id string, req models.UpdateSubscriberRequest) (*models.Subscriber, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Обновить подписчика
// @Description Применяет частичное обновление: имя, тариф, статус подписки.
// @Tags Subscribers
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID подписчика"
// @Param request body models.UpdateSubscriberRequest true "Изменяемые поля"
// @Success 200 {object} models.Subscriber "Обновлённый подписчик"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Подписчик не найден"
// @Failure 422 {object} response.ErrorResponse "Неизвестный тариф"
// @Router /subscribers/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriber.update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	var req models.UpdateSubscriberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	sub, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, subscriberservice.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscriber not found"))
		case errors.Is(err, subscriberservice.ErrUnknownPlan):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown plan"))
		default:
			log.Error("failed to update subscriber", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal server error"))
		}
		return
	}

	log.Info("subscriber updated", slog.String("id", id))
	render.JSON(w, r, sub)
}
