// Package create реализует HTTP-обработчик публичной формы подписки
// на рассылку. Новый подписчик активен и получает тариф free.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-site/internal/http/response"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
	subscriberservice "github.com/magabrotheeeer/subscription-site/internal/services/subscriber"
)

// Handler управляет HTTP-запросами на создание подписчика.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания подписчика.
type Service interface {
	Create(ctx context.Context, req models.CreateSubscriberRequest) (*models.Subscriber, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подписаться на рассылку
// @Description Создает подписчика с публичной формы. Занятая почта отклоняется.
// @Tags Subscribers
// @Accept  json
// @Produce  json
// @Param request body models.CreateSubscriberRequest true "Почта и имя"
// @Success 201 {object} models.Subscriber "Созданный подписчик"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или занятая почта"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /subscribers [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriber.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreateSubscriberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	sub, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, subscriberservice.ErrEmailTaken) {
			log.Info("email already subscribed", slog.String("email", req.Email))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("email already subscribed"))
			return
		}
		log.Error("failed to create subscriber", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}

	log.Info("subscriber created", slog.String("id", sub.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, sub)
}
