// Package create реализует HTTP-обработчик оформления платной подписки
// с публичной страницы тарифов. Платёж имитируется.
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
	subscriptionservice "github.com/magabrotheeeer/subscription-site/internal/services/subscription"
)

// Handler управляет HTTP-запросами на оформление подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики оформления подписки.
type Service interface {
	Create(ctx context.Context, req models.CreateSubscriptionRequest) (*models.Subscription, error)
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
// @Summary Оформить подписку
// @Description Оформляет подписку на тариф. Существующий подписчик переводится на новый тариф.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.CreateSubscriptionRequest true "Данные оформления"
// @Success 201 {object} models.Subscription "Оформленная подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или отсутствуют платёжные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или неизвестный тариф"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreateSubscriptionRequest
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
		switch {
		case errors.Is(err, subscriptionservice.ErrUnknownPlan):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown plan"))
		case errors.Is(err, subscriptionservice.ErrPaymentRequired):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("payment details required"))
		default:
			log.Error("failed to create subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal server error"))
		}
		return
	}

	log.Info("subscription created", slog.String("subscription_id", sub.SubscriptionID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, sub)
}
