// Package list реализует HTTP-обработчик постраничного списка подписчиков
// для админ-панели с фильтрами по статусу, тарифу и поисковой строке.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-site/internal/http/response"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
)

// Handler управляет HTTP-запросами на получение списка подписчиков.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка подписчиков.
type Service interface {
	List(ctx context.Context, filter models.SubscriberFilter) ([]*models.Subscriber, int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ListResponse описывает страницу подписчиков.
type ListResponse struct {
	Subscribers []*models.Subscriber `json:"subscribers"`
	Total       int                  `json:"total"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
}

// ServeHTTP godoc
// @Summary Список подписчиков
// @Description Возвращает страницу подписчиков с фильтрами по статусу, тарифу и поиску.
// @Tags Subscribers
// @Produce  json
// @Security BearerAuth
// @Param skip query int false "Смещение выборки"
// @Param limit query int false "Размер страницы"
// @Param search query string false "Подстрока для поиска по email и имени"
// @Param is_active query bool false "Фильтр по статусу"
// @Param plan_id query string false "Фильтр по тарифу"
// @Success 200 {object} ListResponse "Страница подписчиков"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Router /subscribers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriber.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter, err := parseFilter(r)
	if err != nil {
		log.Error("failed to parse query params", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid query parameters"))
		return
	}

	subscribers, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("failed to list subscribers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}
	if subscribers == nil {
		subscribers = []*models.Subscriber{}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	render.JSON(w, r, ListResponse{
		Subscribers: subscribers,
		Total:       total,
		Page:        filter.Skip/limit + 1,
		Limit:       limit,
	})
}

// parseFilter собирает фильтр выборки из query-параметров запроса.
func parseFilter(r *http.Request) (models.SubscriberFilter, error) {
	var filter models.SubscriberFilter
	q := r.URL.Query()

	if v := q.Get("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Skip = skip
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	filter.Search = q.Get("search")
	if v := q.Get("is_active"); v != "" {
		isActive, err := strconv.ParseBool(v)
		if err != nil {
			return filter, err
		}
		filter.IsActive = &isActive
	}
	if v := q.Get("plan_id"); v != "" {
		planID := v
		filter.PlanID = &planID
	}
	return filter, nil
}
