// Package list реализует HTTP-обработчик списка постов блога.
// Без параметра published возвращаются все посты, с параметром —
// только опубликованные или только черновики.
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

// Handler управляет HTTP-запросами на получение списка постов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка постов.
type Service interface {
	List(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ListResponse описывает страницу постов.
type ListResponse struct {
	Posts []*models.Post `json:"posts"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ServeHTTP godoc
// @Summary Список постов
// @Description Возвращает страницу постов, опционально отфильтрованную по публикации.
// @Tags Posts
// @Produce  json
// @Param skip query int false "Смещение выборки"
// @Param limit query int false "Размер страницы"
// @Param published query bool false "Фильтр по публикации"
// @Success 200 {object} ListResponse "Страница постов"
// @Router /posts [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.post.list"
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

	posts, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("failed to list posts", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	render.JSON(w, r, ListResponse{
		Posts: posts,
		Total: total,
		Page:  filter.Skip/limit + 1,
		Limit: limit,
	})
}

// parseFilter собирает фильтр выборки из query-параметров запроса.
func parseFilter(r *http.Request) (models.PostFilter, error) {
	var filter models.PostFilter
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
	if v := q.Get("published"); v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			return filter, err
		}
		filter.Published = &published
	}
	return filter, nil
}
