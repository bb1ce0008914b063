// Package update реализует HTTP-обработчик частичного обновления поста.
// Изменение контента пересчитывает анонс.
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
	postservice "github.com/magabrotheeeer/subscription-site/internal/services/post"
)

// Handler управляет HTTP-запросами на обновление поста.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики обновления поста.
type Service interface {
	Update(ctx context.Context, id string, req models.UpdatePostRequest) (*models.Post, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Обновить пост
// @Description Применяет частичное обновление: заголовок, контент, публикацию.
// @Tags Posts
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID поста"
// @Param request body models.UpdatePostRequest true "Изменяемые поля"
// @Success 200 {object} models.Post "Обновлённый пост"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Пост не найден"
// @Router /posts/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.post.update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	var req models.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	post, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, postservice.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("post not found"))
			return
		}
		log.Error("failed to update post", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}

	log.Info("post updated", slog.String("id", id))
	render.JSON(w, r, post)
}
