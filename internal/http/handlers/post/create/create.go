// Package create реализует HTTP-обработчик создания поста блога
// из админ-панели. Анонс выводится из markdown-контента.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-site/internal/http/response"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
)

// Handler управляет HTTP-запросами на создание поста.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания поста.
type Service interface {
	Create(ctx context.Context, req models.CreatePostRequest) (*models.Post, error)
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
// @Summary Создать пост
// @Description Создает пост блога. Новый пост публикуется сразу, если published не передан.
// @Tags Posts
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.CreatePostRequest true "Данные нового поста"
// @Success 201 {object} models.Post "Созданный пост"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /posts [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.post.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreatePostRequest
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

	post, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create post", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}

	log.Info("post created", slog.String("id", post.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, post)
}
