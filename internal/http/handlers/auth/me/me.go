// Package me реализует HTTP-обработчик получения текущего пользователя.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-site/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-site/internal/http/response"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-site/internal/models"
)

// Handler управляет HTTP-запросами на получение текущего пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения пользователя по UID.
type Service interface {
	Me(ctx context.Context, userUID string) (*models.User, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Description Возвращает учётную запись, которой принадлежит access-токен.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} models.User "Текущий пользователь"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("not authenticated"))
		return
	}

	user, err := h.service.Me(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}

	render.JSON(w, r, user)
}
