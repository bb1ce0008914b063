// Package logout реализует HTTP-обработчик выхода из админ-панели:
// отзывает все refresh-токены текущего пользователя.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-site/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-site/internal/http/response"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
)

// Handler управляет HTTP-запросами на выход.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выхода.
type Service interface {
	Logout(ctx context.Context, userUID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход из админ-панели
// @Description Отзывает все refresh-токены текущего пользователя.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Выход выполнен"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"
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

	if err := h.service.Logout(r.Context(), userUID); err != nil {
		log.Error("failed to logout", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}

	render.JSON(w, r, map[string]string{"message": "logged out"})
}
