// Package refresh реализует HTTP-обработчик обмена refresh-токена
// на новый access-токен. Сам refresh-токен при обмене не ротируется.
package refresh

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
	"github.com/magabrotheeeer/subscription-site/internal/services/auth"
)

// Handler управляет HTTP-запросами на обновление access-токена.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики обновления токена.
type Service interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// RefreshResponse описывает тело успешного ответа на обновление.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ServeHTTP godoc
// @Summary Обновить access-токен
// @Description Обменивает действующий refresh-токен на новый access-токен.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.RefreshRequest true "Refresh-токен"
// @Success 200 {object} RefreshResponse "Новый access-токен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неизвестный, отозванный или истёкший токен"
// @Router /auth/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.RefreshRequest
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

	access, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			log.Info("refresh token rejected")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid refresh token"))
			return
		}
		log.Error("failed to refresh token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}

	render.JSON(w, r, RefreshResponse{
		AccessToken: access,
		TokenType:   "bearer",
	})
}
