package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-site/internal/http/response"
)

// RequireAdmin создает middleware, пропускающий только пользователей с ролью admin.
// Ставится после JWTMiddleware: роль берётся из контекста запроса.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireAdmin"

			role, ok := r.Context().Value(Role).(string)
			if !ok || role == "" {
				log.Error("role missing in context",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("not authenticated"))
				return
			}
			if role != "admin" {
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
