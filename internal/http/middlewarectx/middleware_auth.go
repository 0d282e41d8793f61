// Package middlewarectx содержит HTTP middleware аутентификации, проверки роли
// и ограничения частоты запросов.
//
// JWTMiddleware проверяет bearer-токен из заголовка Authorization и кладёт
// models.Identity в контекст запроса. При ошибке отвечает 401.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/carpool/internal/http/response"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
	access "github.com/magabrotheeeer/carpool/internal/services/access"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// IdentityKey ключ для models.Identity в контексте.
const IdentityKey Key = "identity"

// Verifier проверяет токен и возвращает субъекта запроса.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// WithIdentity возвращает копию ctx с субъектом id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// IdentityFrom достаёт субъекта, положенного JWTMiddleware.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(models.Identity)
	return id, ok
}

// JWTMiddleware возвращает middleware, который пропускает только запросы
// с действующим bearer-токеном.
func JWTMiddleware(auth Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := BearerToken(r)
			if !ok {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			id, err := auth.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, models.ErrInvalidToken) {
					log.Warn("token rejected", sl.Err(err))
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, response.Error("invalid or expired token"))
					return
				}
				log.Error("failed to verify token", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal error"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *id)))
		})
	}
}

// RequireRole пропускает только субъектов с ролью role, остальным отвечает 403.
// Должен стоять после JWTMiddleware.
func RequireRole(role string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if err := access.RequireRole(id, role); err != nil {
				log.Warn("role check failed",
					slog.Int64("user_id", id.UserID),
					slog.String("role", id.Role),
					slog.String("required", role),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(models.ErrForbidden.Error()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
