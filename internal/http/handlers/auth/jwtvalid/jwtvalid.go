// Package jwtvalid реализует проверку предъявленного bearer-токена.
package jwtvalid

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/carpool/internal/http/middlewarectx"
	"github.com/magabrotheeeer/carpool/internal/http/response"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Response результат проверки.
type Response struct {
	Valid bool `json:"valid"`
}

// Handler сообщает, действителен ли токен из заголовка Authorization.
type Handler struct {
	log     *slog.Logger
	service middlewarectx.Verifier
}

// New создает новый Handler.
func New(log *slog.Logger, service middlewarectx.Verifier) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверка токена
// @Description Возвращает valid=true, если токен подписан, не истёк и не отозван.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /jwt-valid [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.jwtvalid"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token, ok := middlewarectx.BearerToken(r)
	if !ok {
		render.JSON(w, r, Response{Valid: false})
		return
	}

	_, err := h.service.Verify(r.Context(), token)
	switch {
	case err == nil:
		render.JSON(w, r, Response{Valid: true})
	case errors.Is(err, models.ErrInvalidToken):
		log.Debug("token is not valid", sl.Err(err))
		render.JSON(w, r, Response{Valid: false})
	default:
		log.Error("failed to verify token", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
	}
}
