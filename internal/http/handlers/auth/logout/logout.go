// Package logout реализует HTTP-обработчик отзыва текущего токена.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/carpool/internal/http/middlewarectx"
	"github.com/magabrotheeeer/carpool/internal/http/response"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Service описывает отзыв токена.
type Service interface {
	Logout(ctx context.Context, id models.Identity) error
}

// Handler обрабатывает выход пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Description Отзывает предъявленный токен; последующие запросы с ним получают 401.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.MessageResponse
// @Failure 401 {object} response.ErrorResponse "Токен отсутствует или недействителен"
// @Failure 500 {object} response.ErrorResponse "Не удалось отозвать токен"
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		log.Error("identity not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Logout(r.Context(), id); err != nil {
		log.Error("failed to revoke token", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not log out"))
		return
	}

	render.JSON(w, r, response.Message("successfully logged out"))
}
