// Package reserve реализует HTTP-обработчик бронирования места в поездке.
package reserve

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/carpool/internal/http/middlewarectx"
	"github.com/magabrotheeeer/carpool/internal/http/request"
	"github.com/magabrotheeeer/carpool/internal/http/response"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Request тело запроса на бронирование.
type Request struct {
	TripID int64 `json:"trip_id" validate:"required,gt=0"`
}

// Service описывает бронирование места.
type Service interface {
	Reserve(ctx context.Context, userID, tripID int64) (*models.Trip, error)
}

// Handler обрабатывает запросы на бронирование.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: request.NewValidator(),
	}
}

// ServeHTTP godoc
// @Summary Забронировать место
// @Description Бронирует одно место в поездке для текущего пользователя и отправляет письмо-подтверждение.
// @Tags Reservations
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "ID поездки"
// @Success 201 {object} response.MessageResponse
// @Failure 400 {object} response.ErrorResponse "Уже забронировано или нет мест"
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Поездка не найдена"
// @Failure 422 {object} response.ValidationErrorResponse "Ошибка валидации"
// @Router /reservation [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reservation.reserve"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		log.Error("identity not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	trip, err := h.service.Reserve(r.Context(), identity.UserID, req.TripID)
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	log.Info("trip reserved",
		slog.Int64("user_id", identity.UserID),
		slog.Int64("trip_id", trip.ID),
		slog.Int("available_places", trip.AvailablePlaces),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.Message("trip reserved successfully"))
}
