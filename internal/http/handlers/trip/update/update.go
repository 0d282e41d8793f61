// Package update реализует HTTP-обработчик изменения поездки владельцем.
//
// Права проверяются до разбора тела: чужая поездка даёт 403 при любом
// содержимом запроса, несуществующая 404.
package update

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

// Service описывает проверку прав и изменение поездки.
type Service interface {
	Authorize(ctx context.Context, requester models.Identity, id int64, allowAdmin bool) (*models.Trip, error)
	Update(ctx context.Context, requester models.Identity, id int64, patch models.TripPatch) (*models.Trip, error)
}

// Handler обрабатывает запросы на изменение поездки.
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
// @Summary Изменить поездку
// @Description Меняет только переданные поля. Новая вместимость не может быть меньше числа забронированных мест.
// @Tags Trips
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID поездки"
// @Param request body models.DummyTripPatch true "Изменяемые поля"
// @Success 200 {object} models.Trip
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 403 {object} response.ErrorResponse "Поездка принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Поездка не найдена"
// @Failure 422 {object} response.ValidationErrorResponse "Ошибка валидации"
// @Router /trips/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trip.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		log.Error("identity not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, err := request.ID(r, "id")
	if err != nil {
		log.Warn("failed to decode id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	if _, err := h.service.Authorize(r.Context(), requester, id, false); err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	var req models.DummyTripPatch
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

	patch := models.TripPatch{
		StartingPoint: req.StartingPoint,
		EndingPoint:   req.EndingPoint,
		TotalPlaces:   req.AvailablePlaces,
		Price:         req.Price,
	}
	if req.StartingAt != nil {
		startingAt, err := request.Timestamp(*req.StartingAt)
		if err != nil {
			log.Warn("invalid departure time", sl.Err(err))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Fields(map[string]string{
				"starting_at": "field starting_at must be an RFC 3339 timestamp",
			}))
			return
		}
		patch.StartingAt = &startingAt
	}

	trip, err := h.service.Update(r.Context(), requester, id, patch)
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	render.JSON(w, r, trip)
}
