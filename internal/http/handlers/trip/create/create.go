// Package create реализует HTTP-обработчик публикации поездки.
package create

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

// Service описывает создание поездки.
type Service interface {
	Create(ctx context.Context, owner models.Identity, trip models.Trip) (*models.Trip, error)
}

// Handler обрабатывает запросы на создание поездки.
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
// @Summary Создать поездку
// @Description Владельцем становится текущий пользователь; available_places задаёт вместимость.
// @Tags Trips
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyTrip true "Данные поездки"
// @Success 201 {object} models.Trip
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ValidationErrorResponse "Ошибка валидации"
// @Router /trips [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trip.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	owner, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		log.Error("identity not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req models.DummyTrip
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

	startingAt, err := request.Timestamp(req.StartingAt)
	if err != nil {
		log.Warn("invalid departure time", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Fields(map[string]string{
			"starting_at": "field starting_at must be an RFC 3339 timestamp",
		}))
		return
	}

	trip, err := h.service.Create(r.Context(), owner, models.Trip{
		StartingPoint: req.StartingPoint,
		EndingPoint:   req.EndingPoint,
		StartingAt:    startingAt,
		TotalPlaces:   req.AvailablePlaces,
		Price:         req.Price,
	})
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, trip)
}
