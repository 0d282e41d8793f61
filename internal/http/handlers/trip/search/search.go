// Package search реализует HTTP-обработчик поиска поездок.
//
// Фильтры маршрута ищут подстроку без учёта регистра, дата сравнивается
// с календарным днём отправления в UTC. Пустые фильтры не ограничивают выборку.
package search

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/carpool/internal/http/request"
	"github.com/magabrotheeeer/carpool/internal/http/response"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Service описывает поиск поездок.
type Service interface {
	Search(ctx context.Context, f models.TripFilter) ([]*models.Trip, error)
}

// Handler обрабатывает запросы поиска поездок.
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
// @Summary Поиск поездок
// @Description Сортировка по времени отправления, затем по ID.
// @Tags Trips
// @Produce  json
// @Param start query string false "Подстрока пункта отправления (синоним starting_point)"
// @Param end query string false "Подстрока пункта назначения (синоним ending_point)"
// @Param date query string false "День отправления YYYY-MM-DD или RFC 3339 (синоним starting_at)"
// @Param limit query int false "Размер страницы (по умолчанию 10, не больше 100)"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Trip
// @Failure 422 {object} response.ValidationErrorResponse "Некорректные параметры"
// @Router /trips [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trip.search"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter, fields := ParseFilter(r)
	if fields != nil {
		log.Warn("invalid search parameters", slog.Any("fields", fields))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Fields(fields))
		return
	}

	trips, err := h.service.Search(r.Context(), filter)
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}
	if trips == nil {
		trips = []*models.Trip{}
	}

	render.JSON(w, r, trips)
}

// ParseFilter собирает фильтр поиска из строки запроса.
func ParseFilter(r *http.Request) (models.TripFilter, map[string]string) {
	q := r.URL.Query()
	limit, offset, fields := request.Page(r)
	f := models.TripFilter{
		StartingPoint: first(q.Get("start"), q.Get("starting_point")),
		EndingPoint:   first(q.Get("end"), q.Get("ending_point")),
		Limit:         limit,
		Offset:        offset,
	}

	if raw := first(q.Get("date"), q.Get("starting_at")); raw != "" {
		day, err := parseDay(raw)
		if err != nil {
			if fields == nil {
				fields = map[string]string{}
			}
			fields["date"] = "field date must be a YYYY-MM-DD date or an RFC 3339 timestamp"
		} else {
			f.Date = &day
		}
	}
	return f, fields
}

func parseDay(raw string) (time.Time, error) {
	if day, err := time.Parse(request.DateLayout, raw); err == nil {
		return day, nil
	}
	ts, err := request.Timestamp(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
