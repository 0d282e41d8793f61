// Package update реализует HTTP-обработчик частичного изменения пользователя.
package update

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/carpool/internal/http/request"
	"github.com/magabrotheeeer/carpool/internal/http/response"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Service описывает изменение пользователя.
type Service interface {
	Update(ctx context.Context, id int64, in models.UserUpdate) (*models.User, error)
}

// Handler обрабатывает запросы на изменение пользователя.
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
// @Summary Изменить пользователя
// @Description Меняет только переданные поля. Новый пароль требует password_confirmation.
// @Tags Users
// @Accept  json
// @Accept  mpfd
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body request.UserPatchForm true "Изменяемые поля"
// @Success 200 {object} models.User
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или тело запроса"
// @Failure 403 {object} response.ErrorResponse "Нужна роль admin"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ValidationErrorResponse "Ошибка валидации"
// @Router /users/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		log.Warn("failed to decode id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	var req request.UserPatchForm
	file, err := request.DecodeUserPatch(r, &req)
	if err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	if file != nil {
		defer file.Close()
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	if fields := req.ConfirmationErrors(); fields != nil {
		log.Warn("password confirmation mismatch")
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Fields(fields))
		return
	}

	in := models.UserUpdate{
		LastName:  req.LastName,
		FirstName: req.FirstName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	}
	if file != nil {
		in.Avatar = file
	}

	user, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	log.Info("user updated", slog.Int64("user_id", id))
	render.JSON(w, r, user)
}
