// Package create реализует HTTP-обработчик создания пользователя администратором.
//
// В отличие от регистрации администратор может назначить роль; токен не выдаётся.
package create

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

// Service описывает создание пользователя.
type Service interface {
	Create(ctx context.Context, in models.NewUser) (*models.User, error)
}

// Handler обрабатывает запросы на создание пользователя.
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
// @Summary Создать пользователя
// @Description Роль необязательна (user по умолчанию), допустимы user и admin.
// @Tags Users
// @Accept  json
// @Accept  mpfd
// @Produce  json
// @Security BearerAuth
// @Param request body request.UserForm true "Данные пользователя"
// @Success 201 {object} models.User
// @Failure 400 {object} response.ErrorResponse "Некорректное тело запроса"
// @Failure 403 {object} response.ErrorResponse "Нужна роль admin"
// @Failure 422 {object} response.ValidationErrorResponse "Ошибка валидации"
// @Router /users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req request.UserForm
	file, err := request.DecodeUser(r, &req)
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

	in := models.NewUser{
		LastName:  req.LastName,
		FirstName: req.FirstName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	}
	if file != nil {
		in.Avatar = file
	}

	user, err := h.service.Create(r.Context(), in)
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	log.Info("user created", slog.Int64("user_id", user.ID), slog.String("role", user.Role))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user)
}
