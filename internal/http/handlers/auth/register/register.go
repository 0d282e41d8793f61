// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Тело принимается как JSON или как multipart/form-data с необязательным
// файлом avatar. В ответ возвращаются созданный пользователь и JWT.
package register

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

// Service описывает бизнес-логику регистрации.
type Service interface {
	Register(ctx context.Context, in models.NewUser) (*models.User, string, error)
}

// Response тело успешного ответа.
type Response struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Handler обрабатывает запросы на регистрацию.
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
// @Summary Регистрация пользователя
// @Description Создаёт пользователя с ролью user и выдаёт JWT. Аватар (jpeg, png, gif до 2 МиБ) передаётся полем avatar в multipart-форме.
// @Tags Auth
// @Accept  json
// @Accept  mpfd
// @Produce  json
// @Param request body request.UserForm true "Данные пользователя"
// @Success 201 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректное тело запроса"
// @Failure 422 {object} response.ValidationErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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
	}
	if file != nil {
		in.Avatar = file
	}

	user, token, err := h.service.Register(r.Context(), in)
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	log.Info("user registered", slog.Int64("user_id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{User: user, Token: token})
}
