// Package response содержит типы и функции для формирования единообразных
// JSON-ответов HTTP-обработчиков: ошибок, ошибок валидации и сообщений.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
	"github.com/magabrotheeeer/carpool/internal/storage/avatar"
)

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// ErrorResponse тело ответа с ошибкой.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"trip not found"`
}

// ValidationErrorResponse тело ответа 422 с описанием ошибок по полям.
type ValidationErrorResponse struct {
	Status string            `json:"status" example:"Error"`
	Error  string            `json:"error" example:"validation failed"`
	Fields map[string]string `json:"fields"`
}

// MessageResponse тело ответа, содержащее только сообщение.
type MessageResponse struct {
	Message string `json:"message" example:"trip reserved successfully"`
}

// TokenResponse тело ответа с токеном доступа.
type TokenResponse struct {
	Token string `json:"token"`
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// Message возвращает MessageResponse.
func Message(msg string) MessageResponse {
	return MessageResponse{Message: msg}
}

// Fields формирует ответ 422 из готового набора ошибок по полям.
func Fields(fields map[string]string) ValidationErrorResponse {
	return ValidationErrorResponse{
		Status: StatusError,
		Error:  "validation failed",
		Fields: fields,
	}
}

// ValidationError формирует ответ 422 на основе ошибок валидатора.
// Ключ поля берётся из json-тега, если он задан через RegisterTagNameFunc.
func ValidationError(errs validator.ValidationErrors) ValidationErrorResponse {
	fields := make(map[string]string, len(errs))
	for _, err := range errs {
		name := err.Field()
		switch err.ActualTag() {
		case "required":
			fields[name] = fmt.Sprintf("field %s is a required field", name)
		case "email":
			fields[name] = fmt.Sprintf("field %s must be a valid email address", name)
		case "max":
			fields[name] = fmt.Sprintf("field %s must be at most %s characters long", name, err.Param())
		case "min":
			fields[name] = fmt.Sprintf("field %s must be at least %s characters long", name, err.Param())
		case "gt":
			fields[name] = fmt.Sprintf("field %s must be greater than %s", name, err.Param())
		case "gte":
			fields[name] = fmt.Sprintf("field %s must be greater than or equal to %s", name, err.Param())
		case "lte":
			fields[name] = fmt.Sprintf("field %s must be less than or equal to %s", name, err.Param())
		case "eqfield":
			fields[name] = fmt.Sprintf("field %s does not match", name)
		case "oneof":
			fields[name] = fmt.Sprintf("field %s must be one of: %s", name, strings.ReplaceAll(err.Param(), " ", ", "))
		default:
			fields[name] = fmt.Sprintf("field %s is not valid", name)
		}
	}
	return Fields(fields)
}

// FromError сопоставляет доменную ошибку со статусом HTTP и телом ответа.
// Неизвестные ошибки превращаются в 500 без раскрытия деталей.
func FromError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, models.ErrTripNotFound):
		return http.StatusNotFound, Error(models.ErrTripNotFound.Error())
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, Error(models.ErrUserNotFound.Error())
	case errors.Is(err, models.ErrReservationNotFound):
		return http.StatusNotFound, Error(models.ErrReservationNotFound.Error())
	case errors.Is(err, models.ErrAlreadyReserved):
		return http.StatusBadRequest, Error(models.ErrAlreadyReserved.Error())
	case errors.Is(err, models.ErrNoAvailability):
		return http.StatusBadRequest, Error(models.ErrNoAvailability.Error())
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, Error(models.ErrForbidden.Error())
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, Error(models.ErrInvalidCredentials.Error())
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusUnauthorized, Error(models.ErrInvalidToken.Error())
	default:
		return http.StatusInternalServerError, Error("internal error")
	}
}

// FieldErrors переводит доменные ошибки, относящиеся к конкретному полю,
// в набор ошибок для ответа 422. Для прочих ошибок возвращает nil.
func FieldErrors(err error) map[string]string {
	switch {
	case errors.Is(err, models.ErrEmailTaken):
		return map[string]string{"email": "email has already been taken"}
	case errors.Is(err, models.ErrCapacityBelowReserved):
		return map[string]string{"available_places": "must not be lower than the number of reserved places"}
	case errors.Is(err, avatar.ErrTooLarge):
		return map[string]string{"avatar": "avatar must not exceed 2 MiB"}
	case errors.Is(err, avatar.ErrUnsupportedType):
		return map[string]string{"avatar": "avatar must be a jpeg, png or gif image"}
	default:
		return nil
	}
}

// ServiceError пишет ответ для ошибки бизнес-логики. Ожидаемые отказы
// логируются как предупреждение, внутренние сбои как ошибка.
// Ошибки полей отдаются как 422.
func ServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if fields := FieldErrors(err); fields != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, Fields(fields))
		return
	}
	status, body := FromError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Warn("request rejected", slog.Int("status", status), sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}
