// Package request содержит разбор входных данных HTTP-запросов: валидатор
// с именами полей из json-тегов, параметры пути и формы пользователя.
package request

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

// Предел памяти при разборе multipart-формы; остальное уходит во временные файлы.
const maxMultipartMemory = 8 << 20

// AvatarField имя поля формы с изображением.
const AvatarField = "avatar"

// DateLayout формат календарной даты в параметрах поиска.
const DateLayout = "2006-01-02"

// NewValidator создаёт валидатор, который называет поля по json-тегам.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ID разбирает положительный числовой параметр пути name.
func ID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// Timestamp разбирает время в формате RFC 3339 и приводит его к UTC.
func Timestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Параметры пагинации списков.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page разбирает limit и offset из строки запроса. Пустые значения заменяются
// значениями по умолчанию, limit больше MaxLimit урезается. Некорректные
// значения возвращаются как ошибки полей.
func Page(r *http.Request) (limit, offset int, fields map[string]string) {
	limit, offset = DefaultLimit, 0
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fields = map[string]string{"limit": "field limit must be a positive integer"}
		} else {
			limit = min(n, MaxLimit)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			if fields == nil {
				fields = map[string]string{}
			}
			fields["offset"] = "field offset must be a non-negative integer"
		} else {
			offset = n
		}
	}
	return limit, offset, fields
}

// IsMultipart сообщает, пришло ли тело как multipart/form-data.
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// UserForm данные нового пользователя из JSON или multipart-формы.
type UserForm struct {
	LastName             string `json:"lastname" validate:"required,max=255"`
	FirstName            string `json:"firstname" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Role                 string `json:"role" validate:"omitempty,oneof=user admin"`
}

// UserPatchForm частичное изменение пользователя; nil-поле не меняется.
type UserPatchForm struct {
	LastName             *string `json:"lastname" validate:"omitempty,min=1,max=255"`
	FirstName            *string `json:"firstname" validate:"omitempty,min=1,max=255"`
	Email                *string `json:"email" validate:"omitempty,email,max=255"`
	Password             *string `json:"password" validate:"omitempty,min=8,max=72"`
	PasswordConfirmation *string `json:"password_confirmation"`
	Role                 *string `json:"role" validate:"omitempty,oneof=user admin"`
}

// ConfirmationErrors проверяет совпадение пароля и подтверждения.
func (f UserPatchForm) ConfirmationErrors() map[string]string {
	if f.Password == nil {
		return nil
	}
	if f.PasswordConfirmation == nil || *f.PasswordConfirmation != *f.Password {
		return map[string]string{"password_confirmation": "field password_confirmation does not match"}
	}
	return nil
}

// DecodeUser заполняет dst из тела запроса. Для multipart-формы возвращает
// также файл аватара или nil, если он не прислан. Файл закрывает вызывающий.
func DecodeUser(r *http.Request, dst *UserForm) (multipart.File, error) {
	if !IsMultipart(r) {
		return nil, render.DecodeJSON(r.Body, dst)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, err
	}
	dst.LastName = r.FormValue("lastname")
	dst.FirstName = r.FormValue("firstname")
	dst.Email = r.FormValue("email")
	dst.Password = r.FormValue("password")
	dst.PasswordConfirmation = r.FormValue("password_confirmation")
	dst.Role = r.FormValue("role")
	return avatarFile(r)
}

// DecodeUserPatch заполняет dst из тела запроса, как DecodeUser.
func DecodeUserPatch(r *http.Request, dst *UserPatchForm) (multipart.File, error) {
	if !IsMultipart(r) {
		return nil, render.DecodeJSON(r.Body, dst)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, err
	}
	dst.LastName = formValue(r, "lastname")
	dst.FirstName = formValue(r, "firstname")
	dst.Email = formValue(r, "email")
	dst.Password = formValue(r, "password")
	dst.PasswordConfirmation = formValue(r, "password_confirmation")
	dst.Role = formValue(r, "role")
	return avatarFile(r)
}

func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func avatarFile(r *http.Request) (multipart.File, error) {
	file, _, err := r.FormFile(AvatarField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}
