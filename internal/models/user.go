// Package models содержит доменные структуры сервиса совместных поездок:
// пользователей, поездки, бронирования, события уведомлений и фильтры поиска.
// Структуры используются в бизнес-логике, хранилище и при обмене JSON.
package models

import (
	"io"
	"time"
)

const (
	// RoleUser роль по умолчанию, назначается при регистрации.
	RoleUser = "user"
	// RoleAdmin роль администратора.
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя системы.
// Хэш пароля никогда не сериализуется в JSON.
type User struct {
	ID              int64     `json:"id"`
	LastName        string    `json:"lastname"`
	FirstName       string    `json:"firstname"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	Avatar          *string   `json:"avatar"`
	ReservedTripIDs []int64   `json:"reserved_trip_ids,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsAdmin сообщает, обладает ли пользователь ролью администратора.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserPatch описывает частичное обновление пользователя.
// nil-поле означает «не изменять».
type UserPatch struct {
	LastName     *string
	FirstName    *string
	Email        *string
	PasswordHash *string
	Role         *string
	Avatar       *string
}

// NewUser данные для создания пользователя: при регистрации или администратором.
// Avatar равен nil, если изображение не прислано.
type NewUser struct {
	LastName  string
	FirstName string
	Email     string
	Password  string
	Role      string
	Avatar    io.Reader
}

// UserUpdate частичное изменение пользователя с исходными значениями полей:
// пароль ещё не захеширован, аватар ещё не сохранён.
type UserUpdate struct {
	LastName  *string
	FirstName *string
	Email     *string
	Password  *string
	Role      *string
	Avatar    io.Reader
}

// Identity аутентифицированный субъект запроса, извлечённый из токена.
type Identity struct {
	UserID    int64
	Role      string
	TokenID   string
	ExpiresAt time.Time
}
