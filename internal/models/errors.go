package models

import "errors"

// Доменные ошибки. Слой HTTP сопоставляет их со статусами через errors.Is.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailTaken            = errors.New("email has already been taken")
	ErrTripNotFound          = errors.New("trip not found")
	ErrReservationNotFound   = errors.New("reservation not found")
	ErrAlreadyReserved       = errors.New("trip already reserved")
	ErrNoAvailability        = errors.New("no available places")
	ErrCapacityBelowReserved = errors.New("capacity is lower than the number of reservations")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidToken          = errors.New("invalid token")
)
