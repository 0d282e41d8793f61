package models

import "time"

// Reservation место пользователя в конкретной поездке.
// Пара (UserID, TripID) уникальна.
type Reservation struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	TripID     int64      `json:"trip_id"`
	CreatedAt  time.Time  `json:"created_at"`
	RemindedAt *time.Time `json:"reminded_at,omitempty"`
}

// ReservationInfo объединяет данные бронирования, пассажира и поездки,
// необходимые для отправки уведомлений.
type ReservationInfo struct {
	ReservationID int64
	Email         string
	FirstName     string
	Trip          Trip
}
