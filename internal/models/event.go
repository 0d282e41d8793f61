package models

import "time"

const (
	// EventReservationConfirmed бронирование подтверждено.
	EventReservationConfirmed = "reservation.confirmed"
	// EventReservationCancelled бронирование отменено.
	EventReservationCancelled = "reservation.cancelled"
	// EventTripReminder напоминание о скором отправлении.
	EventTripReminder = "trip.reminder"
)

// ReservationEvent сообщение, публикуемое в RabbitMQ для сервиса отправки писем.
// Kind совпадает с routing key.
type ReservationEvent struct {
	Kind          string    `json:"kind"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstname"`
	TripID        int64     `json:"trip_id"`
	StartingPoint string    `json:"starting_point"`
	EndingPoint   string    `json:"ending_point"`
	StartingAt    time.Time `json:"starting_at"`
	Price         int       `json:"price"`
}

// NewReservationEvent собирает событие из данных пассажира и поездки.
func NewReservationEvent(kind, email, firstName string, trip *Trip) ReservationEvent {
	return ReservationEvent{
		Kind:          kind,
		Email:         email,
		FirstName:     firstName,
		TripID:        trip.ID,
		StartingPoint: trip.StartingPoint,
		EndingPoint:   trip.EndingPoint,
		StartingAt:    trip.StartingAt,
		Price:         trip.Price,
	}
}
