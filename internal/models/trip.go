package models

import "time"

// Trip представляет предложение совместной поездки: маршрут, время отправления,
// вместимость, цену и владельца.
//
// Инвариант: 0 <= AvailablePlaces <= TotalPlaces.
type Trip struct {
	ID              int64     `json:"id"`
	StartingPoint   string    `json:"starting_point"`
	EndingPoint     string    `json:"ending_point"`
	StartingAt      time.Time `json:"starting_at"`
	TotalPlaces     int       `json:"total_places"`
	AvailablePlaces int       `json:"available_places"`
	Price           int       `json:"price"`
	UserID          int64     `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TripPatch описывает частичное обновление поездки владельцем.
// TotalPlaces задаёт новую вместимость; свободные места пересчитываются хранилищем.
type TripPatch struct {
	StartingPoint *string
	EndingPoint   *string
	StartingAt    *time.Time
	TotalPlaces   *int
	Price         *int
}

// DummyTrip используется для приёма данных новой поездки из JSON-запроса.
// Время отправления приходит строкой в формате RFC 3339. Числовые поля
// ограничены диапазоном INTEGER в базе.
type DummyTrip struct {
	StartingPoint   string `json:"starting_point" validate:"required,max=255"`
	EndingPoint     string `json:"ending_point" validate:"required,max=255"`
	StartingAt      string `json:"starting_at" validate:"required"`
	AvailablePlaces int    `json:"available_places" validate:"required,gt=0,lte=2147483647"`
	Price           int    `json:"price" validate:"gte=0,lte=2147483647"`
}

// DummyTripPatch принимает частичное обновление поездки из JSON-запроса.
type DummyTripPatch struct {
	StartingPoint   *string `json:"starting_point" validate:"omitempty,min=1,max=255"`
	EndingPoint     *string `json:"ending_point" validate:"omitempty,min=1,max=255"`
	StartingAt      *string `json:"starting_at" validate:"omitempty,min=1"`
	AvailablePlaces *int    `json:"available_places" validate:"omitempty,gt=0,lte=2147483647"`
	Price           *int    `json:"price" validate:"omitempty,gte=0,lte=2147483647"`
}
