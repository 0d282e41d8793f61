package models

import "time"

// TripFilter параметры поиска поездок, передаваемые в слой доступа к данным.
// Пустые поля не ограничивают выборку, заданные объединяются через AND.
type TripFilter struct {
	StartingPoint string     // Подстрока пункта отправления (без учёта регистра)
	EndingPoint   string     // Подстрока пункта назначения (без учёта регистра)
	Date          *time.Time // Календарный день отправления в UTC (nil, если без фильтра)
	Limit         int
	Offset        int
}
