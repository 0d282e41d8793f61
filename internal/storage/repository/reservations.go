package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/carpool/internal/models"
)

// Reserve бронирует место пользователя userID в поездке tripID.
//
// Строка поездки блокируется до конца транзакции, поэтому попытки
// забронировать одну поездку выполняются строго по очереди, а разные
// поездки друг друга не ждут. Проверки идут в порядке: поездка существует,
// пользователь ещё не бронировал её, есть свободное место. Если
// пользователь удалён параллельно, вставка нарушает внешний ключ и
// возвращается ErrUserNotFound. При любой ошибке транзакция откатывается
// и данные не меняются.
func (s *Storage) Reserve(ctx context.Context, userID, tripID int64) (*models.Trip, error) {
	const op = "storage.Reserve"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM trips WHERE id = $1 FOR UPDATE`, tripID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrTripNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var reservationID int64
	err = tx.QueryRowContext(ctx, `INSERT INTO reservations (user_id, trip_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, trip_id) DO NOTHING
		RETURNING id`, userID, tripID).Scan(&reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrAlreadyReserved)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	trip, err := scanTrip(tx.QueryRowContext(ctx, `UPDATE trips
		SET available_places = available_places - 1, updated_at = NOW()
		WHERE id = $1 AND available_places > 0
		RETURNING `+tripColumns, tripID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNoAvailability)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return trip, nil
}

// Cancel удаляет бронирование пользователя userID в поездке tripID и
// возвращает место, не превышая общей вместимости.
func (s *Storage) Cancel(ctx context.Context, userID, tripID int64) (*models.Trip, error) {
	const op = "storage.Cancel"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	trip, err := scanTrip(tx.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, tripID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrTripNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE user_id = $1 AND trip_id = $2`, userID, tripID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrReservationNotFound)
	}

	updated, err := scanTrip(tx.QueryRowContext(ctx, `UPDATE trips
		SET available_places = available_places + 1, updated_at = NOW()
		WHERE id = $1 AND available_places < total_places
		RETURNING `+tripColumns, tripID))
	switch {
	case err == nil:
		trip = updated
	case errors.Is(err, sql.ErrNoRows):
		// места уже на максимуме, удаляем только бронь
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return trip, nil
}

// ReservedTripIDs возвращает ID поездок, забронированных пользователем.
func (s *Storage) ReservedTripIDs(ctx context.Context, userID int64) ([]int64, error) {
	const op = "storage.ReservedTripIDs"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT trip_id FROM reservations WHERE user_id = $1 ORDER BY trip_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

// DueReminders возвращает бронирования без напоминания на поездки,
// отправляющиеся в интервале (now, now+horizon].
func (s *Storage) DueReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]models.ReservationInfo, error) {
	const op = "storage.DueReminders"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT r.id, u.email, u.firstname,
				  t.id, t.starting_point, t.ending_point, t.starting_at, t.total_places,
				  t.available_places, t.price, t.user_id, t.created_at, t.updated_at
			  FROM reservations r
			  JOIN users u ON u.id = r.user_id
			  JOIN trips t ON t.id = r.trip_id
			  WHERE r.reminded_at IS NULL
				AND t.starting_at > $1
				AND t.starting_at <= $2
			  ORDER BY t.starting_at, r.id`
	rows, err := s.DB.QueryContext(ctx, query, now, now.Add(horizon))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ReservationInfo
	for rows.Next() {
		var info models.ReservationInfo
		t := &info.Trip
		if err := rows.Scan(&info.ReservationID, &info.Email, &info.FirstName,
			&t.ID, &t.StartingPoint, &t.EndingPoint, &t.StartingAt, &t.TotalPlaces,
			&t.AvailablePlaces, &t.Price, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		t.StartingAt = t.StartingAt.UTC()
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkReminded отмечает, что по бронированию отправлено напоминание.
func (s *Storage) MarkReminded(ctx context.Context, reservationID int64, at time.Time) error {
	const op = "storage.MarkReminded"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx, `UPDATE reservations SET reminded_at = $2 WHERE id = $1`, reservationID, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
