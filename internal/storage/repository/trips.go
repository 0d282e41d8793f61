package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/carpool/internal/models"
)

const tripColumns = `id, starting_point, ending_point, starting_at, total_places, available_places,
	price, user_id, created_at, updated_at`

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	if err := row.Scan(&t.ID, &t.StartingPoint, &t.EndingPoint, &t.StartingAt, &t.TotalPlaces,
		&t.AvailablePlaces, &t.Price, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.StartingAt = t.StartingAt.UTC()
	return &t, nil
}

// CreateTrip сохраняет поездку. Все места изначально свободны.
func (s *Storage) CreateTrip(ctx context.Context, trip models.Trip) (*models.Trip, error) {
	const op = "storage.CreateTrip"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO trips (starting_point, ending_point, starting_at, total_places, available_places, price, user_id)
			  VALUES ($1, $2, $3, $4, $4, $5, $6)
			  RETURNING ` + tripColumns
	created, err := scanTrip(s.DB.QueryRowContext(ctx, query,
		trip.StartingPoint, trip.EndingPoint, trip.StartingAt, trip.TotalPlaces, trip.Price, trip.UserID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetTrip возвращает поездку по ID.
func (s *Storage) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	const op = "storage.GetTrip"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	t, err := scanTrip(s.DB.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrTripNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildSearchQuery собирает запрос поиска поездок по фильтру f.
func buildSearchQuery(f models.TripFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.StartingPoint != "" {
		conds = append(conds, `starting_point ILIKE `+next("%"+likeEscaper.Replace(f.StartingPoint)+"%"))
	}
	if f.EndingPoint != "" {
		conds = append(conds, `ending_point ILIKE `+next("%"+likeEscaper.Replace(f.EndingPoint)+"%"))
	}
	if f.Date != nil {
		conds = append(conds, `(starting_at AT TIME ZONE 'UTC')::date = `+next(f.Date.UTC().Format("2006-01-02"))+`::date`)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + tripColumns + ` FROM trips`)
	if len(conds) > 0 {
		b.WriteString(` WHERE ` + strings.Join(conds, ` AND `))
	}
	b.WriteString(` ORDER BY starting_at, id LIMIT ` + next(f.Limit) + ` OFFSET ` + next(f.Offset))
	return b.String(), args
}

// SearchTrips возвращает поездки, подходящие под фильтр, по времени отправления.
func (s *Storage) SearchTrips(ctx context.Context, f models.TripFilter) ([]*models.Trip, error) {
	const op = "storage.SearchTrips"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query, args := buildSearchQuery(f)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Trip, 0, f.Limit)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateTrip применяет частичное обновление поездки. При смене вместимости
// свободные места пересчитываются как новая вместимость минус число
// бронирований; если бронирований больше, возвращается ErrCapacityBelowReserved.
func (s *Storage) UpdateTrip(ctx context.Context, id int64, patch models.TripPatch) (*models.Trip, error) {
	const op = "storage.UpdateTrip"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	current, err := scanTrip(tx.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrTripNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated := *current
	if patch.StartingPoint != nil {
		updated.StartingPoint = *patch.StartingPoint
	}
	if patch.EndingPoint != nil {
		updated.EndingPoint = *patch.EndingPoint
	}
	if patch.StartingAt != nil {
		updated.StartingAt = *patch.StartingAt
	}
	if patch.Price != nil {
		updated.Price = *patch.Price
	}
	if patch.TotalPlaces != nil {
		var reserved int
		err = tx.QueryRowContext(ctx, `SELECT count(*) FROM reservations WHERE trip_id = $1`, id).Scan(&reserved)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if *patch.TotalPlaces < reserved {
			return nil, fmt.Errorf("%s: %w", op, models.ErrCapacityBelowReserved)
		}
		updated.TotalPlaces = *patch.TotalPlaces
		updated.AvailablePlaces = *patch.TotalPlaces - reserved
	}

	query := `UPDATE trips
			  SET starting_point = $2, ending_point = $3, starting_at = $4,
				  total_places = $5, available_places = $6, price = $7, updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + tripColumns
	result, err := scanTrip(tx.QueryRowContext(ctx, query, id,
		updated.StartingPoint, updated.EndingPoint, updated.StartingAt,
		updated.TotalPlaces, updated.AvailablePlaces, updated.Price))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteTrip удаляет поездку вместе с её бронированиями.
func (s *Storage) DeleteTrip(ctx context.Context, id int64) error {
	const op = "storage.DeleteTrip"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrTripNotFound)
	}
	return nil
}
