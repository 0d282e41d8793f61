//go:build integration

package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/carpool/internal/migrations"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(ctx, s))
	return s
}

func createUser(t *testing.T, s *Storage, email string) *models.User {
	u, err := s.CreateUser(context.Background(), models.User{
		LastName: "Doe", FirstName: "Test", Email: email, PasswordHash: "hash", Role: models.RoleUser,
	})
	require.NoError(t, err)
	return u
}

func createTrip(t *testing.T, s *Storage, ownerID int64, from string, places int, at time.Time) *models.Trip {
	trip, err := s.CreateTrip(context.Background(), models.Trip{
		StartingPoint: from, EndingPoint: "Lyon", StartingAt: at, TotalPlaces: places, Price: 10, UserID: ownerID,
	})
	require.NoError(t, err)
	return trip
}

func TestIntegration_ReserveOneSeatScenario(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner@example.com")
	a := createUser(t, s, "a@example.com")
	b := createUser(t, s, "b@example.com")
	trip := createTrip(t, s, owner.ID, "Paris", 1, time.Now().Add(48*time.Hour))

	got, err := s.Reserve(ctx, a.ID, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailablePlaces)

	_, err = s.Reserve(ctx, a.ID, trip.ID)
	require.ErrorIs(t, err, models.ErrAlreadyReserved)

	_, err = s.Reserve(ctx, b.ID, trip.ID)
	require.ErrorIs(t, err, models.ErrNoAvailability)

	ids, err := s.ReservedTripIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, ids, "failed reservation must not leave a row")

	got, err = s.Cancel(ctx, a.ID, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailablePlaces)

	_, err = s.Cancel(ctx, a.ID, trip.ID)
	require.ErrorIs(t, err, models.ErrReservationNotFound)

	_, err = s.Reserve(ctx, b.ID, trip.ID)
	require.NoError(t, err)
}

func TestIntegration_ConcurrentLastSeat(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner@example.com")
	trip := createTrip(t, s, owner.ID, "Paris", 1, time.Now().Add(48*time.Hour))

	const racers = 10
	users := make([]*models.User, racers)
	for i := range racers {
		users[i] = createUser(t, s, "racer"+string(rune('a'+i))+"@example.com")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		noPlaces int
	)
	start := make(chan struct{})
	for _, u := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			<-start
			_, err := s.Reserve(ctx, userID, trip.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case assert.ErrorIs(t, err, models.ErrNoAvailability):
				noPlaces++
			}
		}(u.ID)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, racers-1, noPlaces)

	final, err := s.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, final.AvailablePlaces)
}

func TestIntegration_ConcurrentSameUser(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner@example.com")
	passenger := createUser(t, s, "passenger@example.com")
	trip := createTrip(t, s, owner.ID, "Paris", 5, time.Now().Add(48*time.Hour))

	const attempts = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		booked  int
		doubled int
	)
	start := make(chan struct{})
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Reserve(ctx, passenger.ID, trip.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case assert.ErrorIs(t, err, models.ErrAlreadyReserved):
				doubled++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, booked)
	assert.Equal(t, attempts-1, doubled)

	final, err := s.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, final.AvailablePlaces)

	ids, err := s.ReservedTripIDs(ctx, passenger.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{trip.ID}, ids)
}

func TestIntegration_SearchTrips(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner@example.com")
	day := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	createTrip(t, s, owner.ID, "Paris Nord", 3, day)
	createTrip(t, s, owner.ID, "Marseille", 3, day)
	createTrip(t, s, owner.ID, "paris sud", 3, day.Add(24*time.Hour))

	trips, err := s.SearchTrips(ctx, models.TripFilter{StartingPoint: "PARIS", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, trips, 2)

	trips, err = s.SearchTrips(ctx, models.TripFilter{StartingPoint: "paris", Date: &day, Limit: 10})
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "Paris Nord", trips[0].StartingPoint)

	trips, err = s.SearchTrips(ctx, models.TripFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, trips, 1)
}

func TestIntegration_DeleteUserRestoresSeats(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner@example.com")
	passenger := createUser(t, s, "p@example.com")
	trip := createTrip(t, s, owner.ID, "Paris", 2, time.Now().Add(time.Hour))
	own := createTrip(t, s, passenger.ID, "Nice", 2, time.Now().Add(time.Hour))

	_, err := s.Reserve(ctx, passenger.ID, trip.ID)
	require.NoError(t, err)

	restored, err := s.DeleteUser(ctx, passenger.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{trip.ID, own.ID}, restored)

	got, err := s.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailablePlaces)

	_, err = s.GetTrip(ctx, own.ID)
	require.ErrorIs(t, err, models.ErrTripNotFound)

	_, err = s.CreateUser(ctx, models.User{LastName: "X", FirstName: "Y", Email: "owner@example.com", PasswordHash: "h", Role: models.RoleUser})
	require.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestIntegration_DeleteUserWaitsForInFlightReservation(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner@example.com")
	passenger := createUser(t, s, "p@example.com")
	trip := createTrip(t, s, owner.ID, "Paris", 3, time.Now().Add(time.Hour))

	// Бронирование вставлено, но ещё не зафиксировано.
	tx, err := s.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO reservations (user_id, trip_id) VALUES ($1, $2)`, passenger.ID, trip.ID)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `UPDATE trips SET available_places = available_places - 1 WHERE id = $1`, trip.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.DeleteUser(ctx, passenger.ID)
		done <- err
	}()

	require.Eventually(t, func() bool {
		var waiting int
		err := s.DB.QueryRowContext(ctx,
			`SELECT count(*) FROM pg_stat_activity WHERE wait_event_type = 'Lock' AND datname = current_database()`).
			Scan(&waiting)
		return err == nil && waiting > 0
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, tx.Commit())
	require.NoError(t, <-done)

	got, err := s.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailablePlaces)

	_, err = s.Reserve(ctx, passenger.ID, trip.ID)
	require.ErrorIs(t, err, models.ErrUserNotFound)
}
