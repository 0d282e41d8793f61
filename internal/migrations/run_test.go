//go:build integration

package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/carpool/internal/lib/password"
)

func getTestDB(t *testing.T) *sql.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return db
}

func migrationsPath(t *testing.T) string {
	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	return filepath.Join(root, "migrations")
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestRunMigrations(t *testing.T) {
	db := getTestDB(t)

	require.NoError(t, Run(db, migrationsPath(t)))

	for _, table := range []string{"users", "trips", "reservations"} {
		require.Truef(t, tableExists(t, db, table), "table %s should exist", table)
	}

	var hash string
	err := db.QueryRow(`SELECT password_hash FROM users WHERE email = 'admin@carpool.local' AND role = 'admin'`).Scan(&hash)
	require.NoError(t, err)
	require.NoError(t, password.CompareHash(hash, "changeme-admin"))
}

func TestRunMigrations_PlacesConstraint(t *testing.T) {
	db := getTestDB(t)
	require.NoError(t, Run(db, migrationsPath(t)))

	var ownerID int64
	require.NoError(t, db.QueryRow(`SELECT id FROM users LIMIT 1`).Scan(&ownerID))

	_, err := db.Exec(`INSERT INTO trips (starting_point, ending_point, starting_at, total_places, available_places, price, user_id)
		VALUES ('A', 'B', NOW(), 2, 3, 0, $1)`, ownerID)
	require.Error(t, err)

	_, err = db.Exec(`INSERT INTO trips (starting_point, ending_point, starting_at, total_places, available_places, price, user_id)
		VALUES ('A', 'B', NOW(), 2, -1, 0, $1)`, ownerID)
	require.Error(t, err)
}

func TestMigrationIdempotency(t *testing.T) {
	db := getTestDB(t)
	path := migrationsPath(t)

	require.NoError(t, Run(db, path))
	require.NoError(t, Run(db, path))

	var adminCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&adminCount))
	require.Equal(t, 1, adminCount)
}
