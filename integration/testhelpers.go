//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aqasim81/migration-ledger/internal/migration"
)

const (
	postgresImage = "postgres:16-alpine"
	testDB        = "migrate_test"
	testUser      = "migrate"
	testPassword  = "migrate"
	appRole       = "nodejs"
)

// StartPostgres starts a PostgreSQL 16 container and returns its host and port.
// The container is terminated when the test completes.
func StartPostgres(t *testing.T) (host, port string) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDB,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err = container.Host(ctx)
	require.NoError(t, err)

	mapped, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return host, mapped.Port()
}

// DSN builds a connection URL; an empty password is left out of the URL.
func DSN(host, port, password string) string {
	userinfo := testUser
	if password != "" {
		userinfo += ":" + password
	}

	return "postgres://" + userinfo + "@" + host + ":" + port + "/" + testDB + "?sslmode=disable"
}

// SetupPostgres starts a container, creates the application role, and returns
// a connection pool. The container and pool are cleaned up when the test completes.
func SetupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, _ := SetupPostgresWithDSN(t)

	return pool
}

// SetupPostgresWithDSN is SetupPostgres that also returns the connection URL,
// password included, for driving the CLI.
func SetupPostgresWithDSN(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	host, port := StartPostgres(t)
	ctx := context.Background()
	dsn := DSN(host, port, testPassword)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	require.NoError(t, pool.Ping(ctx))

	_, err = pool.Exec(ctx, "CREATE ROLE "+appRole)
	require.NoError(t, err)

	return pool, dsn
}

// WriteUnit creates <dir>/<name>/migration.sql containing sql.
func WriteUnit(t *testing.T, dir, name, sql string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name, migration.ScriptName), []byte(sql), 0o600))
}

// LoadUnits reads dir and fails the test on error.
func LoadUnits(t *testing.T, dir string) []migration.Unit {
	t.Helper()

	units, err := migration.LoadFromDir(dir)
	require.NoError(t, err)

	return units
}

// TableExists reports whether a relation with the given name is visible.
func TableExists(t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()

	var exists bool

	err := pool.QueryRow(context.Background(), "SELECT to_regclass($1) IS NOT NULL", name).Scan(&exists)
	require.NoError(t, err)

	return exists
}
