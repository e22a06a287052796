// Package internal contains the helpers used by the postgres package tests.
package internal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseURLEnv is the environment variable pointing the tests to an
// already running database, instead of starting a new container.
const DatabaseURLEnv = "DATABASE_URL"

// DatabaseURL returns the connection string of the database used by the tests.
//
// When DatabaseURLEnv is not set, a new Postgres container is started with
// testcontainers and terminated at the end of the test.
func DatabaseURL(ctx context.Context, t *testing.T) string {
	t.Helper()

	if dsn, ok := os.LookupEnv(DatabaseURLEnv); ok {
		return dsn
	}

	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("subscriber"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("notasecret"),
		testcontainers.WithWaitStrategy(
			//nolint:mnd // It's ok to use a magic number here.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	t.Cleanup(func() {
		assert.NoError(t, container.Terminate(context.Background()))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get postgres connection string")

	return dsn
}
