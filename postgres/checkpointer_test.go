package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-eventstore-http/internal/checkpointtest"
	"github.com/get-eventually/go-eventstore-http/postgres"
	"github.com/get-eventually/go-eventstore-http/postgres/internal"
)

func TestCheckpointer(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	ctx := context.Background()
	url := internal.DatabaseURL(ctx, t)

	require.NoError(t, postgres.RunMigrations(url))
	require.NoError(t, postgres.RunMigrations(url), "migrations are idempotent")

	conn, err := pgxpool.New(ctx, url)
	require.NoError(t, err)

	defer conn.Close()

	checkpointtest.Suite(postgres.Checkpointer{Conn: conn})(t)
}

func TestRunMigrations_CustomMigrationsTable(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	ctx := context.Background()
	url := internal.DatabaseURL(ctx, t)

	const table = "billing_subscriber_migrations"

	require.NoError(t, postgres.RunMigrations(url, postgres.WithMigrationsTable(table)))
	assert.Error(t, postgres.RunMigrations(url, postgres.WithMigrationsTable("")))

	conn, err := pgxpool.New(ctx, url)
	require.NoError(t, err)

	defer conn.Close()

	var version int64

	require.NoError(t, conn.QueryRow(ctx, "SELECT version FROM "+table).Scan(&version))
	assert.Equal(t, int64(1), version)
}
