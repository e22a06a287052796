package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-eventstore-http/internal/config"
)

const file = `
types:
  - name: OrderEvent
  - name: OrderPaid
    parents: [OrderEvent]
handlers:
  - name: audit
    kind: log
    types: [OrderEvent]
    subscribers: [billing]
subscriptions:
  - stream: orders
    subscriber: billing
    interval: 5s
`

func TestParse(t *testing.T) {
	t.Run("defaults are applied", func(t *testing.T) {
		t.Setenv("SUBSCRIBER_STORE_URL", "http://localhost:2113")

		cfg, err := config.Parse()
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:2113", cfg.Store.URL)
		assert.Equal(t, config.BackendMemory, cfg.Checkpoint.Backend)
		assert.Equal(t, time.Second, cfg.Poll.DefaultInterval)
		assert.Equal(t, 20, cfg.Poll.SliceSize)
		assert.Zero(t, cfg.Poll.LongPollTimeout)
		assert.Equal(t, 3, cfg.Poll.BodyFetchAttempts)
		assert.Equal(t, 500*time.Millisecond, cfg.Poll.BodyFetchDelay)
	})

	t.Run("the store url is required", func(t *testing.T) {
		t.Setenv("SUBSCRIBER_STORE_URL", "")

		_, err := config.Parse()
		assert.Error(t, err)
	})

	t.Run("backends are validated", func(t *testing.T) {
		t.Setenv("SUBSCRIBER_STORE_URL", "http://localhost:2113")
		t.Setenv("SUBSCRIBER_CHECKPOINT_BACKEND", "postgres")

		_, err := config.Parse()
		assert.Error(t, err)

		t.Setenv("SUBSCRIBER_CHECKPOINT_POSTGRES_DSN", "postgres://localhost:5432/subscriber")

		cfg, err := config.Parse()
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost:5432/subscriber", cfg.Checkpoint.PostgresDSN)
		assert.Equal(t, "subscriber_schema_migrations", cfg.Checkpoint.PostgresMigrationsTable)

		t.Setenv("SUBSCRIBER_CHECKPOINT_POSTGRES_MIGRATIONS_TABLE", "billing_migrations")

		cfg, err = config.Parse()
		require.NoError(t, err)
		assert.Equal(t, "billing_migrations", cfg.Checkpoint.PostgresMigrationsTable)

		t.Setenv("SUBSCRIBER_CHECKPOINT_BACKEND", "cassandra")

		_, err = config.Parse()
		assert.Error(t, err)
	})

	t.Run("poll settings are read", func(t *testing.T) {
		t.Setenv("SUBSCRIBER_STORE_URL", "http://localhost:2113")
		t.Setenv("SUBSCRIBER_POLL_LONG_POLL_TIMEOUT", "10s")
		t.Setenv("SUBSCRIBER_POLL_SLICE_SIZE", "100")
		t.Setenv("SUBSCRIBER_SUBSCRIPTIONS", "orders,invoices/billing")

		cfg, err := config.Parse()
		require.NoError(t, err)

		assert.Equal(t, 10*time.Second, cfg.Poll.LongPollTimeout)
		assert.Equal(t, 100, cfg.Poll.SliceSize)
		assert.Equal(t, []string{"orders", "invoices/billing"}, cfg.Subscriptions)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriber.yaml")
	require.NoError(t, os.WriteFile(path, []byte(file), 0o600))

	cfg := &config.Config{File: path, Subscriptions: []string{"orders"}}

	f, err := cfg.LoadFile()
	require.NoError(t, err)

	assert.Equal(t, []config.Type{
		{Name: "OrderEvent"},
		{Name: "OrderPaid", Parents: []string{"OrderEvent"}},
	}, f.Types)
	assert.Equal(t, []config.Handler{
		{Name: "audit", Kind: "log", Types: []string{"OrderEvent"}, Subscribers: []string{"billing"}},
	}, f.Handlers)

	subscriptions, err := cfg.AllSubscriptions(f)
	require.NoError(t, err)
	assert.Equal(t, []config.Subscription{
		{Stream: "orders"},
		{Stream: "orders", Subscriber: "billing", Interval: 5 * time.Second},
	}, subscriptions)

	t.Run("duplicated subscriptions are rejected", func(t *testing.T) {
		cfg := &config.Config{Subscriptions: []string{"orders/billing"}}

		_, err := cfg.AllSubscriptions(f)
		assert.Error(t, err)
	})

	t.Run("no file means no definitions", func(t *testing.T) {
		f, err := (&config.Config{}).LoadFile()
		require.NoError(t, err)
		assert.Empty(t, f.Subscriptions)
	})
}

func TestParseFile(t *testing.T) {
	_, err := config.ParseFile([]byte("handlers:\n  - name: audit\n    kind: webhook\n    types: [OrderPaid]\n"))
	assert.Error(t, err, "unsupported handler kinds are rejected")

	_, err = config.ParseFile([]byte("handlers:\n  - name: audit\n    kind: log\n"))
	assert.Error(t, err, "handlers must handle at least one type")

	_, err = config.ParseFile([]byte("unknown: true\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestParseFile_Empty(t *testing.T) {
	f, err := config.ParseFile(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Types)
}
