// Package host wires together the components of the subscriber host process
// from its configuration: the remote store reader, the checkpoints backend,
// the event types catalog, the handlers and the performance monitors.
package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/get-eventually/go-eventstore-http/atom"
	"github.com/get-eventually/go-eventstore-http/event"
	esfirestore "github.com/get-eventually/go-eventstore-http/firestore"
	"github.com/get-eventually/go-eventstore-http/handler"
	"github.com/get-eventually/go-eventstore-http/internal/config"
	"github.com/get-eventually/go-eventstore-http/logger"
	"github.com/get-eventually/go-eventstore-http/monitor"
	"github.com/get-eventually/go-eventstore-http/opentelemetry"
	"github.com/get-eventually/go-eventstore-http/postgres"
	"github.com/get-eventually/go-eventstore-http/sqlite"
	"github.com/get-eventually/go-eventstore-http/subscription"
	"github.com/get-eventually/go-eventstore-http/subscription/checkpoint"
)

// Host is the set of components of a running subscriber host.
//
// Use New to create a new instance, and Close to release its resources.
type Host struct {
	Engine       *subscription.Engine
	Checkpointer checkpoint.Checkpointer
	Stats        *monitor.Stats
	Types        *event.Types
	Handlers     *handler.Registry

	logger  logger.Logger
	closers []func() error
}

// New builds all the components of the subscriber host.
func New(ctx context.Context, cfg *config.Config, file *config.File, l logger.Logger) (*Host, error) {
	h := &Host{logger: l, Stats: monitor.NewStats()}

	types, err := NewTypes(file.Types)
	if err != nil {
		return nil, fmt.Errorf("host.New: %w", err)
	}

	registry, err := NewRegistry(file.Handlers, l)
	if err != nil {
		return nil, fmt.Errorf("host.New: %w", err)
	}

	h.Types, h.Handlers = types, registry

	reader, err := newReader(cfg, logger.Scoped(l, logger.With("component", "atom")))
	if err != nil {
		return nil, fmt.Errorf("host.New: %w", err)
	}

	instrumentation := []opentelemetry.Option{
		opentelemetry.WithAttributes(attribute.String("service.instance.id", instanceID())),
	}

	performance, err := opentelemetry.NewPerformanceMonitor(instrumentation...)
	if err != nil {
		return nil, fmt.Errorf("host.New: failed to create performance monitor, %w", err)
	}

	intervals, err := opentelemetry.NewIntervalMonitor(instrumentation...)
	if err != nil {
		return nil, fmt.Errorf("host.New: failed to create interval monitor, %w", err)
	}

	if err := h.openCheckpointer(ctx, cfg); err != nil {
		return nil, fmt.Errorf("host.New: %w", err)
	}

	h.Engine = subscription.NewEngine(reader, h.Checkpointer, types, registry,
		subscription.WithLogger(l),
		subscription.WithDefaultInterval(cfg.Poll.DefaultInterval),
		subscription.WithSliceSize(cfg.Poll.SliceSize),
		subscription.WithLongPollTimeout(cfg.Poll.LongPollTimeout),
		subscription.WithBodyFetchRetry(cfg.Poll.BodyFetchAttempts, cfg.Poll.BodyFetchDelay),
		subscription.WithPerformanceMonitors(h.Stats, performance, monitor.LogMonitor{Logger: l}),
		subscription.WithIntervalMonitor(intervals),
	)

	return h, nil
}

func instanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return hostname
}

func newReader(cfg *config.Config, l logger.Logger) (event.Reader, error) {
	opts := []atom.Option{
		atom.WithLogger(l),
		atom.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	}

	if cfg.Store.Username != "" {
		opts = append(opts, atom.WithBasicAuth(cfg.Store.Username, cfg.Store.Password))
	}

	client, err := atom.NewClient(cfg.Store.URL, opts...)
	if err != nil {
		return nil, err
	}

	reader, err := opentelemetry.NewInstrumentedReader(client)
	if err != nil {
		return nil, fmt.Errorf("failed to instrument reader, %w", err)
	}

	return reader, nil
}

func (h *Host) openCheckpointer(ctx context.Context, cfg *config.Config) error {
	switch cfg.Checkpoint.Backend {
	case config.BackendSQLite:
		c, err := sqlite.Open(cfg.Checkpoint.SQLitePath)
		if err != nil {
			return err
		}

		h.Checkpointer = c
		h.closers = append(h.closers, c.Close)

	case config.BackendPostgres:
		if err := postgres.RunMigrations(cfg.Checkpoint.PostgresDSN,
			postgres.WithMigrationsTable(cfg.Checkpoint.PostgresMigrationsTable),
			postgres.WithMigrationsLogger(logger.Scoped(h.logger, logger.With("component", "migrations"))),
		); err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, cfg.Checkpoint.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres, %w", err)
		}

		h.Checkpointer = postgres.Checkpointer{Conn: pool}
		h.closers = append(h.closers, func() error {
			pool.Close()
			return nil
		})

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.Checkpoint.FirestoreProject)
		if err != nil {
			return fmt.Errorf("failed to connect to firestore, %w", err)
		}

		h.Checkpointer = esfirestore.Checkpointer{Client: client, Collection: cfg.Checkpoint.FirestoreCollection}
		h.closers = append(h.closers, client.Close)

	default:
		h.Checkpointer = checkpoint.NewInMemory()
	}

	logger.Info(h.logger, "checkpoints backend opened", logger.With("backend", cfg.Checkpoint.Backend))

	return nil
}

// Subscribe subscribes the Engine to all the specified subscriptions.
func (h *Host) Subscribe(ctx context.Context, subscriptions []config.Subscription) error {
	for _, s := range subscriptions {
		if err := h.Engine.SubscribeTo(ctx, s.Stream, s.Subscriber, s.Interval); err != nil {
			return fmt.Errorf("host.Host: failed to subscribe to '%s', %w", s.Stream, err)
		}
	}

	return nil
}

// ReportStats logs the processing statistics of every stream
// with the specified period, until the context is canceled.
func (h *Host) ReportStats(ctx context.Context, period time.Duration) {
	if period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range h.Stats.Snapshot() {
				logger.Info(h.logger, "stream statistics",
					logger.With("stream", s.Stream),
					logger.With("seen", s.Seen),
					logger.With("processed", s.Processed),
					logger.With("failed", s.Failed),
					logger.With("lag", s.Lag),
					logger.With("throughput", s.Throughput()),
				)
			}
		}
	}
}

// Close stops all the subscriptions and releases the resources
// used by the checkpoints backend.
func (h *Host) Close() error {
	if h.Engine != nil {
		h.Engine.Close()
	}

	var errs []error

	for _, closeFn := range h.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("host.Host: failed to close, %w", err)
	}

	return nil
}
