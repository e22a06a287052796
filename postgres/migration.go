package postgres

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Necessary to load the postgres driver used by migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/get-eventually/go-eventstore-http/logger"
)

//go:embed migrations/*.sql
var fs embed.FS

// MigrationsTable is the default table used to keep track of the
// checkpoints schema migrations applied.
const MigrationsTable = "subscriber_schema_migrations"

// MigrationOption customizes the behavior of RunMigrations.
type MigrationOption interface {
	apply(*migrationConfig)
}

type migrationOption func(*migrationConfig)

func (fn migrationOption) apply(c *migrationConfig) { fn(c) }

type migrationConfig struct {
	table  string
	logger logger.Logger
}

// WithMigrationsTable overrides the table keeping track of the applied
// checkpoints schema migrations, which is MigrationsTable by default.
//
// Hosts sharing the same database need distinct tables only if they
// run different versions of the checkpoints schema.
func WithMigrationsTable(table string) MigrationOption {
	return migrationOption(func(c *migrationConfig) {
		c.table = table
	})
}

// WithMigrationsLogger reports the progress of the migrations through
// the specified Logger, at debug level.
func WithMigrationsLogger(l logger.Logger) MigrationOption {
	return migrationOption(func(c *migrationConfig) {
		c.logger = l
	})
}

// migrationLogger bridges migrate's printf-style logging to a Logger.
type migrationLogger struct {
	logger logger.Logger
}

func (l migrationLogger) Printf(format string, v ...interface{}) {
	logger.Debug(l.logger, "running checkpoints schema migration",
		logger.With("progress", strings.TrimSpace(fmt.Sprintf(format, v...))),
	)
}

func (l migrationLogger) Verbose() bool { return false }

// migrationURL returns the dsn that migrate should connect to, pointing
// it to the specified migrations table.
func migrationURL(dsn, table string) (string, error) {
	if table == "" {
		return "", fmt.Errorf("migrations table name is required")
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid dsn format, %w", err)
	}

	q := u.Query()
	q.Set("x-migrations-table", table)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// RunMigrations runs the latest migrations for the checkpoints table.
//
// Make sure to run these in the entrypoint of your application, ideally
// before building a Checkpointer.
func RunMigrations(dsn string, opts ...MigrationOption) error {
	wrapErr := func(err error, msg string) error {
		return fmt.Errorf("postgres.RunMigrations: %s, %w", msg, err)
	}

	cfg := migrationConfig{table: MigrationsTable}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	target, err := migrationURL(dsn, cfg.table)
	if err != nil {
		return wrapErr(err, "failed to build migrations dsn")
	}

	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return wrapErr(err, "failed to create new iofs driver for reading migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, target)
	if err != nil {
		return wrapErr(err, "failed to create new migrate source for running db migrations")
	}

	defer m.Close()

	if cfg.logger != nil {
		m.Log = migrationLogger{logger: cfg.logger}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return wrapErr(err, "failed to execute migrations")
	}

	version, _, err := m.Version()
	if err != nil {
		return wrapErr(err, "failed to read the applied migration version")
	}

	logger.Info(cfg.logger, "checkpoints schema is up to date",
		logger.With("version", version),
		logger.With("migrationsTable", cfg.table),
	)

	return nil
}
