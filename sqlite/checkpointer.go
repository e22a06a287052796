// Package sqlite contains a checkpoint.Checkpointer implementation
// storing the subscription checkpoints in a SQLite database file,
// suitable for single-process deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.

	"github.com/get-eventually/go-eventstore-http/subscription/checkpoint"
)

var (
	_ checkpoint.Checkpointer = new(Checkpointer)
	_ checkpoint.Lister       = new(Checkpointer)
)

// Checkpointer is a checkpoint.Checkpointer implementation using SQLite
// as storage backend.
//
// Use Open to create a new instance.
type Checkpointer struct {
	db     *sql.DB
	mx     sync.RWMutex
	closed bool
}

// Open opens the SQLite database at the specified path, creating
// the checkpoints table if missing.
//
// The path should be a file path (e.g. "./checkpoints.db") or ":memory:" for testing.
func Open(path string) (*Checkpointer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: failed to open database, %w", err)
	}

	// SQLite serializes writes anyway, and ":memory:" databases
	// are not shared between connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.Open: failed to enable WAL mode, %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS subscription_checkpoints (
			stream        TEXT    NOT NULL,
			subscriber_id TEXT    NOT NULL DEFAULT '',
			position      INTEGER NOT NULL,
			updated_at    TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (stream, subscriber_id)
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.Open: failed to create table, %w", err)
	}

	return &Checkpointer{db: db}, nil
}

// Read implements the checkpoint.Checkpointer interface.
func (c *Checkpointer) Read(ctx context.Context, stream, subscriberID string) (int64, bool, error) {
	c.mx.RLock()
	defer c.mx.RUnlock()

	if c.closed {
		return 0, false, checkpoint.ErrClosed
	}

	var position int64

	err := c.db.QueryRowContext(ctx, `
		SELECT position FROM subscription_checkpoints
		WHERE stream = ? AND subscriber_id = ?
	`, stream, subscriberID).Scan(&position)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("sqlite.Checkpointer: failed to read checkpoint, %w", err)
	}

	return position, true, nil
}

// Write implements the checkpoint.Checkpointer interface.
func (c *Checkpointer) Write(ctx context.Context, stream, subscriberID string, position int64) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.closed {
		return checkpoint.ErrClosed
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO subscription_checkpoints (stream, subscriber_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(stream, subscriber_id) DO UPDATE SET
			position = excluded.position,
			updated_at = CURRENT_TIMESTAMP
	`, stream, subscriberID, position)
	if err != nil {
		return fmt.Errorf("sqlite.Checkpointer: failed to write checkpoint, %w", err)
	}

	return nil
}

// List implements the checkpoint.Lister interface.
func (c *Checkpointer) List(ctx context.Context) ([]checkpoint.Position, error) {
	c.mx.RLock()
	defer c.mx.RUnlock()

	if c.closed {
		return nil, checkpoint.ErrClosed
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT stream, subscriber_id, position
		FROM subscription_checkpoints
		ORDER BY stream, subscriber_id
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Checkpointer: failed to list checkpoints, %w", err)
	}
	defer rows.Close()

	var positions []checkpoint.Position

	for rows.Next() {
		var position checkpoint.Position
		if err := rows.Scan(&position.Stream, &position.SubscriberID, &position.Position); err != nil {
			return nil, fmt.Errorf("sqlite.Checkpointer: failed to scan checkpoint, %w", err)
		}

		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.Checkpointer: failed to iterate checkpoints, %w", err)
	}

	return positions, nil
}

// Close closes the underlying database. Closing twice is a no-op.
func (c *Checkpointer) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("sqlite.Checkpointer: failed to close database, %w", err)
	}

	return nil
}
