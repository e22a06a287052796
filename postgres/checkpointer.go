// Package postgres contains a checkpoint.Checkpointer implementation
// storing the subscription checkpoints in a PostgreSQL database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/get-eventually/go-eventstore-http/subscription/checkpoint"
)

var (
	_ checkpoint.Checkpointer = Checkpointer{}
	_ checkpoint.Lister       = Checkpointer{}
)

// Checkpointer is a checkpoint.Checkpointer implementation using PostgreSQL
// as storage backend.
//
// The implementation uses the "subscription_checkpoints" table, created by RunMigrations.
type Checkpointer struct {
	Conn *pgxpool.Pool
}

// Read implements the checkpoint.Checkpointer interface.
func (c Checkpointer) Read(ctx context.Context, stream, subscriberID string) (int64, bool, error) {
	var position int64

	err := c.Conn.QueryRow(
		ctx,
		`SELECT position FROM subscription_checkpoints
		WHERE stream = $1 AND subscriber_id = $2`,
		stream, subscriberID,
	).Scan(&position)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("postgres.Checkpointer: failed to read checkpoint, %w", err)
	}

	return position, true, nil
}

// Write implements the checkpoint.Checkpointer interface.
func (c Checkpointer) Write(ctx context.Context, stream, subscriberID string, position int64) error {
	_, err := c.Conn.Exec(
		ctx,
		`INSERT INTO subscription_checkpoints (stream, subscriber_id, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (stream, subscriber_id)
		DO UPDATE SET position = EXCLUDED.position, updated_at = NOW()`,
		stream, subscriberID, position,
	)
	if err != nil {
		return fmt.Errorf("postgres.Checkpointer: failed to write checkpoint, %w", err)
	}

	return nil
}

// List implements the checkpoint.Lister interface.
func (c Checkpointer) List(ctx context.Context) ([]checkpoint.Position, error) {
	rows, err := c.Conn.Query(
		ctx,
		`SELECT stream, subscriber_id, position FROM subscription_checkpoints
		ORDER BY stream, subscriber_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres.Checkpointer: failed to query checkpoints, %w", err)
	}

	positions, err := pgx.CollectRows(rows, pgx.RowToStructByPos[checkpoint.Position])
	if err != nil {
		return nil, fmt.Errorf("postgres.Checkpointer: failed to scan checkpoints, %w", err)
	}

	return positions, nil
}
