package event

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Reader.ReadBody when the body of an event
// could not be found. The remote store might be eventually consistent
// across replicas, so callers usually treat this error as transient.
var ErrNotFound = errors.New("event: not found")

// Reader is the pull-based interface used to consume an Event Stream
// from a remote store.
type Reader interface {
	// ReadForward reads up to maxCount entries starting from the specified
	// position (inclusive). If longPoll is greater than zero, the remote store
	// may hold the request up to that duration when no new events exist yet.
	ReadForward(ctx context.Context, stream string, from int64, maxCount int, longPoll time.Duration) (Slice, error)

	// ReadSingle reads the entry at the specified absolute event number.
	ReadSingle(ctx context.Context, stream string, number int64) (Single, error)

	// ReadBody fetches the event body from the canonical link, and decodes
	// it using the provided event Type.
	ReadBody(ctx context.Context, typ Type, link string) (any, error)
}
