package checkpoint

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrClosed is returned by Checkpointers that have been closed.
var ErrClosed = errors.New("checkpoint: checkpointer is closed")

// Checkpointer persists the last successfully processed sequence number
// of a (stream, subscriber id) pair.
//
// Read returns false if no checkpoint has ever been written for the pair,
// meaning the subscription should start from the beginning of the stream.
type Checkpointer interface {
	Read(ctx context.Context, stream, subscriberID string) (int64, bool, error)
	Write(ctx context.Context, stream, subscriberID string, position int64) error
}

// Position is a checkpoint value stored for a (stream, subscriber id) pair.
type Position struct {
	Stream       string
	SubscriberID string
	Position     int64
}

// Lister is implemented by Checkpointers that can enumerate all
// the checkpoints they store.
type Lister interface {
	List(ctx context.Context) ([]Position, error)
}

// SortPositions sorts positions by stream and subscriber id,
// used by Listers to return a stable order.
func SortPositions(positions []Position) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Stream != positions[j].Stream {
			return positions[i].Stream < positions[j].Stream
		}

		return positions[i].SubscriberID < positions[j].SubscriberID
	})
}

type key struct{ stream, subscriberID string }

var (
	_ Checkpointer = new(InMemory)
	_ Lister       = new(InMemory)
)

// InMemory is a thread-safe Checkpointer that keeps checkpoints in memory.
//
// Checkpoints do not survive process restarts: use it for volatile
// subscriptions or tests.
type InMemory struct {
	mx        sync.RWMutex
	positions map[key]int64
}

// NewInMemory returns a new, empty InMemory checkpointer.
func NewInMemory() *InMemory {
	return &InMemory{positions: make(map[key]int64)}
}

// Read implements the checkpoint.Checkpointer interface.
func (c *InMemory) Read(_ context.Context, stream, subscriberID string) (int64, bool, error) {
	c.mx.RLock()
	defer c.mx.RUnlock()

	position, ok := c.positions[key{stream, subscriberID}]

	return position, ok, nil
}

// Write implements the checkpoint.Checkpointer interface.
func (c *InMemory) Write(_ context.Context, stream, subscriberID string, position int64) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.positions == nil {
		c.positions = make(map[key]int64)
	}

	c.positions[key{stream, subscriberID}] = position

	return nil
}

// List implements the checkpoint.Lister interface.
func (c *InMemory) List(context.Context) ([]Position, error) {
	c.mx.RLock()
	defer c.mx.RUnlock()

	positions := make([]Position, 0, len(c.positions))
	for k, v := range c.positions {
		positions = append(positions, Position{Stream: k.stream, SubscriberID: k.subscriberID, Position: v})
	}

	SortPositions(positions)

	return positions, nil
}

// Fixed is a Checkpointer that always starts from a fixed position
// and never persists progress.
//
// Use it for volatile subscriptions that are only interested in events
// appended after a known position.
type Fixed struct{ StartingFrom int64 }

// Read implements the checkpoint.Checkpointer interface.
func (fc Fixed) Read(context.Context, string, string) (int64, bool, error) {
	return fc.StartingFrom, true, nil
}

// Write implements the checkpoint.Checkpointer interface.
func (fc Fixed) Write(context.Context, string, string, int64) error { return nil }
