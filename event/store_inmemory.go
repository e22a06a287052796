package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Interface implementation assertion.
var _ Reader = new(InMemoryStore)

// Record is a new event to append to an InMemoryStore.
type Record struct {
	ID   uuid.UUID
	Type string
	Body []byte
}

// InMemoryStore is a thread-safe, in-memory Reader implementation,
// useful for tests and local development.
//
// Events are appended using Append, and can be read back using
// the Reader interface methods. Long-polling reads are supported:
// a forward read on the head of a stream waits for new appends.
type InMemoryStore struct {
	mx      sync.RWMutex
	streams map[string][]Envelope
	bodies  map[string][]byte
	changed chan struct{}
	clock   func() time.Time
}

// NewInMemoryStore creates a new event.InMemoryStore instance.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		streams: make(map[string][]Envelope),
		bodies:  make(map[string][]byte),
		changed: make(chan struct{}),
		clock:   time.Now,
	}
}

func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("event.InMemoryStore: context error, %w", err)
	}

	return nil
}

func linkOf(stream string, number int64) string {
	return fmt.Sprintf("memory://streams/%s/%d", stream, number)
}

// Append inserts the specified records at the end of the stream,
// returning the sequence number of the last appended event.
func (s *InMemoryStore) Append(_ context.Context, stream string, records ...Record) (int64, error) {
	if stream == "" {
		return 0, fmt.Errorf("event.InMemoryStore: stream name is required")
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	entries := s.streams[stream]

	for _, record := range records {
		id := record.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		number := int64(len(entries))
		link := linkOf(stream, number)

		entries = append(entries, Envelope{
			ID:             id,
			Type:           record.Type,
			Content:        record.Body,
			SequenceNumber: number,
			Updated:        s.clock(),
			Link:           link,
			Title:          fmt.Sprintf("%d@%s", number, stream),
		})

		s.bodies[link] = record.Body
	}

	s.streams[stream] = entries

	// Wake up all the long-polling readers.
	close(s.changed)
	s.changed = make(chan struct{})

	return int64(len(entries)) - 1, nil
}

// DeleteBody removes the body of the specified event, simulating
// a replica that has not caught up with the stream yet.
func (s *InMemoryStore) DeleteBody(stream string, number int64) {
	s.mx.Lock()
	defer s.mx.Unlock()

	delete(s.bodies, linkOf(stream, number))
}

func (s *InMemoryStore) slice(stream string, from int64, maxCount int) (Slice, <-chan struct{}) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	entries, ok := s.streams[stream]
	if !ok {
		return Slice{Status: ReadNotFound}, s.changed
	}

	if from < 0 {
		from = 0
	}

	if from >= int64(len(entries)) {
		return Slice{Status: ReadSuccess}, s.changed
	}

	to := int64(len(entries))
	if maxCount > 0 && from+int64(maxCount) < to {
		to = from + int64(maxCount)
	}

	result := make([]Envelope, to-from)
	copy(result, entries[from:to])

	return Slice{Status: ReadSuccess, Entries: result}, s.changed
}

// ReadForward implements the event.Reader interface.
func (s *InMemoryStore) ReadForward(
	ctx context.Context,
	stream string,
	from int64,
	maxCount int,
	longPoll time.Duration,
) (Slice, error) {
	if err := contextErr(ctx); err != nil {
		return Slice{}, err
	}

	result, changed := s.slice(stream, from, maxCount)
	if len(result.Entries) > 0 || longPoll <= 0 {
		return result, nil
	}

	timer := time.NewTimer(longPoll)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Slice{}, contextErr(ctx)
	case <-timer.C:
		return result, nil
	case <-changed:
		result, _ = s.slice(stream, from, maxCount)
		return result, nil
	}
}

// ReadSingle implements the event.Reader interface.
func (s *InMemoryStore) ReadSingle(ctx context.Context, stream string, number int64) (Single, error) {
	if err := contextErr(ctx); err != nil {
		return Single{}, err
	}

	s.mx.RLock()
	defer s.mx.RUnlock()

	entries := s.streams[stream]
	if number < 0 || number >= int64(len(entries)) {
		return Single{Status: ReadNotFound}, nil
	}

	return Single{Status: ReadSuccess, Envelope: entries[number]}, nil
}

// ReadBody implements the event.Reader interface.
func (s *InMemoryStore) ReadBody(ctx context.Context, typ Type, link string) (any, error) {
	if err := contextErr(ctx); err != nil {
		return nil, err
	}

	s.mx.RLock()
	body, ok := s.bodies[link]
	s.mx.RUnlock()

	if !ok {
		return nil, fmt.Errorf("event.InMemoryStore: no body at '%s', %w", link, ErrNotFound)
	}

	return typ.Decode(body)
}
