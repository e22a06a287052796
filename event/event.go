// Package event contains the read-side model of the remote event stream:
// the envelopes read from it, the Reader contract used to pull them and the
// catalog of event types known by this process.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is a single entry read from an Event Stream.
//
// Envelopes are immutable once read: the body of the event is not decoded,
// Content only contains the raw bytes if the remote store embedded them
// in the feed.
type Envelope struct {
	// ID is the unique identifier of the event, as assigned by the writer.
	ID uuid.UUID

	// Type is the event type name, used to resolve the handlers.
	Type string

	// Content is the raw event body, if embedded in the read response.
	Content []byte

	// SequenceNumber is the position of the event in its stream, starting from 0.
	SequenceNumber int64

	// Updated is the last-modified timestamp reported by the remote store.
	Updated time.Time

	// Link is the canonical URI used to retrieve the event body.
	Link string

	// Title is the human-readable entry title (e.g. "3@orders").
	Title string
}

// ReadStatus is the outcome of a read performed on the remote store.
type ReadStatus int

// Possible ReadStatus values.
const (
	ReadSuccess ReadStatus = iota
	ReadNotFound
	ReadEndOfStream
)

func (s ReadStatus) String() string {
	switch s {
	case ReadSuccess:
		return "success"
	case ReadNotFound:
		return "not-found"
	case ReadEndOfStream:
		return "end-of-stream"
	default:
		return "unknown"
	}
}

// Slice is the result of a forward read: entries are always returned
// in ascending SequenceNumber order.
type Slice struct {
	Status  ReadStatus
	Entries []Envelope
}

// Single is the result of a read targeting one specific event.
type Single struct {
	Status   ReadStatus
	Envelope Envelope
}
