// Package monitor contains the telemetry sinks notified by the subscription
// engine while it processes events, and some in-process implementations.
package monitor

import (
	"context"
	"time"
)

// Sample is the telemetry recorded for a single event read from a stream.
//
// The engine records a Sample with no Handlers for every event it sees,
// and another one when at least one handler has been invoked for it.
type Sample struct {
	Stream       string
	SubscriberID string
	EventType    string

	// Timestamp is the last-modified timestamp of the event, as reported
	// by the remote store.
	Timestamp time.Time

	// Handlers is the number of handlers invoked for the event.
	Handlers int

	// Errors maps the name of the failed handlers to their error.
	Errors map[string]error
}

// Seen reports whether the Sample only records that the event has been read.
func (s Sample) Seen() bool { return s.Handlers == 0 }

// Failed reports whether at least one handler failed to handle the event.
func (s Sample) Failed() bool { return len(s.Errors) > 0 }

// Performance is a sink receiving a Sample for every event processed.
//
// Accept is called synchronously by the engine, implementations
// should return quickly.
type Performance interface {
	Accept(ctx context.Context, sample Sample)
}

// PerformanceFunc is a functional implementation of the Performance interface.
type PerformanceFunc func(ctx context.Context, sample Sample)

// Accept implements the monitor.Performance interface.
func (fn PerformanceFunc) Accept(ctx context.Context, sample Sample) { fn(ctx, sample) }

// Interval is notified of the polling interval used by each subscription.
type Interval interface {
	UpdateInterval(stream, subscriberID string, interval time.Duration)
	RemoveMonitor(stream, subscriberID string)
}
