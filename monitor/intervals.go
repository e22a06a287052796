package monitor

import (
	"sync"
	"time"
)

var _ Interval = new(Intervals)

// IntervalKey identifies a subscription in the Intervals monitor.
type IntervalKey struct {
	Stream       string
	SubscriberID string
}

// Intervals is an in-memory Interval monitor, keeping track of the
// polling interval currently used by every subscription.
type Intervals struct {
	mx        sync.RWMutex
	intervals map[IntervalKey]time.Duration
}

// NewIntervals returns a new, empty Intervals monitor.
func NewIntervals() *Intervals {
	return &Intervals{intervals: make(map[IntervalKey]time.Duration)}
}

// UpdateInterval implements the monitor.Interval interface.
func (m *Intervals) UpdateInterval(stream, subscriberID string, interval time.Duration) {
	m.mx.Lock()
	defer m.mx.Unlock()

	m.intervals[IntervalKey{Stream: stream, SubscriberID: subscriberID}] = interval
}

// RemoveMonitor implements the monitor.Interval interface.
func (m *Intervals) RemoveMonitor(stream, subscriberID string) {
	m.mx.Lock()
	defer m.mx.Unlock()

	delete(m.intervals, IntervalKey{Stream: stream, SubscriberID: subscriberID})
}

// Get returns the interval recorded for the specified subscription.
func (m *Intervals) Get(stream, subscriberID string) (time.Duration, bool) {
	m.mx.RLock()
	defer m.mx.RUnlock()

	interval, ok := m.intervals[IntervalKey{Stream: stream, SubscriberID: subscriberID}]

	return interval, ok
}

// Len returns the number of subscriptions currently monitored.
func (m *Intervals) Len() int {
	m.mx.RLock()
	defer m.mx.RUnlock()

	return len(m.intervals)
}
