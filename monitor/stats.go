package monitor

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Performance = new(Stats)

// StreamStats contains the statistics collected for a single stream.
type StreamStats struct {
	Stream string

	// Seen is the number of events read from the stream.
	Seen int64
	// Processed is the number of events delivered to at least one handler.
	Processed int64
	// Failed is the number of processed events where at least one handler failed.
	Failed int64

	FirstSample time.Time
	LastSample  time.Time

	// Lag is the difference between the time the last event has been seen
	// and its last-modified timestamp in the remote store.
	Lag time.Duration
}

// Throughput returns the number of events seen per second, measured
// between the first and last Sample received.
func (s StreamStats) Throughput() float64 {
	elapsed := s.LastSample.Sub(s.FirstSample).Seconds()
	if elapsed <= 0 {
		return 0
	}

	return float64(s.Seen) / elapsed
}

// Stats is a Performance monitor that keeps throughput and latency
// statistics per stream, in memory.
//
// Use NewStats to create a new instance.
type Stats struct {
	mx      sync.Mutex
	streams map[string]*StreamStats
	now     func() time.Time
}

// NewStats returns a new, empty Stats monitor.
func NewStats() *Stats {
	return &Stats{
		streams: make(map[string]*StreamStats),
		now:     time.Now,
	}
}

// Accept implements the monitor.Performance interface.
func (s *Stats) Accept(_ context.Context, sample Sample) {
	now := s.now()

	s.mx.Lock()
	defer s.mx.Unlock()

	stats, ok := s.streams[sample.Stream]
	if !ok {
		stats = &StreamStats{Stream: sample.Stream, FirstSample: now}
		s.streams[sample.Stream] = stats
	}

	stats.LastSample = now

	if sample.Seen() {
		stats.Seen++

		if !sample.Timestamp.IsZero() {
			stats.Lag = now.Sub(sample.Timestamp)
		}

		return
	}

	stats.Processed++

	if sample.Failed() {
		stats.Failed++
	}
}

// Stream returns the statistics collected for the specified stream.
func (s *Stats) Stream(stream string) (StreamStats, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()

	stats, ok := s.streams[stream]
	if !ok {
		return StreamStats{}, false
	}

	return *stats, true
}

// Snapshot returns the statistics of all streams, sorted by stream name.
func (s *Stats) Snapshot() []StreamStats {
	s.mx.Lock()
	defer s.mx.Unlock()

	result := make([]StreamStats, 0, len(s.streams))
	for _, stats := range s.streams {
		result = append(result, *stats)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Stream < result[j].Stream })

	return result
}
