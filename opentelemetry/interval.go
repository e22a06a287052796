package opentelemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/get-eventually/go-eventstore-http/monitor"
)

var _ monitor.Interval = new(IntervalMonitor)

type intervalKey struct{ stream, subscriberID string }

// IntervalMonitor is a monitor.Interval implementation exporting the polling
// interval of every subscription as an OpenTelemetry gauge.
//
// Use NewIntervalMonitor to create a new instance.
type IntervalMonitor struct {
	mx        sync.RWMutex
	intervals map[intervalKey]time.Duration
	config    config
}

// NewIntervalMonitor returns a new IntervalMonitor, registering
// its gauge on the configured metric.MeterProvider.
func NewIntervalMonitor(options ...Option) (*IntervalMonitor, error) {
	cfg := newConfig(options...)
	im := &IntervalMonitor{intervals: make(map[intervalKey]time.Duration), config: cfg}

	if _, err := cfg.meter().Float64ObservableGauge(
		PollIntervalMetric,
		metric.WithUnit("s"),
		metric.WithDescription("Polling interval of the subscriptions."),
		metric.WithFloat64Callback(im.observe),
	); err != nil {
		return nil, fmt.Errorf("opentelemetry.IntervalMonitor: failed to register metric, %w", err)
	}

	return im, nil
}

func (im *IntervalMonitor) observe(_ context.Context, observer metric.Float64Observer) error {
	im.mx.RLock()
	defer im.mx.RUnlock()

	for key, interval := range im.intervals {
		observer.Observe(interval.Seconds(), im.config.measurement(
			StreamKey.String(key.stream),
			SubscriberIDKey.String(key.subscriberID),
		))
	}

	return nil
}

// UpdateInterval implements the monitor.Interval interface.
func (im *IntervalMonitor) UpdateInterval(stream, subscriberID string, interval time.Duration) {
	im.mx.Lock()
	defer im.mx.Unlock()

	im.intervals[intervalKey{stream, subscriberID}] = interval
}

// RemoveMonitor implements the monitor.Interval interface.
func (im *IntervalMonitor) RemoveMonitor(stream, subscriberID string) {
	im.mx.Lock()
	defer im.mx.Unlock()

	delete(im.intervals, intervalKey{stream, subscriberID})
}
