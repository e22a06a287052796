package opentelemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/get-eventually/go-eventstore-http/monitor"
)

var _ monitor.Performance = new(PerformanceMonitor)

// PerformanceMonitor is a monitor.Performance implementation exporting
// the samples received as OpenTelemetry metrics.
//
// Use NewPerformanceMonitor to create a new instance.
type PerformanceMonitor struct {
	seen          metric.Int64Counter
	processed     metric.Int64Counter
	handlerErrors metric.Int64Counter
	lag           metric.Float64Histogram
	now           func() time.Time
	config        config
}

func (pm *PerformanceMonitor) registerMetrics(meter metric.Meter) error {
	var err error

	if pm.seen, err = meter.Int64Counter(
		EventsSeenMetric,
		metric.WithUnit("{event}"),
		metric.WithDescription("Number of events read from the subscribed streams."),
	); err != nil {
		return fmt.Errorf("opentelemetry.PerformanceMonitor: failed to register metric, %w", err)
	}

	if pm.processed, err = meter.Int64Counter(
		EventsProcessedMetric,
		metric.WithUnit("{event}"),
		metric.WithDescription("Number of events dispatched to at least one handler."),
	); err != nil {
		return fmt.Errorf("opentelemetry.PerformanceMonitor: failed to register metric, %w", err)
	}

	if pm.handlerErrors, err = meter.Int64Counter(
		HandlerErrorsMetric,
		metric.WithUnit("{error}"),
		metric.WithDescription("Number of handler failures while handling events."),
	); err != nil {
		return fmt.Errorf("opentelemetry.PerformanceMonitor: failed to register metric, %w", err)
	}

	if pm.lag, err = meter.Float64Histogram(
		EventLagMetric,
		metric.WithUnit("ms"),
		metric.WithDescription("Time elapsed between an event being written and being read."),
	); err != nil {
		return fmt.Errorf("opentelemetry.PerformanceMonitor: failed to register metric, %w", err)
	}

	return nil
}

// NewPerformanceMonitor returns a new PerformanceMonitor, registering
// its metrics on the configured metric.MeterProvider.
func NewPerformanceMonitor(options ...Option) (*PerformanceMonitor, error) {
	cfg := newConfig(options...)
	pm := &PerformanceMonitor{now: time.Now, config: cfg}

	if err := pm.registerMetrics(cfg.meter()); err != nil {
		return nil, err
	}

	return pm, nil
}

// Accept implements the monitor.Performance interface.
func (pm *PerformanceMonitor) Accept(ctx context.Context, sample monitor.Sample) {
	attributes := pm.config.measurement(
		StreamKey.String(sample.Stream),
		SubscriberIDKey.String(sample.SubscriberID),
		EventTypeKey.String(sample.EventType),
	)

	if sample.Seen() {
		pm.seen.Add(ctx, 1, attributes)

		if !sample.Timestamp.IsZero() {
			lag := pm.now().Sub(sample.Timestamp)
			pm.lag.Record(ctx, float64(lag)/float64(time.Millisecond), attributes)
		}

		return
	}

	pm.processed.Add(ctx, 1, pm.config.measurement(
		StreamKey.String(sample.Stream),
		SubscriberIDKey.String(sample.SubscriberID),
		EventTypeKey.String(sample.EventType),
		ErrorKey.Bool(sample.Failed()),
	))

	for name := range sample.Errors {
		pm.handlerErrors.Add(ctx, 1, pm.config.measurement(
			StreamKey.String(sample.Stream),
			EventTypeKey.String(sample.EventType),
			attribute.String("handler.name", name),
		))
	}
}
