// Package opentelemetry contains the OpenTelemetry instrumentation of the
// subscriber host: performance and interval monitors exporting metrics,
// and an event.Reader wrapper exporting traces and metrics.
package opentelemetry

import (
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/get-eventually/go-eventstore-http/opentelemetry"

type config struct {
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	attributes     []attribute.KeyValue
}

func (c config) meter() metric.Meter {
	return c.meterProvider.Meter(instrumentationName)
}

func (c config) tracer() trace.Tracer {
	return c.tracerProvider.Tracer(instrumentationName)
}

// measurement returns the attributes of a measurement: the common
// attributes configured, followed by the specified ones.
func (c config) measurement(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append(slices.Clone(c.attributes), attrs...)...)
}

// Option specifies instrumentation configuration options.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (fn optionFunc) apply(c *config) { fn(c) }

// WithMeterProvider specifies the metric.MeterProvider instance to use for the instrumentation.
// By default, the global metric.MeterProvider is used.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return optionFunc(func(c *config) { c.meterProvider = provider })
}

// WithTracerProvider specifies the trace.TracerProvider instance to use for the instrumentation.
// By default, the global trace.TracerProvider is used.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return optionFunc(func(c *config) { c.tracerProvider = provider })
}

// WithAttributes adds attributes to every measurement recorded,
// e.g. to tell apart multiple subscriber host instances.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return optionFunc(func(c *config) { c.attributes = append(c.attributes, attrs...) })
}

func newConfig(opts ...Option) config {
	c := config{
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}

	for _, opt := range opts {
		opt.apply(&c)
	}

	return c
}
