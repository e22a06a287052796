package opentelemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/get-eventually/go-eventstore-http/event"
)

var _ event.Reader = new(InstrumentedReader)

// InstrumentedReader is a wrapper type over an event.Reader
// instance to provide instrumentation, in the form of metrics and traces
// using OpenTelemetry.
//
// Use NewInstrumentedReader for constructing a new instance of this type.
type InstrumentedReader struct {
	reader event.Reader

	tracer       trace.Tracer
	readDuration metric.Float64Histogram
	config       config
}

// NewInstrumentedReader returns a wrapper type to provide OpenTelemetry
// instrumentation (metrics and traces) around an event.Reader.
//
// An error is returned if metrics could not be registered.
func NewInstrumentedReader(reader event.Reader, options ...Option) (*InstrumentedReader, error) {
	cfg := newConfig(options...)

	readDuration, err := cfg.meter().Float64Histogram(
		ReadDurationMetric,
		metric.WithUnit("ms"),
		metric.WithDescription("Duration in milliseconds of event.Reader operations performed."),
	)
	if err != nil {
		return nil, fmt.Errorf("opentelemetry.InstrumentedReader: failed to register metric, %w", err)
	}

	return &InstrumentedReader{
		reader:       reader,
		tracer:       cfg.tracer(),
		readDuration: readDuration,
		config:       cfg,
	}, nil
}

func (ir *InstrumentedReader) record(
	ctx context.Context,
	span trace.Span,
	operation string,
	start time.Time,
	err error,
) {
	duration := float64(time.Since(start)) / float64(time.Millisecond)
	ir.readDuration.Record(ctx, duration, ir.config.measurement(
		attribute.String("operation", operation),
		ErrorKey.Bool(err != nil),
	))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

// ReadForward calls the wrapped event.Reader.ReadForward method and records metrics and traces around it.
func (ir *InstrumentedReader) ReadForward(
	ctx context.Context,
	stream string,
	from int64,
	maxCount int,
	longPoll time.Duration,
) (slice event.Slice, err error) {
	ctx, span := ir.tracer.Start(ctx, "event.Reader.ReadForward", trace.WithAttributes(
		StreamKey.String(stream),
		FromKey.Int64(from),
		MaxCountKey.Int(maxCount),
	))
	start := time.Now()

	defer func() {
		span.SetAttributes(
			ReadStatusKey.String(slice.Status.String()),
			attribute.Int("event_stream.entries", len(slice.Entries)),
		)
		ir.record(ctx, span, "ReadForward", start, err)
	}()

	return ir.reader.ReadForward(ctx, stream, from, maxCount, longPoll)
}

// ReadSingle calls the wrapped event.Reader.ReadSingle method and records metrics and traces around it.
func (ir *InstrumentedReader) ReadSingle(ctx context.Context, stream string, number int64) (single event.Single, err error) {
	ctx, span := ir.tracer.Start(ctx, "event.Reader.ReadSingle", trace.WithAttributes(
		StreamKey.String(stream),
		EventNumberKey.Int64(number),
	))
	start := time.Now()

	defer func() {
		span.SetAttributes(ReadStatusKey.String(single.Status.String()))
		ir.record(ctx, span, "ReadSingle", start, err)
	}()

	return ir.reader.ReadSingle(ctx, stream, number)
}

// ReadBody calls the wrapped event.Reader.ReadBody method and records metrics and traces around it.
func (ir *InstrumentedReader) ReadBody(ctx context.Context, typ event.Type, link string) (content any, err error) {
	ctx, span := ir.tracer.Start(ctx, "event.Reader.ReadBody", trace.WithAttributes(
		EventTypeKey.String(typ.Name),
		attribute.String("event.link", link),
	))
	start := time.Now()

	defer func() { ir.record(ctx, span, "ReadBody", start, err) }()

	return ir.reader.ReadBody(ctx, typ, link)
}
