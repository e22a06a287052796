package opentelemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/get-eventually/go-eventstore-http/event"
	"github.com/get-eventually/go-eventstore-http/monitor"
	"github.com/get-eventually/go-eventstore-http/opentelemetry"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	metrics := make(map[string]metricdata.Metrics)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}

	return metrics
}

func sum(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}

	return total
}

func TestPerformanceMonitor(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	pm, err := opentelemetry.NewPerformanceMonitor(opentelemetry.WithMeterProvider(provider))
	require.NoError(t, err)

	pm.Accept(ctx, monitor.Sample{Stream: "orders", EventType: "OrderCreated", Timestamp: time.Now()})
	pm.Accept(ctx, monitor.Sample{Stream: "orders", EventType: "OrderPaid", Timestamp: time.Now()})
	pm.Accept(ctx, monitor.Sample{
		Stream:    "orders",
		EventType: "OrderPaid",
		Handlers:  2,
		Errors:    map[string]error{"projector": errors.New("failed")},
	})

	metrics := collect(t, reader)

	assert.Equal(t, int64(2), sum(t, metrics[opentelemetry.EventsSeenMetric]))
	assert.Equal(t, int64(1), sum(t, metrics[opentelemetry.EventsProcessedMetric]))
	assert.Equal(t, int64(1), sum(t, metrics[opentelemetry.HandlerErrorsMetric]))

	lag, ok := metrics[opentelemetry.EventLagMetric].Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range lag.DataPoints {
		count += dp.Count
	}

	assert.Equal(t, uint64(2), count)
}

func TestIntervalMonitor(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	im, err := opentelemetry.NewIntervalMonitor(
		opentelemetry.WithMeterProvider(provider),
		opentelemetry.WithAttributes(attribute.String("service.instance.id", "host-1")),
	)
	require.NoError(t, err)

	im.UpdateInterval("orders", "", time.Second)
	im.UpdateInterval("orders", "billing", 2*time.Second)
	im.RemoveMonitor("orders", "")

	gauge, ok := collect(t, reader)[opentelemetry.PollIntervalMetric].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)

	dp := gauge.DataPoints[0]
	assert.InDelta(t, 2.0, dp.Value, 0.001)

	subscriberID, ok := dp.Attributes.Value(opentelemetry.SubscriberIDKey)
	assert.True(t, ok)
	assert.Equal(t, "billing", subscriberID.AsString())

	instance, ok := dp.Attributes.Value("service.instance.id")
	assert.True(t, ok)
	assert.Equal(t, "host-1", instance.AsString())
}

func TestInstrumentedReader(t *testing.T) {
	ctx := context.Background()

	store := event.NewInMemoryStore()
	_, err := store.Append(ctx, "orders", event.Record{Type: "OrderPaid", Body: []byte(`{}`)})
	require.NoError(t, err)

	metricReader := sdkmetric.NewManualReader()
	recorder := tracetest.NewSpanRecorder()

	reader, err := opentelemetry.NewInstrumentedReader(store,
		opentelemetry.WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))),
		opentelemetry.WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))),
	)
	require.NoError(t, err)

	slice, err := reader.ReadForward(ctx, "orders", 0, 20, 0)
	require.NoError(t, err)
	require.Len(t, slice.Entries, 1)

	single, err := reader.ReadSingle(ctx, "orders", 0)
	require.NoError(t, err)
	assert.Equal(t, event.ReadSuccess, single.Status)

	store.DeleteBody("orders", 0)

	_, err = reader.ReadBody(ctx, event.Abstract("OrderPaid"), slice.Entries[0].Link)
	assert.ErrorIs(t, err, event.ErrNotFound)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "event.Reader.ReadForward", spans[0].Name())
	assert.Equal(t, "event.Reader.ReadSingle", spans[1].Name())
	assert.Equal(t, "event.Reader.ReadBody", spans[2].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[2].Status().Code)

	duration, ok := collect(t, metricReader)[opentelemetry.ReadDurationMetric].Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range duration.DataPoints {
		count += dp.Count
	}

	assert.Equal(t, uint64(3), count)
}
