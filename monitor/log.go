package monitor

import (
	"context"

	"github.com/get-eventually/go-eventstore-http/logger"
)

var _ Performance = LogMonitor{}

// LogMonitor logs every Sample at debug level, and every failed
// Sample at warning level.
type LogMonitor struct {
	Logger logger.Logger
}

// Accept implements the monitor.Performance interface.
func (m LogMonitor) Accept(_ context.Context, sample Sample) {
	fields := []logger.Field{
		logger.With("stream", sample.Stream),
		logger.With("subscriberId", sample.SubscriberID),
		logger.With("eventType", sample.EventType),
		logger.With("timestamp", sample.Timestamp),
		logger.With("handlers", sample.Handlers),
	}

	if sample.Failed() {
		fields = append(fields, logger.With("errors", len(sample.Errors)))
		logger.Warn(m.Logger, "event processed with handler failures", fields...)

		return
	}

	logger.Debug(m.Logger, "event processed", fields...)
}
