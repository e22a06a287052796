package monitor

import (
	"context"

	"github.com/get-eventually/go-eventstore-http/logger"
)

var _ Performance = Fanout{}

// Fanout delivers every Sample to all the Monitors, in order.
//
// A Monitor that panics is logged and skipped: the Sample is still
// delivered to all the other Monitors.
type Fanout struct {
	Monitors []Performance
	Logger   logger.Logger
}

// Accept implements the monitor.Performance interface.
func (f Fanout) Accept(ctx context.Context, sample Sample) {
	for _, m := range f.Monitors {
		f.accept(ctx, m, sample)
	}
}

func (f Fanout) accept(ctx context.Context, m Performance, sample Sample) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(f.Logger, "performance monitor panicked",
				logger.With("monitor", m),
				logger.With("stream", sample.Stream),
				logger.With("eventType", sample.EventType),
				logger.With("panic", r),
			)
		}
	}()

	m.Accept(ctx, sample)
}
