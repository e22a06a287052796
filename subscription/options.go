package subscription

import (
	"time"

	"github.com/get-eventually/go-eventstore-http/logger"
	"github.com/get-eventually/go-eventstore-http/monitor"
)

// Default values used by the Engine.
const (
	DefaultInterval          = 1 * time.Second
	DefaultSliceSize         = 20
	DefaultLongPollTimeout   = 0
	DefaultBodyFetchAttempts = 3
	DefaultBodyFetchDelay    = 500 * time.Millisecond
)

type config struct {
	DefaultInterval   time.Duration
	SliceSize         int
	LongPollTimeout   time.Duration
	BodyFetchAttempts int
	BodyFetchDelay    time.Duration
	Logger            logger.Logger
	Monitors          []monitor.Performance
	IntervalMonitor   monitor.Interval
}

func newConfig(opts ...Option) config {
	c := config{
		DefaultInterval:   DefaultInterval,
		SliceSize:         DefaultSliceSize,
		LongPollTimeout:   DefaultLongPollTimeout,
		BodyFetchAttempts: DefaultBodyFetchAttempts,
		BodyFetchDelay:    DefaultBodyFetchDelay,
	}

	for _, opt := range opts {
		opt.apply(&c)
	}

	return c
}

// Option specifies configuration options for the Engine.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (fn optionFunc) apply(c *config) { fn(c) }

// WithDefaultInterval sets the polling interval used by subscriptions
// that do not specify one. Non-positive values are ignored.
func WithDefaultInterval(interval time.Duration) Option {
	return optionFunc(func(c *config) {
		if interval > 0 {
			c.DefaultInterval = interval
		}
	})
}

// WithSliceSize sets the maximum number of events requested
// to the remote store on every read. Non-positive values are ignored.
func WithSliceSize(size int) Option {
	return optionFunc(func(c *config) {
		if size > 0 {
			c.SliceSize = size
		}
	})
}

// WithLongPollTimeout sets how long the remote store may hold a read
// request when no new events are available. Zero disables long-polling.
func WithLongPollTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *config) {
		if timeout >= 0 {
			c.LongPollTimeout = timeout
		}
	})
}

// WithBodyFetchRetry sets how many times, and with which delay in between,
// the body of an event is requested to the remote store while it
// cannot be found.
func WithBodyFetchRetry(attempts int, delay time.Duration) Option {
	return optionFunc(func(c *config) {
		if attempts > 0 {
			c.BodyFetchAttempts = attempts
		}

		if delay >= 0 {
			c.BodyFetchDelay = delay
		}
	})
}

// WithLogger sets the logger used by the Engine.
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(c *config) { c.Logger = l })
}

// WithPerformanceMonitors adds the performance monitors notified
// for every event processed.
func WithPerformanceMonitors(monitors ...monitor.Performance) Option {
	return optionFunc(func(c *config) { c.Monitors = append(c.Monitors, monitors...) })
}

// WithIntervalMonitor sets the monitor notified of the polling
// interval of every subscription.
func WithIntervalMonitor(m monitor.Interval) Option {
	return optionFunc(func(c *config) { c.IntervalMonitor = m })
}
