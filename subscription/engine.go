package subscription

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/get-eventually/go-eventstore-http/event"
	"github.com/get-eventually/go-eventstore-http/handler"
	"github.com/get-eventually/go-eventstore-http/logger"
	"github.com/get-eventually/go-eventstore-http/monitor"
	"github.com/get-eventually/go-eventstore-http/subscription/checkpoint"
)

// InvokeCode is the outcome of an Engine.AdHocInvoke call.
type InvokeCode int

// Possible InvokeCode values.
const (
	InvokeSucceeded InvokeCode = iota
	InvokeNoHandlersFound
	InvokeEventNotFound
	InvokeHandlersFailed
)

func (c InvokeCode) String() string {
	switch c {
	case InvokeSucceeded:
		return "succeeded"
	case InvokeNoHandlersFound:
		return "no-handlers-found"
	case InvokeEventNotFound:
		return "event-not-found"
	case InvokeHandlersFailed:
		return "handlers-failed"
	default:
		return "unknown"
	}
}

// InvokeResult is the result of an Engine.AdHocInvoke call.
type InvokeResult struct {
	Code     InvokeCode
	Handlers int

	// Errors is populated only with InvokeHandlersFailed.
	Errors map[string]error
}

// Engine polls the subscribed streams from an event.Reader, and
// dispatches the events read to the applicable handlers.
//
// Use NewEngine to create a new instance.
type Engine struct {
	reader       event.Reader
	checkpointer checkpoint.Checkpointer
	dispatcher   *handler.Dispatcher
	scheduler    *Scheduler
	monitors     monitor.Fanout
	config       config
}

// NewEngine creates a new Engine, reading events from the event.Reader and
// resolving their handlers using the type catalog and the handler.Resolver.
//
// Checkpoints of all the subscriptions are stored in the checkpoint.Checkpointer.
func NewEngine(
	reader event.Reader,
	checkpointer checkpoint.Checkpointer,
	types event.TypeResolver,
	resolver handler.Resolver,
	opts ...Option,
) *Engine {
	cfg := newConfig(opts...)

	return &Engine{
		reader:       reader,
		checkpointer: checkpointer,
		dispatcher: &handler.Dispatcher{
			Types:    types,
			Resolver: resolver,
			Logger:   cfg.Logger,
		},
		scheduler: NewScheduler(),
		monitors:  monitor.Fanout{Monitors: cfg.Monitors, Logger: cfg.Logger},
		config:    cfg,
	}
}

// SubscribeTo starts polling the stream for the specified subscriber,
// every interval. A non-positive interval uses the configured default.
func (e *Engine) SubscribeTo(_ context.Context, stream, subscriberID string, interval time.Duration) error {
	if stream == "" {
		return fmt.Errorf("subscription.Engine: stream name is required")
	}

	if interval <= 0 {
		interval = e.config.DefaultInterval
	}

	key := Key{Stream: stream, SubscriberID: subscriberID}

	logger.Info(e.config.Logger, "subscribing to stream",
		logger.With("stream", stream),
		logger.With("subscriberId", subscriberID),
		logger.With("interval", interval),
	)

	if err := e.scheduler.Add(key, interval, e.Poll, e.intervalChanged); err != nil {
		return fmt.Errorf("subscription.Engine: failed to subscribe, %w", err)
	}

	logger.Info(e.config.Logger, "subscribed to stream",
		logger.With("stream", stream),
		logger.With("subscriberId", subscriberID),
	)

	return nil
}

// UnsubscribeFrom stops polling the stream for the specified subscriber.
//
// An in-flight drain for the subscription stops at the next event boundary.
// Unsubscribing from a stream that is not subscribed is a no-op.
func (e *Engine) UnsubscribeFrom(stream, subscriberID string) {
	key := Key{Stream: stream, SubscriberID: subscriberID}

	if !e.scheduler.Remove(key) {
		logger.Debug(e.config.Logger, "stream not subscribed, nothing to unsubscribe",
			logger.With("stream", stream),
			logger.With("subscriberId", subscriberID),
		)
	}

	if e.config.IntervalMonitor != nil {
		e.config.IntervalMonitor.RemoveMonitor(stream, subscriberID)
	}

	logger.Info(e.config.Logger, "unsubscribed from stream",
		logger.With("stream", stream),
		logger.With("subscriberId", subscriberID),
	)
}

// ChangeInterval changes the polling interval of a live subscription.
func (e *Engine) ChangeInterval(stream, subscriberID string, interval time.Duration) error {
	key := Key{Stream: stream, SubscriberID: subscriberID}

	if err := e.scheduler.Reschedule(key, interval); err != nil {
		return fmt.Errorf("subscription.Engine: failed to change interval, %w", err)
	}

	return nil
}

// Subscriptions returns a snapshot of all the live subscriptions.
func (e *Engine) Subscriptions() []Subscription {
	return e.scheduler.Subscriptions()
}

// Close stops all the subscriptions and waits for the in-flight drains to return.
func (e *Engine) Close() {
	e.scheduler.Close()
}

func (e *Engine) intervalChanged(key Key, interval time.Duration) {
	if e.config.IntervalMonitor != nil {
		e.config.IntervalMonitor.UpdateInterval(key.Stream, key.SubscriberID, interval)
	}
}

// Poll drains all the new events available for the subscription,
// dispatching them to the applicable handlers.
//
// Poll is called by the scheduler on every tick, but it can also be called
// directly. The subscription schedule is paused while Poll runs: if the
// schedule is already paused, or a drain started by a previous subscription
// to the same stream is still in progress, Poll does nothing.
//
// The drain stops at the next event boundary once the subscription it
// started for is removed, even if the stream has been subscribed again since.
//
// Errors and panics are logged and never propagated.
func (e *Engine) Poll(ctx context.Context, key Key) {
	lease, ok := e.scheduler.Pause(key)
	if !ok {
		if !e.scheduler.Has(key) {
			logger.Warn(e.config.Logger, "poll requested for a stream not subscribed, skipping",
				logger.With("stream", key.Stream),
				logger.With("subscriberId", key.SubscriberID),
			)

			return
		}

		logger.Debug(e.config.Logger, "subscription already polling, skipping",
			logger.With("stream", key.Stream),
			logger.With("subscriberId", key.SubscriberID),
		)

		return
	}

	defer lease.Resume()

	defer func() {
		if r := recover(); r != nil {
			logger.Error(e.config.Logger, "subscription poll panicked",
				logger.With("stream", key.Stream),
				logger.With("subscriberId", key.SubscriberID),
				logger.With("panic", r),
				logger.With("stack", string(debug.Stack())),
			)
		}
	}()

	if err := e.drain(ctx, key, lease); err != nil {
		logger.Error(e.config.Logger, "subscription poll failed",
			logger.With("stream", key.Stream),
			logger.With("subscriberId", key.SubscriberID),
			logger.With("error", err),
		)
	}
}

func (e *Engine) drain(ctx context.Context, key Key, lease *Lease) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("subscription.Engine: drain interrupted, %w", err)
		}

		position, ok, err := e.checkpointer.Read(ctx, key.Stream, key.SubscriberID)
		if err != nil {
			return fmt.Errorf("subscription.Engine: failed to read checkpoint, %w", err)
		}

		if !ok {
			position = -1
		}

		slice, err := e.reader.ReadForward(ctx, key.Stream, position+1, e.config.SliceSize, e.config.LongPollTimeout)
		if err != nil {
			return fmt.Errorf("subscription.Engine: failed to read stream, %w", err)
		}

		if slice.Status != event.ReadSuccess {
			logger.Debug(e.config.Logger, "stream read returned no events",
				logger.With("stream", key.Stream),
				logger.With("subscriberId", key.SubscriberID),
				logger.With("status", slice.Status),
			)

			return nil
		}

		if len(slice.Entries) == 0 {
			return nil
		}

		for _, envelope := range slice.Entries {
			if err := e.process(ctx, key, envelope); err != nil {
				return err
			}

			if !lease.Active() {
				logger.Info(e.config.Logger, "subscription removed while polling, stopping",
					logger.With("stream", key.Stream),
					logger.With("subscriberId", key.SubscriberID),
					logger.With("sequenceNumber", envelope.SequenceNumber),
				)

				return nil
			}
		}
	}
}

func (e *Engine) process(ctx context.Context, key Key, envelope event.Envelope) error {
	typ, matches, _ := e.dispatcher.Resolve(envelope.Type, key.SubscriberID)

	e.monitors.Accept(ctx, monitor.Sample{
		Stream:       key.Stream,
		SubscriberID: key.SubscriberID,
		EventType:    envelope.Type,
		Timestamp:    envelope.Updated,
	})

	if len(matches) > 0 {
		content, err := e.fetchBody(ctx, typ, envelope)

		switch {
		case ctx.Err() != nil:
			return fmt.Errorf("subscription.Engine: drain interrupted, %w", ctx.Err())

		case err != nil:
			logger.Error(e.config.Logger, "event body could not be read, skipping event",
				logger.With("stream", key.Stream),
				logger.With("subscriberId", key.SubscriberID),
				logger.With("eventType", envelope.Type),
				logger.With("sequenceNumber", envelope.SequenceNumber),
				logger.With("error", err),
			)

		default:
			result := e.dispatcher.Invoke(ctx, matches, content, envelope)

			e.monitors.Accept(ctx, monitor.Sample{
				Stream:       key.Stream,
				SubscriberID: key.SubscriberID,
				EventType:    envelope.Type,
				Timestamp:    envelope.Updated,
				Handlers:     result.Handlers,
				Errors:       result.Errors,
			})
		}
	}

	if err := e.checkpointer.Write(ctx, key.Stream, key.SubscriberID, envelope.SequenceNumber); err != nil {
		return fmt.Errorf("subscription.Engine: failed to write checkpoint, %w", err)
	}

	return nil
}

// fetchBody reads the event body, retrying while the remote store
// reports it as not found.
func (e *Engine) fetchBody(ctx context.Context, typ event.Type, envelope event.Envelope) (any, error) {
	var (
		content any
		attempt int
	)

	attempts := e.config.BodyFetchAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.config.BodyFetchDelay), uint64(attempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		attempt++

		v, err := e.reader.ReadBody(ctx, typ, envelope.Link)
		if errors.Is(err, event.ErrNotFound) {
			logger.Debug(e.config.Logger, "event body not found yet",
				logger.With("link", envelope.Link),
				logger.With("attempt", attempt),
			)

			return err
		}

		if err != nil {
			return backoff.Permanent(err)
		}

		content = v

		return nil
	}, b)
	if err != nil {
		return nil, fmt.Errorf("subscription.Engine: failed to read event body after %d attempts, %w", attempt, err)
	}

	return content, nil
}

// AdHocInvoke dispatches the event at the specified position of the stream
// to the handlers applicable to the subscriber, bypassing the checkpoint.
//
// No checkpoint is read or written.
func (e *Engine) AdHocInvoke(ctx context.Context, stream string, number int64, subscriberID string) (InvokeResult, error) {
	single, err := e.reader.ReadSingle(ctx, stream, number)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("subscription.Engine: failed to read event, %w", err)
	}

	if single.Status != event.ReadSuccess {
		return InvokeResult{Code: InvokeEventNotFound}, nil
	}

	envelope := single.Envelope

	typ, matches, _ := e.dispatcher.Resolve(envelope.Type, subscriberID)
	if len(matches) == 0 {
		return InvokeResult{Code: InvokeNoHandlersFound}, nil
	}

	content, err := e.fetchBody(ctx, typ, envelope)
	if errors.Is(err, event.ErrNotFound) {
		return InvokeResult{Code: InvokeEventNotFound}, nil
	}

	if err != nil {
		return InvokeResult{}, err
	}

	result := e.dispatcher.Invoke(ctx, matches, content, envelope)

	e.monitors.Accept(ctx, monitor.Sample{
		Stream:       stream,
		SubscriberID: subscriberID,
		EventType:    envelope.Type,
		Timestamp:    envelope.Updated,
		Handlers:     result.Handlers,
		Errors:       result.Errors,
	})

	if result.Failed() {
		return InvokeResult{Code: InvokeHandlersFailed, Handlers: result.Handlers, Errors: result.Errors}, nil
	}

	return InvokeResult{Code: InvokeSucceeded, Handlers: result.Handlers}, nil
}
