package handler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/get-eventually/go-eventstore-http/event"
	"github.com/get-eventually/go-eventstore-http/logger"
)

var shapes = []Shape{ShapeContent, ShapeEnvelope}

// PanicError is recorded when a Handler panics while handling an event.
type PanicError struct {
	Value any
	Stack []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("handler: panic while handling event, %v", e.Value)
}

// Match is a Handler registration applicable to an event, along with
// the Capability selected to handle it.
type Match struct {
	Registration
	Capability Capability
}

// Result is the outcome of dispatching an event to its handlers.
type Result struct {
	// Handlers is the number of handlers invoked.
	Handlers int

	// Errors maps the name of the handlers that failed to the error they returned.
	// An empty map means all handlers succeeded.
	Errors map[string]error
}

// Failed reports whether at least one handler failed.
func (r Result) Failed() bool { return len(r.Errors) > 0 }

type cacheKey struct {
	handler   string
	eventType string
}

type cacheEntry struct {
	capability Capability
	found      bool
}

// Dispatcher resolves the Handlers applicable to an event and invokes them.
//
// The capability selected for a (handler, event type) pair is cached for
// the Dispatcher lifetime, since type graphs and handler capabilities
// are static once registered.
type Dispatcher struct {
	Types    event.TypeResolver
	Resolver Resolver
	Logger   logger.Logger

	cache sync.Map
}

// Resolve returns the event Type registered for the type name, and the
// Handlers applicable to it for the specified subscriber id.
//
// If the type name is unknown, no handlers are returned and false is reported.
func (d *Dispatcher) Resolve(typeName, subscriberID string) (event.Type, []Match, bool) {
	typ, ok := d.Types.Resolve(typeName)
	if !ok {
		logger.Warn(d.Logger, "event type could not be resolved, no handler will be invoked",
			logger.With("eventType", typeName),
		)

		return event.Type{}, nil, false
	}

	ancestry := d.Types.Ancestry(typeName)
	seen := make(map[string]struct{})

	var matches []Match

	for _, ancestor := range ancestry {
		for _, shape := range shapes {
			for _, registration := range d.Resolver.HandlersOf(Descriptor{Type: ancestor.Name, Shape: shape}) {
				name := registration.Name()
				if _, ok := seen[name]; ok {
					continue
				}

				seen[name] = struct{}{}

				if !registration.Scope.AppliesTo(subscriberID) {
					continue
				}

				capability, ok := d.capabilityFor(registration.Handler, typeName, ancestry)
				if !ok {
					logger.Warn(d.Logger, "no matching capability found for handler, skipping",
						logger.With("handler", name),
						logger.With("eventType", typeName),
					)

					continue
				}

				matches = append(matches, Match{Registration: registration, Capability: capability})
			}
		}
	}

	return typ, matches, true
}

func (d *Dispatcher) capabilityFor(h Handler, typeName string, ancestry []event.Ancestor) (Capability, bool) {
	key := cacheKey{handler: h.Name(), eventType: typeName}

	if v, ok := d.cache.Load(key); ok {
		entry := v.(cacheEntry) //nolint:forcetypeassert // Only cacheEntry values are stored.
		return entry.capability, entry.found
	}

	entry := cacheEntry{}
	rank := make(map[string]int, len(ancestry))

	for i, ancestor := range ancestry {
		rank[ancestor.Name] = i
	}

	best := len(ancestry)

	for _, capability := range h.Capabilities() {
		if r, ok := rank[capability.Type]; ok && r < best {
			best = r
			entry = cacheEntry{capability: capability, found: true}
		}
	}

	d.cache.Store(key, entry)

	return entry.capability, entry.found
}

// Invoke calls all the matched Handlers with the decoded event content,
// sequentially and in order.
//
// Every Handler is isolated: an error, or a panic, is recorded in the Result
// against the Handler name and reported to the Handler's ErrorHandler,
// if implemented, without affecting the other Handlers.
func (d *Dispatcher) Invoke(ctx context.Context, matches []Match, content any, envelope event.Envelope) Result {
	result := Result{Errors: make(map[string]error)}
	ctx = WithCausationID(ctx, envelope.ID)

	for _, match := range matches {
		result.Handlers++

		err := safeInvoke(ctx, match.Capability, content, envelope)
		if err == nil {
			continue
		}

		name := match.Name()
		result.Errors[name] = err

		logger.Error(d.Logger, "handler failed to handle event",
			logger.With("handler", name),
			logger.With("eventType", envelope.Type),
			logger.With("sequenceNumber", envelope.SequenceNumber),
			logger.With("error", err),
		)

		if errorHandler, ok := match.Handler.(ErrorHandler); ok {
			d.notifyError(ctx, name, errorHandler, err, content, envelope)
		}
	}

	return result
}

func safeInvoke(ctx context.Context, capability Capability, content any, envelope event.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return capability.invoke(ctx, content, envelope)
}

func (d *Dispatcher) notifyError(
	ctx context.Context,
	name string,
	errorHandler ErrorHandler,
	err error,
	content any,
	envelope event.Envelope,
) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(d.Logger, "handler error callback panicked",
				logger.With("handler", name),
				logger.With("panic", r),
			)
		}
	}()

	errorHandler.OnError(ctx, err, content, envelope)
}
