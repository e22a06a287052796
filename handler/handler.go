// Package handler contains the in-process event handlers model, and the
// components used to resolve and invoke them for an event read from a stream.
//
// Handlers declare their capabilities explicitly: each Capability binds an
// event type name (or one of its supertypes) to a handling function.
// When an event is dispatched, the capability with the most specific
// declared type is selected for every applicable handler.
package handler

import (
	"context"
	"fmt"
	"slices"

	"github.com/get-eventually/go-eventstore-http/event"
)

// Shape is the argument shape accepted by a Capability.
type Shape int

// Possible Shape values.
const (
	// ShapeContent handlers receive the decoded event content only.
	ShapeContent Shape = iota
	// ShapeEnvelope handlers receive the decoded content and the event envelope.
	ShapeEnvelope
)

func (s Shape) String() string {
	if s == ShapeEnvelope {
		return "content+envelope"
	}

	return "content"
}

// ContentFunc handles the decoded content of an event.
type ContentFunc func(ctx context.Context, content any) error

// EnvelopeFunc handles the decoded content of an event along with its envelope.
type EnvelopeFunc func(ctx context.Context, content any, envelope event.Envelope) error

// Capability declares that a Handler can handle events of the specified
// type, or of any of its subtypes.
//
// Exactly one of Content or Envelope must be set.
type Capability struct {
	Type     string
	Content  ContentFunc
	Envelope EnvelopeFunc
}

// Handles returns a Capability for the specified event type
// that accepts the event content only.
func Handles(eventType string, fn ContentFunc) Capability {
	return Capability{Type: eventType, Content: fn}
}

// HandlesWithEnvelope returns a Capability for the specified event type
// that accepts the event content and its envelope.
func HandlesWithEnvelope(eventType string, fn EnvelopeFunc) Capability {
	return Capability{Type: eventType, Envelope: fn}
}

// Shape returns the argument shape accepted by the Capability.
func (c Capability) Shape() Shape {
	if c.Envelope != nil {
		return ShapeEnvelope
	}

	return ShapeContent
}

func (c Capability) invoke(ctx context.Context, content any, envelope event.Envelope) error {
	if c.Envelope != nil {
		return c.Envelope(ctx, content, envelope)
	}

	return c.Content(ctx, content)
}

func (c Capability) validate() error {
	if c.Type == "" {
		return fmt.Errorf("handler.Capability: event type is required")
	}

	if (c.Content == nil) == (c.Envelope == nil) {
		return fmt.Errorf("handler.Capability: exactly one handling function is required for '%s'", c.Type)
	}

	return nil
}

// Handler is an in-process event handler.
//
// Name must uniquely identify the handler in the process: it is used
// to report handling errors and to cache the capability resolution.
type Handler interface {
	Name() string
	Capabilities() []Capability
}

// ErrorHandler can be implemented by a Handler to be notified when
// one of its capabilities fails to handle an event.
type ErrorHandler interface {
	OnError(ctx context.Context, err error, content any, envelope event.Envelope)
}

// Scope restricts the subscribers a Handler applies to.
//
// The zero value is the default scope: the handler applies only to
// the default subscriber of a stream (empty subscriber id).
type Scope struct {
	named       bool
	subscribers []string
}

// Default returns the Scope applying only to default subscribers.
func Default() Scope { return Scope{} }

// Named returns a Scope applying only to the named subscribers specified.
//
// At least one non-empty subscriber id is required: Registry.Register
// rejects handlers registered with an empty Named scope.
func Named(subscriberIDs ...string) Scope {
	return Scope{named: true, subscribers: slices.Clone(subscriberIDs)}
}

// IsDefault reports whether the Scope carries no subscriber restriction.
func (s Scope) IsDefault() bool { return !s.named }

// AppliesTo reports whether a Handler with this Scope should receive events
// for the specified subscriber id.
func (s Scope) AppliesTo(subscriberID string) bool {
	if subscriberID == "" {
		return s.IsDefault()
	}

	return slices.Contains(s.subscribers, subscriberID)
}

func (s Scope) validate() error {
	if !s.named {
		return nil
	}

	if len(s.subscribers) == 0 {
		return fmt.Errorf("handler.Scope: named scope requires at least one subscriber id")
	}

	if slices.Contains(s.subscribers, "") {
		return fmt.Errorf("handler.Scope: named scope cannot contain the default subscriber id")
	}

	return nil
}

// Registration is a Handler along with the Scope it applies to.
type Registration struct {
	Handler Handler
	Scope   Scope
}

// Name returns the name of the registered Handler.
func (r Registration) Name() string { return r.Handler.Name() }

// Descriptor describes a capability requested to a Resolver.
type Descriptor struct {
	Type  string
	Shape Shape
}

// Resolver returns the Handler registrations declaring a capability
// matching the Descriptor exactly.
type Resolver interface {
	HandlersOf(descriptor Descriptor) []Registration
}

// Func is a Handler implementation built from a name and a list of capabilities.
type Func struct {
	HandlerName string
	Handles     []Capability
	OnErrorFunc func(ctx context.Context, err error, content any, envelope event.Envelope)
}

// Name implements the handler.Handler interface.
func (f Func) Name() string { return f.HandlerName }

// Capabilities implements the handler.Handler interface.
func (f Func) Capabilities() []Capability { return f.Handles }

// OnError implements the handler.ErrorHandler interface.
func (f Func) OnError(ctx context.Context, err error, content any, envelope event.Envelope) {
	if f.OnErrorFunc != nil {
		f.OnErrorFunc(ctx, err, content, envelope)
	}
}
