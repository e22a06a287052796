package host

import (
	"context"
	"fmt"

	"github.com/get-eventually/go-eventstore-http/event"
	"github.com/get-eventually/go-eventstore-http/handler"
	"github.com/get-eventually/go-eventstore-http/internal/config"
	"github.com/get-eventually/go-eventstore-http/logger"
)

// NewTypes builds the event types catalog from the configured types.
//
// Configured types have no decoder: handlers receive the raw event body.
func NewTypes(types []config.Type) (*event.Types, error) {
	catalog, err := event.NewTypes()
	if err != nil {
		return nil, err
	}

	for _, t := range types {
		if err := catalog.Register(event.Abstract(t.Name, t.Parents...)); err != nil {
			return nil, err
		}
	}

	return catalog, nil
}

// NewRegistry builds the handlers registry from the configured handlers.
func NewRegistry(handlers []config.Handler, l logger.Logger) (*handler.Registry, error) {
	registry := handler.NewRegistry()

	for _, h := range handlers {
		scope := handler.Default()
		if len(h.Subscribers) > 0 {
			scope = handler.Named(h.Subscribers...)
		}

		if err := registry.Register(newLogHandler(h, l), scope); err != nil {
			return nil, fmt.Errorf("failed to register handler '%s', %w", h.Name, err)
		}
	}

	return registry, nil
}

func newLogHandler(h config.Handler, l logger.Logger) handler.Func {
	name := h.Name
	l = logger.Scoped(l, logger.With("handler", name))

	handle := func(_ context.Context, content any, envelope event.Envelope) error {
		fields := []logger.Field{
			logger.With("eventId", envelope.ID.String()),
			logger.With("eventType", envelope.Type),
			logger.With("title", envelope.Title),
		}

		if body, ok := content.([]byte); ok {
			fields = append(fields, logger.With("body", string(body)))
		}

		logger.Info(l, "event received", fields...)

		return nil
	}

	capabilities := make([]handler.Capability, 0, len(h.Types))
	for _, t := range h.Types {
		capabilities = append(capabilities, handler.HandlesWithEnvelope(t, handle))
	}

	return handler.Func{
		HandlerName: name,
		Handles:     capabilities,
		OnErrorFunc: func(_ context.Context, err error, _ any, envelope event.Envelope) {
			logger.Error(l, "event handling failed",
				logger.With("eventId", envelope.ID.String()),
				logger.With("error", err),
			)
		},
	}
}
