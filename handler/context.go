package handler

import (
	"context"

	"github.com/google/uuid"
)

type causationCtxKey struct{}

// WithCausationID returns a copy of the context carrying the id of the
// event being handled, so that any side effect produced by a handler
// can reference the event that caused it.
func WithCausationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, causationCtxKey{}, id)
}

// CausationID returns the id of the event being handled, if any.
//
// The Dispatcher sets it on the context of every handler invocation.
func CausationID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(causationCtxKey{}).(uuid.UUID)
	return id, ok
}
