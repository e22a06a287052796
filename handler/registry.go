package handler

import (
	"fmt"
	"sync"
)

var _ Resolver = new(Registry)

// Registry is a thread-safe, in-memory Resolver where Handlers are
// registered at startup.
//
// Use NewRegistry to create a new Registry instance.
type Registry struct {
	mx      sync.RWMutex
	names   map[string]struct{}
	byIndex map[Descriptor][]Registration
}

// NewRegistry returns a new, empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		names:   make(map[string]struct{}),
		byIndex: make(map[Descriptor][]Registration),
	}
}

// Register adds the Handler to the Registry, applying to the specified Scope.
//
// An error is returned if the Handler has no name, a Handler with the same
// name has already been registered, its Scope is a Named scope with no
// subscriber ids, or any of its capabilities is invalid.
func (r *Registry) Register(h Handler, scope Scope) error {
	if h == nil {
		return fmt.Errorf("handler.Registry: handler is nil")
	}

	name := h.Name()
	if name == "" {
		return fmt.Errorf("handler.Registry: handler name is required")
	}

	if err := scope.validate(); err != nil {
		return fmt.Errorf("handler.Registry: invalid scope for '%s', %w", name, err)
	}

	capabilities := h.Capabilities()
	if len(capabilities) == 0 {
		return fmt.Errorf("handler.Registry: handler '%s' declares no capabilities", name)
	}

	for _, capability := range capabilities {
		if err := capability.validate(); err != nil {
			return fmt.Errorf("handler.Registry: invalid capability for '%s', %w", name, err)
		}
	}

	r.mx.Lock()
	defer r.mx.Unlock()

	if _, ok := r.names[name]; ok {
		return fmt.Errorf("handler.Registry: handler '%s' already registered", name)
	}

	r.names[name] = struct{}{}
	registration := Registration{Handler: h, Scope: scope}

	indexed := make(map[Descriptor]struct{}, len(capabilities))

	for _, capability := range capabilities {
		descriptor := Descriptor{Type: capability.Type, Shape: capability.Shape()}
		if _, ok := indexed[descriptor]; ok {
			continue
		}

		indexed[descriptor] = struct{}{}
		r.byIndex[descriptor] = append(r.byIndex[descriptor], registration)
	}

	return nil
}

// MustRegister is like Register, but panics on error.
// Use it only when wiring handlers at startup.
func (r *Registry) MustRegister(h Handler, scope Scope) {
	if err := r.Register(h, scope); err != nil {
		panic(err)
	}
}

// HandlersOf implements the handler.Resolver interface.
func (r *Registry) HandlersOf(descriptor Descriptor) []Registration {
	r.mx.RLock()
	defer r.mx.RUnlock()

	registrations := r.byIndex[descriptor]
	result := make([]Registration, len(registrations))
	copy(result, registrations)

	return result
}
