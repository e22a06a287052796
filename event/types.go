package event

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"

	"github.com/get-eventually/go-eventstore-http/serde"
)

// Type describes an event type known to this process.
//
// Parents lists the direct supertypes of the event type: handlers declaring
// a capability for one of the ancestors also receive events of this type.
type Type struct {
	Name    string
	Parents []string
	Decoder serde.Bytes[any]
}

// Decode decodes the raw event body into the Go value for this Type.
//
// A Type with no Decoder returns the raw body untouched.
func (t Type) Decode(data []byte) (any, error) {
	if t.Decoder == nil {
		return data, nil
	}

	v, err := t.Decoder.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("event.Type: failed to decode '%s' body, %w", t.Name, err)
	}

	return v, nil
}

// JSONType returns an event Type whose body is decoded from JSON
// into a new value created by the factory.
func JSONType[T any](name string, factory func() T, parents ...string) Type {
	return Type{
		Name:    name,
		Parents: parents,
		Decoder: serde.Erase[T](serde.NewJSONDeserializer(factory)),
	}
}

// ProtoJSONType returns an event Type whose body is decoded from
// Protobuf JSON into a new message created by the factory.
func ProtoJSONType[T proto.Message](name string, factory func() T, parents ...string) Type {
	return Type{
		Name:    name,
		Parents: parents,
		Decoder: serde.Erase[T](serde.NewProtoJSONDeserializer(factory)),
	}
}

// Abstract returns an event Type that is never read from a stream,
// but is only used as a supertype to group other event types.
func Abstract(name string, parents ...string) Type {
	return Type{Name: name, Parents: parents}
}

// Ancestor is an entry of the ancestry of an event Type.
type Ancestor struct {
	Name     string
	Distance int
}

// TypeResolver resolves an event type name into the Type registered for it.
type TypeResolver interface {
	Resolve(name string) (Type, bool)
	Ancestry(name string) []Ancestor
}

var _ TypeResolver = new(Types)

// Types is a thread-safe catalog of event Types, indexed by name.
type Types struct {
	mx    sync.RWMutex
	types map[string]Type
}

// NewTypes creates a new catalog with the provided Types registered.
func NewTypes(types ...Type) (*Types, error) {
	catalog := &Types{types: make(map[string]Type, len(types))}

	for _, t := range types {
		if err := catalog.Register(t); err != nil {
			return nil, err
		}
	}

	return catalog, nil
}

// Register adds a new Type to the catalog. Registering the same name twice
// is an error, since handler resolution relies on a static type graph.
func (ts *Types) Register(t Type) error {
	if t.Name == "" {
		return fmt.Errorf("event.Types: type name is required")
	}

	ts.mx.Lock()
	defer ts.mx.Unlock()

	if ts.types == nil {
		ts.types = make(map[string]Type)
	}

	if _, ok := ts.types[t.Name]; ok {
		return fmt.Errorf("event.Types: type '%s' already registered", t.Name)
	}

	ts.types[t.Name] = t

	return nil
}

// Resolve returns the Type registered with the specified name.
func (ts *Types) Resolve(name string) (Type, bool) {
	ts.mx.RLock()
	defer ts.mx.RUnlock()

	t, ok := ts.types[name]

	return t, ok
}

// Ancestry returns the specified type name followed by all its supertypes,
// in breadth-first order, each with its distance from the type itself.
//
// Every name appears only once, at its shortest distance.
// Supertypes that are not registered are still included, as they can be used
// as plain capability names.
func (ts *Types) Ancestry(name string) []Ancestor {
	ts.mx.RLock()
	defer ts.mx.RUnlock()

	visited := map[string]struct{}{name: {}}
	ancestry := []Ancestor{{Name: name, Distance: 0}}

	for i := 0; i < len(ancestry); i++ {
		current := ancestry[i]

		for _, parent := range ts.types[current.Name].Parents {
			if _, ok := visited[parent]; ok {
				continue
			}

			visited[parent] = struct{}{}
			ancestry = append(ancestry, Ancestor{Name: parent, Distance: current.Distance + 1})
		}
	}

	return ancestry
}
