// Package serde contains the deserialization primitives used to decode
// event bodies read from the remote store into concrete Go values.
package serde

// Deserializer is used to deserialize a Destination type from a Source type.
type Deserializer[Dst any, Src any] interface {
	Deserialize(src Src) (Dst, error)
}

// DeserializerFunc is a functional implementation of the Deserializer interface.
type DeserializerFunc[Dst any, Src any] func(src Src) (Dst, error)

// Deserialize implements the serde.Deserializer interface.
func (fn DeserializerFunc[Dst, Src]) Deserialize(src Src) (Dst, error) { return fn(src) }

// Bytes is a Deserializer from a byte array, the format used by event bodies.
type Bytes[Dst any] interface {
	Deserializer[Dst, []byte]
}

// Erase turns a typed byte-array Deserializer into an untyped one,
// so that different event types can be stored in the same catalog.
func Erase[Dst any](d Bytes[Dst]) DeserializerFunc[any, []byte] {
	return func(src []byte) (any, error) {
		return d.Deserialize(src)
	}
}
