package serde

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// NewProtoJSONDeserializer returns a deserializer function where a byte-array
// is deserialized into a destination model type (T) using Protobuf JSON.
//
// Unknown fields are discarded, since event bodies written by other
// services might carry fields this process does not know about yet.
func NewProtoJSONDeserializer[T proto.Message](factory func() T) DeserializerFunc[T, []byte] {
	unmarshaler := protojson.UnmarshalOptions{DiscardUnknown: true}

	return func(data []byte) (T, error) {
		var zeroValue T

		model := factory()

		if err := unmarshaler.Unmarshal(data, model); err != nil {
			return zeroValue, fmt.Errorf("serde.ProtoJSON: failed to deserialize data, %w", err)
		}

		return model, nil
	}
}
