package serde

import (
	"encoding/json"
	"fmt"
)

// NewJSONDeserializer returns a deserializer function where a byte-array
// is deserialized into the specified data type.
//
// A data factory function is required for creating new instances of the type
// (especially if pointer semantics is used).
func NewJSONDeserializer[T any](factory func() T) DeserializerFunc[T, []byte] {
	return func(data []byte) (T, error) {
		var zeroValue T

		model := factory()
		if err := json.Unmarshal(data, &model); err != nil {
			return zeroValue, fmt.Errorf("serde.JSON: failed to deserialize data, %w", err)
		}

		return model, nil
	}
}
