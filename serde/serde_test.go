package serde_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/get-eventually/go-eventstore-http/serde"
)

type orderPlaced struct {
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"`
}

func TestJSONDeserializer(t *testing.T) {
	deserializer := serde.NewJSONDeserializer(func() *orderPlaced { return new(orderPlaced) })

	t.Run("valid json is decoded into the model", func(t *testing.T) {
		order, err := deserializer.Deserialize([]byte(`{"orderId":"o-1","amount":42}`))
		require.NoError(t, err)
		assert.Equal(t, &orderPlaced{OrderID: "o-1", Amount: 42}, order)
	})

	t.Run("invalid json returns an error", func(t *testing.T) {
		order, err := deserializer.Deserialize([]byte(`{"orderId":`))
		assert.Error(t, err)
		assert.Nil(t, order)
	})
}

func TestProtoJSONDeserializer(t *testing.T) {
	deserializer := serde.NewProtoJSONDeserializer(func() *structpb.Struct { return new(structpb.Struct) })

	value, err := deserializer.Deserialize([]byte(`{"orderId":"o-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "o-1", value.GetFields()["orderId"].GetStringValue())

	_, err = deserializer.Deserialize([]byte(`not json`))
	assert.Error(t, err)
}

func TestErase(t *testing.T) {
	erased := serde.Erase[*orderPlaced](serde.NewJSONDeserializer(func() *orderPlaced { return new(orderPlaced) }))

	value, err := erased.Deserialize([]byte(`{"orderId":"o-2"}`))
	require.NoError(t, err)
	assert.IsType(t, &orderPlaced{}, value)
}
