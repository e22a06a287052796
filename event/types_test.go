package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/type/date"

	"github.com/get-eventually/go-eventstore-http/event"
)

type orderPlaced struct {
	OrderID string `json:"orderId"`
}

func TestTypes(t *testing.T) {
	types, err := event.NewTypes(
		event.Abstract("DomainEvent"),
		event.Abstract("OrderEvent", "DomainEvent"),
		event.Abstract("Auditable"),
		event.JSONType("OrderPlaced", func() *orderPlaced { return new(orderPlaced) }, "OrderEvent", "Auditable"),
	)
	require.NoError(t, err)

	t.Run("registering the same type twice fails", func(t *testing.T) {
		assert.Error(t, types.Register(event.Abstract("OrderEvent")))
	})

	t.Run("unknown types are not resolved", func(t *testing.T) {
		_, ok := types.Resolve("Unknown")
		assert.False(t, ok)
	})

	t.Run("ancestry is breadth-first with distances", func(t *testing.T) {
		assert.Equal(t, []event.Ancestor{
			{Name: "OrderPlaced", Distance: 0},
			{Name: "OrderEvent", Distance: 1},
			{Name: "Auditable", Distance: 1},
			{Name: "DomainEvent", Distance: 2},
		}, types.Ancestry("OrderPlaced"))
	})

	t.Run("diamonds list each ancestor once", func(t *testing.T) {
		require.NoError(t, types.Register(event.Abstract("Refunded", "OrderEvent", "DomainEvent")))

		assert.Equal(t, []event.Ancestor{
			{Name: "Refunded", Distance: 0},
			{Name: "OrderEvent", Distance: 1},
			{Name: "DomainEvent", Distance: 1},
		}, types.Ancestry("Refunded"))
	})

	t.Run("json types decode the body", func(t *testing.T) {
		typ, ok := types.Resolve("OrderPlaced")
		require.True(t, ok)

		v, err := typ.Decode([]byte(`{"orderId":"o-1"}`))
		require.NoError(t, err)
		assert.Equal(t, &orderPlaced{OrderID: "o-1"}, v)

		_, err = typ.Decode([]byte(`{`))
		assert.Error(t, err)
	})

	t.Run("types without decoder return the raw body", func(t *testing.T) {
		v, err := event.Abstract("Raw").Decode([]byte("raw"))
		require.NoError(t, err)
		assert.Equal(t, []byte("raw"), v)
	})
}

func TestType_Decode(t *testing.T) {
	t.Run("json types decode into their factory value", func(t *testing.T) {
		typ := event.JSONType("OrderPlaced", func() *orderPlaced { return new(orderPlaced) })

		content, err := typ.Decode([]byte(`{"orderId": "order-1"}`))
		require.NoError(t, err)
		assert.Equal(t, &orderPlaced{OrderID: "order-1"}, content)
	})

	t.Run("protojson types decode into proto messages", func(t *testing.T) {
		typ := event.ProtoJSONType("OrderDelivered", func() *date.Date { return new(date.Date) }, "OrderEvent")

		content, err := typ.Decode([]byte(`{"year": 2024, "month": 3, "day": 1}`))
		require.NoError(t, err)

		delivered, ok := content.(*date.Date)
		require.True(t, ok)
		assert.Equal(t, int32(2024), delivered.GetYear())
		assert.Equal(t, int32(3), delivered.GetMonth())
		assert.Equal(t, int32(1), delivered.GetDay())
		assert.Equal(t, []string{"OrderEvent"}, typ.Parents)

		_, err = typ.Decode([]byte(`{"year": "last"}`))
		assert.Error(t, err)
	})

	t.Run("abstract types return the raw body", func(t *testing.T) {
		content, err := event.Abstract("OrderEvent").Decode([]byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, []byte(`{}`), content)
	})
}
