package atom_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-eventstore-http/atom"
	"github.com/get-eventually/go-eventstore-http/event"
	"github.com/get-eventually/go-eventstore-http/logger"
)

type orderPaid struct {
	OrderID string `json:"orderId"`
	Amount  int    `json:"amount"`
}

var orderPaidType = event.JSONType("OrderPaid", func() *orderPaid { return new(orderPaid) })

const forwardFeed = `{
	"title": "Event stream 'orders'",
	"id": "%[1]s/streams/orders",
	"headOfStream": false,
	"links": [{"uri": "%[1]s/streams/orders", "relation": "self"}],
	"entries": [
		{
			"eventId": "1a3a9a54-6a39-4b8c-9c2d-4b9c2c61a2e1",
			"eventType": "OrderShipped",
			"eventNumber": 2,
			"data": "{\"orderId\":\"order-1\"}",
			"title": "2@orders",
			"id": "%[1]s/streams/orders/2",
			"updated": "2024-03-01T10:00:02Z",
			"links": [{"uri": "%[1]s/streams/orders/2", "relation": "edit"}]
		},
		{
			"eventId": "6f1c1a5e-0a34-4c4e-9b7e-2e3b1c0f4d11",
			"eventType": "OrderPaid",
			"eventNumber": 1,
			"data": {"orderId": "order-1", "amount": 42},
			"title": "1@orders",
			"id": "%[1]s/streams/orders/1",
			"updated": "2024-03-01T10:00:01Z",
			"links": [{"uri": "%[1]s/streams/orders/1", "relation": "edit"}]
		}
	]
}`

const singleEvent = `{
	"title": "1@orders",
	"id": "%[1]s/streams/orders/1",
	"updated": "2024-03-01T10:00:01Z",
	"content": {
		"eventStreamId": "orders",
		"eventNumber": 1,
		"eventType": "OrderPaid",
		"eventId": "6f1c1a5e-0a34-4c4e-9b7e-2e3b1c0f4d11",
		"data": {"orderId": "order-1", "amount": 42}
	},
	"links": [{"uri": "%[1]s/streams/orders/1", "relation": "edit"}]
}`

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, base string)) (*atom.Client, string) {
	t.Helper()

	var base string

	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(w, r, base)
	}))

	base = "http://" + server.Listener.Addr().String()

	server.Start()
	t.Cleanup(server.Close)

	client, err := atom.NewClient(base, atom.WithLogger(logger.NewTest(t)), atom.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return client, base
}

func TestNewClient(t *testing.T) {
	_, err := atom.NewClient("not-absolute")
	assert.Error(t, err)

	_, err = atom.NewClient("http://localhost:2113")
	assert.NoError(t, err)
}

func TestClient_ReadForward(t *testing.T) {
	ctx := context.Background()

	t.Run("entries are returned in ascending order", func(t *testing.T) {
		client, base := newServer(t, func(w http.ResponseWriter, r *http.Request, base string) {
			assert.Equal(t, "/streams/orders/1/forward/20", r.URL.Path)
			assert.Equal(t, "body", r.URL.Query().Get("embed"))
			assert.Equal(t, atom.MediaTypeAtomJSON, r.Header.Get("Accept"))
			assert.Empty(t, r.Header.Get(atom.LongPollHeader))

			fmt.Fprintf(w, forwardFeed, base)
		})

		slice, err := client.ReadForward(ctx, "orders", 1, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, event.ReadSuccess, slice.Status)
		require.Len(t, slice.Entries, 2)

		first := slice.Entries[0]
		assert.Equal(t, uuid.MustParse("6f1c1a5e-0a34-4c4e-9b7e-2e3b1c0f4d11"), first.ID)
		assert.Equal(t, "OrderPaid", first.Type)
		assert.Equal(t, int64(1), first.SequenceNumber)
		assert.Equal(t, "1@orders", first.Title)
		assert.Equal(t, base+"/streams/orders/1", first.Link)
		assert.Equal(t, time.Date(2024, time.March, 1, 10, 0, 1, 0, time.UTC), first.Updated.UTC())
		assert.JSONEq(t, `{"orderId": "order-1", "amount": 42}`, string(first.Content))

		second := slice.Entries[1]
		assert.Equal(t, int64(2), second.SequenceNumber)
		assert.JSONEq(t, `{"orderId":"order-1"}`, string(second.Content))
	})

	t.Run("long-poll timeout is sent in seconds", func(t *testing.T) {
		client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
			assert.Equal(t, "2", r.Header.Get(atom.LongPollHeader))
			fmt.Fprint(w, `{"headOfStream": true, "entries": []}`)
		})

		slice, err := client.ReadForward(ctx, "orders", 3, 20, 1500*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, event.ReadEndOfStream, slice.Status)
		assert.Empty(t, slice.Entries)
	})

	t.Run("missing streams are reported as not found", func(t *testing.T) {
		client, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
			w.WriteHeader(http.StatusNotFound)
		})

		slice, err := client.ReadForward(ctx, "orders", 0, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, event.ReadNotFound, slice.Status)
	})

	t.Run("server errors are returned", func(t *testing.T) {
		client, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.ReadForward(ctx, "orders", 0, 20, 0)

		var statusErr atom.StatusError

		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	})

	t.Run("credentials are sent when configured", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || username != "admin" || password != "changeit" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			fmt.Fprint(w, `{"headOfStream": true, "entries": []}`)
		}))
		defer server.Close()

		client, err := atom.NewClient(server.URL, atom.WithBasicAuth("admin", "changeit"))
		require.NoError(t, err)

		slice, err := client.ReadForward(ctx, "orders", 0, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, event.ReadEndOfStream, slice.Status)
	})
}

func TestClient_ReadSingle(t *testing.T) {
	ctx := context.Background()

	client, base := newServer(t, func(w http.ResponseWriter, r *http.Request, base string) {
		if r.URL.Path != "/streams/orders/1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		fmt.Fprintf(w, singleEvent, base)
	})

	single, err := client.ReadSingle(ctx, "orders", 1)
	require.NoError(t, err)
	assert.Equal(t, event.ReadSuccess, single.Status)
	assert.Equal(t, "OrderPaid", single.Envelope.Type)
	assert.Equal(t, int64(1), single.Envelope.SequenceNumber)
	assert.Equal(t, base+"/streams/orders/1", single.Envelope.Link)

	single, err = client.ReadSingle(ctx, "orders", 99)
	require.NoError(t, err)
	assert.Equal(t, event.ReadNotFound, single.Status)

	single, err = client.ReadSingle(ctx, "orders", -1)
	require.NoError(t, err)
	assert.Equal(t, event.ReadNotFound, single.Status)
}

func TestClient_ReadBody(t *testing.T) {
	ctx := context.Background()

	client, base := newServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		assert.Equal(t, atom.MediaTypeJSON, r.Header.Get("Accept"))

		switch r.URL.Path {
		case "/streams/orders/1":
			fmt.Fprint(w, `{"orderId": "order-1", "amount": 42}`)
		case "/streams/orders/2":
			w.WriteHeader(http.StatusGone)
		case "/streams/orders/3":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	content, err := client.ReadBody(ctx, orderPaidType, base+"/streams/orders/1")
	require.NoError(t, err)
	assert.Equal(t, &orderPaid{OrderID: "order-1", Amount: 42}, content)

	_, err = client.ReadBody(ctx, orderPaidType, base+"/streams/orders/2")
	assert.ErrorIs(t, err, event.ErrNotFound)

	_, err = client.ReadBody(ctx, orderPaidType, base+"/streams/orders/5")
	assert.ErrorIs(t, err, event.ErrNotFound)

	_, err = client.ReadBody(ctx, orderPaidType, base+"/streams/orders/3")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, event.ErrNotFound), "server errors are not transient not-found errors")

	content, err = client.ReadBody(ctx, event.Abstract("Raw"), "/streams/orders/1")
	require.NoError(t, err, "relative links are resolved against the base url")
	assert.JSONEq(t, `{"orderId": "order-1", "amount": 42}`, string(content.([]byte)))
}
