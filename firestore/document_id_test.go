package esfirestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "orders|", documentID("orders", ""))
	assert.Equal(t, "tenants%2Facme%2Forders|billing", documentID("tenants/acme/orders", "billing"))

	keys := [][2]string{
		{"a@b", ""},
		{"a", "b@"},
		{"a|b", ""},
		{"a", "|b"},
		{"a", "b"},
	}

	ids := make(map[string][2]string, len(keys))

	for _, key := range keys {
		id := documentID(key[0], key[1])

		if other, ok := ids[id]; ok {
			t.Fatalf("keys %v and %v share the document id '%s'", other, key, id)
		}

		ids[id] = key
	}
}
