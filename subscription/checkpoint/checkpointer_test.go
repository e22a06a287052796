package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-eventstore-http/internal/checkpointtest"
	"github.com/get-eventually/go-eventstore-http/subscription/checkpoint"
)

func TestInMemory(t *testing.T) {
	checkpointtest.Suite(checkpoint.NewInMemory())(t)
}

func TestFixed(t *testing.T) {
	ctx := context.Background()
	start := int64(100)
	checkpointer := checkpoint.Fixed{StartingFrom: start}

	position, ok, err := checkpointer.Read(ctx, "orders", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, start, position)

	require.NoError(t, checkpointer.Write(ctx, "orders", "", 1200))

	position, _, err = checkpointer.Read(ctx, "orders", "")
	require.NoError(t, err)
	assert.Equal(t, start, position)
}
