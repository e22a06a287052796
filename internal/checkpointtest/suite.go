// Package checkpointtest contains the conformance suite shared by all
// the checkpoint.Checkpointer implementations.
package checkpointtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/go-eventstore-http/subscription/checkpoint"
)

// Suite returns an executable testing suite running on the
// checkpoint.Checkpointer value provided in input.
//
// Stream names are randomized, so the suite can run against
// shared databases.
func Suite(checkpointer checkpoint.Checkpointer) func(t *testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		stream := fmt.Sprintf("orders-%s", uuid.NewString())

		t.Run("missing checkpoints are reported as absent", func(t *testing.T) {
			_, ok, err := checkpointer.Read(ctx, stream, "")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("written checkpoints can be read back", func(t *testing.T) {
			require.NoError(t, checkpointer.Write(ctx, stream, "", 0))

			position, ok, err := checkpointer.Read(ctx, stream, "")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(0), position)

			require.NoError(t, checkpointer.Write(ctx, stream, "", 1200))

			position, ok, err = checkpointer.Read(ctx, stream, "")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(1200), position)
		})

		t.Run("named subscribers are independent from the default one", func(t *testing.T) {
			_, ok, err := checkpointer.Read(ctx, stream, "billing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, checkpointer.Write(ctx, stream, "billing", 7))

			position, ok, err := checkpointer.Read(ctx, stream, "billing")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(7), position)

			position, _, err = checkpointer.Read(ctx, stream, "")
			require.NoError(t, err)
			assert.Equal(t, int64(1200), position)
		})

		t.Run("streams are independent", func(t *testing.T) {
			_, ok, err := checkpointer.Read(ctx, stream+"-other", "billing")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		lister, ok := checkpointer.(checkpoint.Lister)
		if !ok {
			return
		}

		t.Run("listing returns the written checkpoints", func(t *testing.T) {
			positions, err := lister.List(ctx)
			require.NoError(t, err)

			var found []checkpoint.Position

			for _, position := range positions {
				if position.Stream == stream {
					found = append(found, position)
				}
			}

			assert.Equal(t, []checkpoint.Position{
				{Stream: stream, SubscriberID: "", Position: 1200},
				{Stream: stream, SubscriberID: "billing", Position: 7},
			}, found)
		})
	}
}
