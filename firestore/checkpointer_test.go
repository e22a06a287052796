package esfirestore_test

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/gcloud"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	esfirestore "github.com/get-eventually/go-eventstore-http/firestore"
	"github.com/get-eventually/go-eventstore-http/internal/checkpointtest"
)

const projectID = "subscriber-host-test"

// newClient connects to the Firestore instance in GOOGLE_PROJECT_ID, if set,
// or to a new emulator container otherwise.
func newClient(ctx context.Context, t *testing.T) *firestore.Client {
	t.Helper()

	if project, ok := os.LookupEnv("GOOGLE_PROJECT_ID"); ok {
		client, err := firestore.NewClient(ctx, project)
		require.NoError(t, err)

		return client
	}

	container, err := gcloud.RunFirestore(
		ctx,
		"gcr.io/google.com/cloudsdktool/cloud-sdk:367.0.0-emulators",
		gcloud.WithProjectID(projectID),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, container.Terminate(context.Background()))
	})

	client, err := firestore.NewClient(ctx, projectID,
		option.WithEndpoint(container.URI),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)

	return client
}

func TestCheckpointer(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	ctx := context.Background()
	client := newClient(ctx, t)

	defer func() { assert.NoError(t, client.Close()) }()

	checkpointtest.Suite(esfirestore.Checkpointer{Client: client})(t)

	t.Run("stream names with slashes are supported", func(t *testing.T) {
		checkpointer := esfirestore.Checkpointer{Client: client, Collection: "EscapedCheckpoints"}

		require.NoError(t, checkpointer.Write(ctx, "tenants/acme/orders", "billing/eu", 42))

		position, ok, err := checkpointer.Read(ctx, "tenants/acme/orders", "billing/eu")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(42), position)
	})

	t.Run("keys sharing the escaped separator do not collide", func(t *testing.T) {
		checkpointer := esfirestore.Checkpointer{Client: client, Collection: "SeparatedCheckpoints"}

		require.NoError(t, checkpointer.Write(ctx, "a@b", "", 1))
		require.NoError(t, checkpointer.Write(ctx, "a", "b@", 2))

		position, ok, err := checkpointer.Read(ctx, "a@b", "")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), position)
	})
}
