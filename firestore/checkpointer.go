// Package esfirestore contains a checkpoint.Checkpointer implementation
// storing the subscription checkpoints in Google Cloud Firestore.
package esfirestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/get-eventually/go-eventstore-http/subscription/checkpoint"
)

// DefaultCollection is the Firestore collection used when none is specified.
const DefaultCollection = "SubscriptionCheckpoints"

//nolint:exhaustruct // Only used for interface assertion.
var (
	_ checkpoint.Checkpointer = Checkpointer{}
	_ checkpoint.Lister       = Checkpointer{}
)

// Checkpointer is a checkpoint.Checkpointer implementation using Firestore
// as storage backend.
//
// Every checkpoint is a document in the Collection, with the stream name,
// subscriber id and position as fields.
type Checkpointer struct {
	Client     *firestore.Client
	Collection string
}

func (c Checkpointer) collection() *firestore.CollectionRef {
	if c.Collection == "" {
		return c.Client.Collection(DefaultCollection)
	}

	return c.Client.Collection(c.Collection)
}

// documentIDSeparator joins the key parts of a document id.
// url.PathEscape always escapes it, so it never appears inside a part.
const documentIDSeparator = "|"

// documentID escapes the key parts, since document ids cannot contain slashes.
func documentID(stream, subscriberID string) string {
	return url.PathEscape(stream) + documentIDSeparator + url.PathEscape(subscriberID)
}

// Read implements the checkpoint.Checkpointer interface.
func (c Checkpointer) Read(ctx context.Context, stream, subscriberID string) (int64, bool, error) {
	doc, err := c.collection().Doc(documentID(stream, subscriberID)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("esfirestore.Checkpointer.Read: failed to get checkpoint, %w", err)
	}

	position, err := positionOf(doc)
	if err != nil {
		return 0, false, fmt.Errorf("esfirestore.Checkpointer.Read: %w", err)
	}

	return position, true, nil
}

// Write implements the checkpoint.Checkpointer interface.
func (c Checkpointer) Write(ctx context.Context, stream, subscriberID string, position int64) error {
	_, err := c.collection().Doc(documentID(stream, subscriberID)).Set(ctx, map[string]interface{}{
		"stream":        stream,
		"subscriber_id": subscriberID,
		"position":      position,
		"updated_at":    firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("esfirestore.Checkpointer.Write: failed to set checkpoint, %w", err)
	}

	return nil
}

// List implements the checkpoint.Lister interface.
func (c Checkpointer) List(ctx context.Context) ([]checkpoint.Position, error) {
	iter := c.collection().Documents(ctx)
	defer iter.Stop()

	var positions []checkpoint.Position

	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("esfirestore.Checkpointer.List: failed while reading iterator, %w", err)
		}

		position, err := positionOf(doc)
		if err != nil {
			return nil, fmt.Errorf("esfirestore.Checkpointer.List: %w", err)
		}

		stream, _ := doc.Data()["stream"].(string)
		subscriberID, _ := doc.Data()["subscriber_id"].(string)

		positions = append(positions, checkpoint.Position{
			Stream:       stream,
			SubscriberID: subscriberID,
			Position:     position,
		})
	}

	checkpoint.SortPositions(positions)

	return positions, nil
}

func positionOf(doc *firestore.DocumentSnapshot) (int64, error) {
	position, ok := doc.Data()["position"].(int64)
	if !ok {
		return 0, fmt.Errorf("invalid position field in document '%s'", doc.Ref.ID)
	}

	return position, nil
}
