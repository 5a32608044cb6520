package remote

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mealtrack/internal/common"
)

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to the project's Firestore database. When
// credentialsFile is empty, application-default credentials are used.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Upsert(ctx context.Context, path string, fields Document) error {
	_, err := s.client.Doc(path).Set(ctx, map[string]any(fields))
	return s.mapError(err)
}

func (s *FirestoreStore) Merge(ctx context.Context, path string, fields Document) error {
	_, err := s.client.Doc(path).Set(ctx, map[string]any(fields), firestore.MergeAll)
	return s.mapError(err)
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (Document, error) {
	snap, err := s.client.Doc(path).Get(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return Document(snap.Data()), nil
}

func (s *FirestoreStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	var result []Snapshot
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, s.mapError(err)
		}
		result = append(result, Snapshot{Key: snap.Ref.ID, Fields: Document(snap.Data())})
	}
	return result, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// mapError translates Firestore/gRPC errors into the shared sentinels.
func (s *FirestoreStore) mapError(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return common.ErrNotFound
	}
	return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
}
