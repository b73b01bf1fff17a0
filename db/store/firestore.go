package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/meghashyamc/bioagents/logger"
	"golang.org/x/oauth2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreDB maps collections and ids one-to-one onto Firestore documents.
type FirestoreDB struct {
	client *firestore.Client
	logger logger.Logger
}

var _ DB = (*FirestoreDB)(nil)

func NewFirestore(ctx context.Context, logger logger.Logger, projectID string, tokenSource oauth2.TokenSource) (*FirestoreDB, error) {
	if projectID == "" {
		return nil, errors.New("firestore requires a project id")
	}

	client, err := firestore.NewClient(ctx, projectID, option.WithTokenSource(tokenSource))
	if err != nil {
		logger.Error("failed to create firestore client", "err", err.Error(), "project", projectID)
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreDB{client: client, logger: logger}, nil
}

// Write uses Set without merge options, which replaces the whole document.
func (f *FirestoreDB) Write(ctx context.Context, collection string, fields map[string]any, id string) (string, error) {
	if err := validate("write", collection, id, true); err != nil {
		return "", err
	}

	if _, err := f.client.Collection(collection).Doc(id).Set(ctx, fields); err != nil {
		f.logger.Error("failed to write firestore document", "collection", collection, "id", id, "err", err.Error())
		return "", &StoreError{Op: "write", Collection: collection, Err: err}
	}

	return id, nil
}

func (f *FirestoreDB) Get(ctx context.Context, collection string, id string) (*Document, error) {
	if err := validate("get", collection, id, true); err != nil {
		return nil, err
	}

	snapshot, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, &NotFoundError{Collection: collection, ID: id}
		}
		f.logger.Error("failed to read firestore document", "collection", collection, "id", id, "err", err.Error())
		return nil, &StoreError{Op: "get", Collection: collection, Err: err}
	}

	return &Document{ID: snapshot.Ref.ID, Data: snapshot.Data()}, nil
}

func (f *FirestoreDB) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	if err := validate("list", collection, "", false); err != nil {
		return nil, err
	}

	query := f.client.Collection(collection).Query
	if opts.OrderBy != "" {
		query = query.OrderBy(opts.OrderBy, firestore.Desc)
	}
	query = query.Limit(opts.limit())

	snapshots, err := query.Documents(ctx).GetAll()
	if err != nil {
		f.logger.Error("failed to list firestore documents", "collection", collection, "err", err.Error())
		return nil, &StoreError{Op: "list", Collection: collection, Err: err}
	}

	documents := make([]Document, 0, len(snapshots))
	for _, snapshot := range snapshots {
		documents = append(documents, Document{ID: snapshot.Ref.ID, Data: snapshot.Data()})
	}

	return documents, nil
}

func (f *FirestoreDB) Ping(ctx context.Context) error {
	if _, err := f.client.Collections(ctx).Next(); err != nil && !errors.Is(err, iterator.Done) {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

func (f *FirestoreDB) Close() error {
	return f.client.Close()
}
