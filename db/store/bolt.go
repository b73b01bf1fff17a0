package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meghashyamc/bioagents/logger"
	bolt "go.etcd.io/bbolt"
)

// BoltDB keeps one bucket per collection with JSON-encoded documents.
type BoltDB struct {
	store  *bolt.DB
	logger logger.Logger
}

var _ DB = (*BoltDB)(nil)

func NewBolt(logger logger.Logger, path string) (*BoltDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Error("failed to create document database directory", "err", err.Error(), "path", path)
		return nil, fmt.Errorf("failed to create document database directory: %w", err)
	}

	store, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		logger.Error("failed to open database", "err", err.Error(), "path", path)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltDB{store: store, logger: logger}, nil
}

func (b *BoltDB) Write(ctx context.Context, collection string, fields map[string]any, id string) (string, error) {
	if err := validate("write", collection, id, true); err != nil {
		b.logger.Error("invalid write", "err", err.Error())
		return "", err
	}

	value, err := json.Marshal(fields)
	if err != nil {
		return "", &StoreError{Op: "write", Collection: collection, Err: fmt.Errorf("failed to encode document: %w", err)}
	}

	err = b.store.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			b.logger.Error("failed to create bucket", "bucket", collection, "err", err.Error())
			return fmt.Errorf("failed to create bucket: %w", err)
		}

		if err := bucket.Put([]byte(id), value); err != nil {
			b.logger.Error("failed to put document", "bucket", collection, "id", id, "err", err.Error())
			return fmt.Errorf("failed to put document %s: %w", id, err)
		}

		return nil
	})
	if err != nil {
		return "", &StoreError{Op: "write", Collection: collection, Err: err}
	}

	return id, nil
}

func (b *BoltDB) Get(ctx context.Context, collection string, id string) (*Document, error) {
	if err := validate("get", collection, id, true); err != nil {
		return nil, err
	}

	var value []byte
	err := b.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return &NotFoundError{Collection: collection, ID: id}
		}

		v := bucket.Get([]byte(id))
		if v == nil {
			return &NotFoundError{Collection: collection, ID: id}
		}

		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	if err != nil {
		if notFoundErr, ok := err.(*NotFoundError); ok {
			b.logger.Debug("document not found", "bucket", collection, "id", id)
			return nil, notFoundErr
		}
		return nil, &StoreError{Op: "get", Collection: collection, Err: err}
	}

	data := map[string]any{}
	if err := json.Unmarshal(value, &data); err != nil {
		return nil, &StoreError{Op: "get", Collection: collection, Err: fmt.Errorf("failed to decode document %s: %w", id, err)}
	}

	return &Document{ID: id, Data: data}, nil
}

func (b *BoltDB) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	if err := validate("list", collection, "", false); err != nil {
		return nil, err
	}

	documents := []Document{}
	err := b.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			data := map[string]any{}
			if err := json.Unmarshal(v, &data); err != nil {
				return fmt.Errorf("failed to decode document %s: %w", string(k), err)
			}
			documents = append(documents, Document{ID: string(k), Data: data})
			return nil
		})
	})
	if err != nil {
		b.logger.Error("failed to list documents", "bucket", collection, "err", err.Error())
		return nil, &StoreError{Op: "list", Collection: collection, Err: err}
	}

	return sortAndLimit(documents, opts), nil
}

func (b *BoltDB) Ping(ctx context.Context) error {
	if err := b.store.View(func(tx *bolt.Tx) error { return nil }); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

func (b *BoltDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
