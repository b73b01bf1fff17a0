package store

import (
	"context"
	"sync"
)

// MemoryDB is an in-process store. Values are deep-copied on the way in and out.
type MemoryDB struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

var _ DB = (*MemoryDB)(nil)

func NewMemory() *MemoryDB {
	return &MemoryDB{collections: map[string]map[string]map[string]any{}}
}

func (m *MemoryDB) Write(ctx context.Context, collection string, fields map[string]any, id string) (string, error) {
	if err := validate("write", collection, id, true); err != nil {
		return "", err
	}

	clone, err := cloneFields(fields)
	if err != nil {
		return "", &StoreError{Op: "write", Collection: collection, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = map[string]map[string]any{}
	}
	m.collections[collection][id] = clone

	return id, nil
}

func (m *MemoryDB) Get(ctx context.Context, collection string, id string) (*Document, error) {
	if err := validate("get", collection, id, true); err != nil {
		return nil, err
	}

	m.mu.RLock()
	fields, ok := m.collections[collection][id]
	m.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}

	clone, err := cloneFields(fields)
	if err != nil {
		return nil, &StoreError{Op: "get", Collection: collection, Err: err}
	}

	return &Document{ID: id, Data: clone}, nil
}

func (m *MemoryDB) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	if err := validate("list", collection, "", false); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	documents := make([]Document, 0, len(m.collections[collection]))
	for id, fields := range m.collections[collection] {
		clone, err := cloneFields(fields)
		if err != nil {
			return nil, &StoreError{Op: "list", Collection: collection, Err: err}
		}
		documents = append(documents, Document{ID: id, Data: clone})
	}

	return sortAndLimit(documents, opts), nil
}

func (m *MemoryDB) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryDB) Close() error {
	return nil
}
