package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meghashyamc/bioagents/logger"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logger.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// backends returns every store that can run without network access.
func backends(t *testing.T) map[string]DB {
	bolt, err := NewBolt(newTestLogger(), filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	return map[string]DB{
		"Bolt":   bolt,
		"Memory": NewMemory(),
	}
}

func TestWriteWithSameIDReplacesDocument(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert := require.New(t)
			ctx := context.Background()

			id, err := db.Write(ctx, "sessions", map[string]any{"cenario": "objecao_preco", "nota": 7}, "fixed-id")
			assert.NoError(err)
			assert.Equal("fixed-id", id)

			_, err = db.Write(ctx, "sessions", map[string]any{"resumo": "segunda"}, "fixed-id")
			assert.NoError(err)

			document, err := db.Get(ctx, "sessions", "fixed-id")
			assert.NoError(err)
			assert.Equal(map[string]any{"resumo": "segunda"}, document.Data)
		})
	}
}

func TestGetMissingDocument(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert := require.New(t)

			_, err := db.Get(context.Background(), "sessions", "nope")
			assert.ErrorIs(err, ErrNotFound)
		})
	}
}

func TestWriteRejectsEmptyKeys(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert := require.New(t)
			ctx := context.Background()

			_, err := db.Write(ctx, "", map[string]any{"a": 1}, "id")
			assert.ErrorIs(err, ErrInvalidKey)

			_, err = db.Write(ctx, "sessions", map[string]any{"a": 1}, "")
			assert.ErrorIs(err, ErrInvalidKey)
			var storeErr *StoreError
			assert.ErrorAs(err, &storeErr)
		})
	}
}

func TestListOrdersByFieldDescendingAndLimits(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert := require.New(t)
			ctx := context.Background()
			start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

			for i, id := range []string{"first", "second", "third", "fourth"} {
				_, err := db.Write(ctx, "sessions", map[string]any{"createdAt": Timestamp(start.Add(time.Duration(i) * time.Hour))}, id)
				assert.NoError(err)
			}
			_, err := db.Write(ctx, "sessions", map[string]any{"other": true}, "undated")
			assert.NoError(err)

			documents, err := db.List(ctx, "sessions", ListOptions{Limit: 3, OrderBy: "createdAt"})
			assert.NoError(err)
			assert.Len(documents, 3)
			assert.Equal("fourth", documents[0].ID)
			assert.Equal("third", documents[1].ID)
			assert.Equal("second", documents[2].ID)

			documents, err = db.List(ctx, "sessions", ListOptions{OrderBy: "createdAt"})
			assert.NoError(err)
			assert.Len(documents, 5)
			assert.Equal("undated", documents[4].ID)
		})
	}
}

func TestListUnknownCollectionIsEmpty(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert := require.New(t)

			documents, err := db.List(context.Background(), "empty", ListOptions{})
			assert.NoError(err)
			assert.Empty(documents)
		})
	}
}

func TestMemoryDoesNotAliasCallerMaps(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	db := NewMemory()

	fields := map[string]any{"name": "before"}
	_, err := db.Write(ctx, "contacts", fields, "c1")
	assert.NoError(err)
	fields["name"] = "after"

	document, err := db.Get(ctx, "contacts", "c1")
	assert.NoError(err)
	assert.Equal("before", document.Data["name"])
}

func TestCompareValues(t *testing.T) {
	testCases := []struct {
		name     string
		left     any
		right    any
		expected int
	}{
		{name: "TimeStrings", left: "2026-01-02T00:00:00.000Z", right: "2026-01-01T00:00:00.000Z", expected: 1},
		{name: "Numbers", left: 3.0, right: 10, expected: -1},
		{name: "Strings", left: "b", right: "a", expected: 1},
		{name: "Equal", left: "a", right: "a", expected: 0},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, compareValues(testCase.left, testCase.right))
		})
	}
}
