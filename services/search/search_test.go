package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/meghashyamc/bioagents/db/searchdb"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/credentials"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestLogger() logger.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fakeSearcher struct {
	calls         int
	servingConfig string
	pageSize      int
	results       []RawResult
	err           error
}

func (f *fakeSearcher) Query(ctx context.Context, servingConfig string, query string, pageSize int) ([]RawResult, error) {
	f.calls++
	f.servingConfig = servingConfig
	f.pageSize = pageSize
	return f.results, f.err
}

type fakeTokens struct {
	err error
}

func (f fakeTokens) ResolveAccessToken(ctx context.Context, scopes ...string) (*oauth2.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"}, nil
}

func TestSearchEmptyServingConfigSkipsBackend(t *testing.T) {
	assert := require.New(t)
	searcher := &fakeSearcher{}
	service := New(newTestLogger(), searcher)

	documents, err := service.Search(context.Background(), "///", "assay", 0)
	assert.NoError(err)
	assert.Empty(documents)
	assert.NotNil(documents)
	assert.Equal(0, searcher.calls)
}

func TestSearchDropsResultsWithoutSnippet(t *testing.T) {
	assert := require.New(t)
	searcher := &fakeSearcher{results: []RawResult{
		{"id": "1", "snippet": "first"},
		{"id": "2", "title": "no text"},
		{"id": "3", "content": "third"},
		{"id": "4"},
	}}
	service := New(newTestLogger(), searcher)

	documents, err := service.Search(context.Background(), "/projects/p/servingConfigs/s", "assay", 0)
	assert.NoError(err)
	assert.Len(documents, 2)
	assert.Equal("1", documents[0].ID)
	assert.Equal("3", documents[1].ID)
	assert.Equal("projects/p/servingConfigs/s", searcher.servingConfig)
	assert.Equal(DefaultPageSize, searcher.pageSize)
}

func TestSearchPropagatesBackendError(t *testing.T) {
	assert := require.New(t)
	searcher := &fakeSearcher{err: &SearchError{Status: 403, Body: "denied"}}
	service := New(newTestLogger(), searcher)

	_, err := service.Search(context.Background(), "projects/p", "assay", 3)
	var searchErr *SearchError
	assert.ErrorAs(err, &searchErr)
	assert.Equal(403, searchErr.Status)
}

func TestDiscoveryClientQuery(t *testing.T) {
	assert := require.New(t)

	var gotPath, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":"doc-1","document":{"id":"doc-1","derivedStructData":{"title":"T","snippets":[{"snippet":"hit <b>here</b>","snippet_status":"SUCCESS"}]}}}]}`))
	}))
	defer server.Close()

	client := NewDiscoveryClient(newTestLogger(), server.Client(), server.URL+"/", fakeTokens{})
	service := New(newTestLogger(), client)

	documents, err := service.Search(context.Background(), "/projects/p/servingConfigs/default", "assay", 5)
	assert.NoError(err)
	assert.Equal("/v1/projects/p/servingConfigs/default:search", gotPath)
	assert.Equal("Bearer test-token", gotAuth)
	assert.Equal("assay", gotBody["query"])
	assert.Equal(float64(5), gotBody["pageSize"])
	assert.Len(documents, 1)
	assert.Equal("hit here", documents[0].Snippet)
	assert.Equal("T", documents[0].Title)
}

func TestDiscoveryClientNon2xxTruncatesBody(t *testing.T) {
	assert := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer server.Close()

	client := NewDiscoveryClient(newTestLogger(), server.Client(), server.URL, fakeTokens{})

	_, err := client.Query(context.Background(), "projects/p", "assay", 5)
	var searchErr *SearchError
	assert.ErrorAs(err, &searchErr)
	assert.Equal(http.StatusForbidden, searchErr.Status)
	assert.Len(searchErr.Body, maxErrorBodyLength)
}

func TestDiscoveryClientWithoutCredentials(t *testing.T) {
	assert := require.New(t)
	client := NewDiscoveryClient(newTestLogger(), nil, "http://unused", fakeTokens{err: credentials.ErrNotConfigured})

	_, err := client.Query(context.Background(), "projects/p", "assay", 5)
	assert.True(errors.Is(err, credentials.ErrNotConfigured))
}

func TestLocalIndexSearch(t *testing.T) {
	assert := require.New(t)

	db, err := searchdb.NewMemOnly(newTestLogger())
	assert.NoError(err)
	defer db.Close()

	local := NewLocalIndex(db)
	assert.NoError(local.Index([]searchdb.Document{
		{ID: "elisa", Title: "ELISA protocol", Content: "Coat the plate with capture antibody overnight.", URI: "https://example.com/elisa"},
		{ID: "pcr", Title: "qPCR protocol", Content: "Prepare the master mix on ice before adding template.", URI: "https://example.com/pcr"},
	}))

	service := New(newTestLogger(), local)
	documents, err := service.Search(context.Background(), "local", "antibody", 0)
	assert.NoError(err)
	assert.Len(documents, 1)
	assert.Equal("elisa", documents[0].ID)
	assert.Equal("ELISA protocol", documents[0].Title)
	assert.Contains(documents[0].Snippet, "antibody")
	assert.NotContains(documents[0].Snippet, "<mark>")
	assert.NotNil(documents[0].Score)
}
