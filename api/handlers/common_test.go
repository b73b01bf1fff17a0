// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/config"
	"github.com/meghashyamc/bioagents/db/searchdb"
	"github.com/meghashyamc/bioagents/db/store"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/diagnostics"
	"github.com/meghashyamc/bioagents/services/labels"
	"github.com/meghashyamc/bioagents/services/leads"
	"github.com/meghashyamc/bioagents/services/llm"
	"github.com/meghashyamc/bioagents/services/ocr"
	"github.com/meghashyamc/bioagents/services/roleplay"
	"github.com/meghashyamc/bioagents/services/search"
	"github.com/meghashyamc/bioagents/validation"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var adminTestRequestHeaders = map[string]string{"Content-Type": "application/json", HeaderAdminEmail: "admin@example.com"}

type testCase struct {
	name             string
	requestHeaders   map[string]string
	requestBody      map[string]any
	queryParams      map[string]string
	expectedStatus   int
	expectedResponse map[string]any
}

// fakeGenerator answers image requests with labels, JSON requests with feedback and
// everything else with reply.
type fakeGenerator struct {
	mu          sync.Mutex
	reply       string
	replyErr    error
	feedback    string
	feedbackErr error
	labels      string
	labelsErr   error
	requests    []llm.Request
}

func (f *fakeGenerator) Provider() string { return "fake" }

func (f *fakeGenerator) Generate(_ context.Context, request llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	switch {
	case len(request.Parts) > 0:
		return f.labels, f.labelsErr
	case request.JSON:
		return f.feedback, f.feedbackErr
	default:
		return f.reply, f.replyErr
	}
}

func (f *fakeGenerator) set(update func(f *fakeGenerator)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	update(f)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type recordingSender struct {
	mu       sync.Mutex
	next     leads.Sender
	contacts []leads.Contact
}

func (r *recordingSender) Send(ctx context.Context, contact leads.Contact) error {
	r.mu.Lock()
	r.contacts = append(r.contacts, contact)
	r.mu.Unlock()
	return r.next.Send(ctx, contact)
}

func (r *recordingSender) sent() []leads.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]leads.Contact(nil), r.contacts...)
}

type fakeTokens struct {
	mu         sync.Mutex
	configured bool
}

func (f *fakeTokens) setConfigured(configured bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = configured
}

func (f *fakeTokens) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

func (f *fakeTokens) ResolveProjectID() string {
	return "test"
}

func (f *fakeTokens) ResolveAccessToken(context.Context, ...string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"}, nil
}

type failingStore struct {
	*store.MemoryDB
}

func (failingStore) List(_ context.Context, collection string, _ store.ListOptions) ([]store.Document, error) {
	return nil, &store.StoreError{Op: "list", Collection: collection, Err: store.ErrNotFound}
}

type testServer struct {
	router    *gin.Engine
	cfg       *config.Config
	db        store.DB
	generator *fakeGenerator
	sender    *recordingSender
	tokens    *fakeTokens
	index     *search.LocalIndex

	mu      sync.Mutex
	ocrText string
}

func (s *testServer) setOCRText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ocrText = text
}

func (s *testServer) currentOCRText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ocrText
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

// setupTestServer wires every route against fakes. A nil db means a fresh memory store.
func setupTestServer(t *testing.T, assert *require.Assertions, db store.DB) *testServer {

	t.Setenv("ENV", "test")

	cfg, err := config.Load("")
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()
	if db == nil {
		db = store.NewMemory()
	}

	server := &testServer{
		cfg:       cfg,
		db:        db,
		generator: &fakeGenerator{reply: "Entendo, mas o preço ainda me preocupa."},
		tokens:    &fakeTokens{configured: true},
		ocrText:   "Laudo técnico do lote 42",
	}
	server.sender = &recordingSender{next: leads.NewStoreSender(testLogger, db)}

	ocrUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"document": map[string]any{"text": server.currentOCRText()}})
	}))
	t.Cleanup(ocrUpstream.Close)

	searchDB, err := searchdb.NewMemOnly(testLogger)
	assert.NoError(err, "could not create search database")
	t.Cleanup(func() { _ = searchDB.Close() })
	server.index = search.NewLocalIndex(searchDB)

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	catalog, err := roleplay.LoadCatalog()
	assert.NoError(err, "could not load scenario catalog")

	leadsService := leads.New(testLogger, server.sender, db)
	searchService := search.New(testLogger, server.index)
	ocrService := ocr.New(testLogger, ocrUpstream.Client(), server.tokens, ocr.Settings{
		Processor: "test-processor",
		Endpoint:  ocrUpstream.URL,
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupLeads(router, testLogger, leadsService, validator)
	SetupLabels(router, testLogger, labels.New(testLogger, server.generator), validator)
	SetupDocuments(router, testLogger, ocrService, validator)
	SetupRoleplay(router, testLogger, roleplay.New(testLogger, server.generator, db, catalog, ""))
	SetupSearch(router, testLogger, searchService, cfg.GetSearchServingConfig(), validator)
	SetupDiagnostics(router, diagnostics.New(testLogger,
		diagnostics.CredentialsCheck(server.tokens),
		diagnostics.ModelCheck(server.generator),
		diagnostics.StoreCheck(db),
		diagnostics.SearchCheck(searchService, cfg.GetSearchServingConfig()),
	))
	SetupAdmin(router, testLogger, leadsService, server.index, cfg.GetAdminEmails(), validator)

	server.router = router
	return server
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]any, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		values := url.Values{}
		for key, value := range queryParams {
			values.Set(key, value)
		}
		endpoint = endpoint + "?" + values.Encode()
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers)

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func decodeResponse(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	responseMap := map[string]any{}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &responseMap), "response was %s", w.Body.String())
	return responseMap
}

// assertResponseContains checks that every expected key is present with an equal value.
func assertResponseContains(assert *require.Assertions, expected map[string]any, actual map[string]any) {
	for key, expectedValue := range expected {
		actualValue, exists := actual[key]
		assert.True(exists, "expected field %s in response", key)
		assert.Equal(expectedValue, actualValue, "field %s mismatch", key)
	}
}

func runTestCases(t *testing.T, router *gin.Engine, method string, endpoint string, testCases []testCase) {
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(router, assert, method, endpoint, testCase.requestHeaders, testCase.requestBody, testCase.queryParams)
			assert.Equal(testCase.expectedStatus, w.Code, "response gotten was %s", w.Body.String())

			responseMap := decodeResponse(assert, w)
			if testCase.expectedStatus >= http.StatusBadRequest {
				assert.NotEmpty(responseMap["error"], "failures carry an error message")
			}
			if testCase.expectedResponse != nil {
				assertResponseContains(assert, testCase.expectedResponse, responseMap)
			}
		})
	}
}
