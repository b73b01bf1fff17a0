package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/meghashyamc/bioagents/services/diagnostics"
	"github.com/stretchr/testify/require"
)

func TestHandleDiagnostics(t *testing.T) {
	testCases := []struct {
		name           string
		configured     bool
		replyErr       error
		expectedStatus int
		expectedOK     bool
	}{
		{
			name:           "AllHealthy",
			configured:     true,
			expectedStatus: http.StatusOK,
			expectedOK:     true,
		},
		{
			name:           "CredentialsSkipped",
			configured:     false,
			expectedStatus: http.StatusOK,
			expectedOK:     true,
		},
		{
			name:           "ModelDown",
			configured:     true,
			replyErr:       errors.New("permission denied on model"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedOK:     false,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			server := setupTestServer(t, assert, nil)
			server.tokens.setConfigured(testCase.configured)
			server.generator.set(func(f *fakeGenerator) { f.replyErr = testCase.replyErr })

			w := makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/diagnostics", nil, nil, nil)
			assert.Equal(testCase.expectedStatus, w.Code, "response gotten was %s", w.Body.String())

			response := decodeResponse(assert, w)
			assert.Equal(testCase.expectedOK, response["ok"])

			results := response["results"].(map[string]any)
			for _, name := range []string{diagnostics.CheckCredentials, diagnostics.CheckModel, diagnostics.CheckStore, diagnostics.CheckSearch} {
				assert.Contains(results, name)
			}
			if testCase.replyErr != nil {
				model := results[diagnostics.CheckModel].(map[string]any)
				assert.Equal(false, model["ok"])
				assert.Equal(testCase.replyErr.Error(), model["error"])
			}
			if !testCase.configured {
				assert.Equal(true, results[diagnostics.CheckCredentials].(map[string]any)["skipped"])
			}
		})
	}
}
