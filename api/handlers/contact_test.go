package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

const validContactMessage = "Gostaria de agendar uma demonstração dos agentes."

var contactHandlerTestCases = []testCase{
	{
		name:           "NoRequestBody",
		requestHeaders: defaultTestRequestHeaders,
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "MissingName",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"email": "ana@lab.bio", "message": validContactMessage},
		expectedStatus: http.StatusBadRequest,
		expectedResponse: map[string]any{
			"error": "missing required field 'name'",
		},
	},
	{
		name:           "MissingEmail",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"name": "Ana", "message": validContactMessage},
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "InvalidEmail",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"name": "Ana", "email": "ana.lab.bio", "message": validContactMessage},
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "ShortMessage",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"name": "Ana", "email": "ana@lab.bio", "message": "Olá!"},
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "MissingMessage",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"name": "Ana", "email": "ana@lab.bio"},
		expectedStatus: http.StatusBadRequest,
	},
}

func TestHandleContactRejectsInvalidInput(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert, nil)

	runTestCases(t, server.router, http.MethodPost, "/api/contact", contactHandlerTestCases)

	assert.Empty(server.sender.sent(), "invalid submissions never reach the send step")
}

func TestHandleContact(t *testing.T) {
	testCases := []struct {
		name        string
		requestBody map[string]any
	}{
		{
			name:        "RequiredFieldsOnly",
			requestBody: map[string]any{"name": "Ana", "email": "ana@lab.bio", "message": validContactMessage},
		},
		{
			name: "AllFields",
			requestBody: map[string]any{
				"name":    "Rui Prado",
				"email":   "rui@pharma.example",
				"company": "Pharma SA",
				"phone":   "+55 11 99999-0000",
				"message": "Precisamos de OCR para laudos de estabilidade.",
			},
		},
		{
			name:        "MessageOfExactlyTwentyCharacters",
			requestBody: map[string]any{"name": "Ana", "email": "ana@lab.bio", "message": "12345678901234567890"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			server := setupTestServer(t, assert, nil)

			w := makeTestHTTPRequest(server.router, assert, http.MethodPost, "/api/contact", defaultTestRequestHeaders, testCase.requestBody, nil)
			assert.Equal(http.StatusOK, w.Code, "response gotten was %s", w.Body.String())

			response := decodeResponse(assert, w)
			assert.Equal(true, response["success"])
			assert.NotEmpty(response["message"])

			sent := server.sender.sent()
			assert.Len(sent, 1)
			assert.Equal(testCase.requestBody["email"], sent[0].Email)

			w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/admin/contacts", adminTestRequestHeaders, nil, nil)
			assert.Equal(http.StatusOK, w.Code)
			items := decodeResponse(assert, w)["items"].([]any)
			assert.Len(items, 1)
			assert.Equal(testCase.requestBody["name"], items[0].(map[string]any)["name"])
		})
	}
}

func TestHandleNewsletter(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert, nil)

	runTestCases(t, server.router, http.MethodPost, "/api/newsletter", []testCase{
		{
			name:           "MissingEmail",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "InvalidEmail",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"email": "not-an-email"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:             "Subscribe",
			requestHeaders:   defaultTestRequestHeaders,
			requestBody:      map[string]any{"email": "Ana@Lab.Bio"},
			expectedStatus:   http.StatusOK,
			expectedResponse: map[string]any{"success": true},
		},
		{
			name:             "Resubscribe",
			requestHeaders:   defaultTestRequestHeaders,
			requestBody:      map[string]any{"email": "ana@lab.bio"},
			expectedStatus:   http.StatusOK,
			expectedResponse: map[string]any{"success": true},
		},
	})

	w := makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/admin/subscribers", adminTestRequestHeaders, nil, nil)
	assert.Equal(http.StatusOK, w.Code)
	items := decodeResponse(assert, w)["items"].([]any)
	assert.Len(items, 1, "resubscribing replaces the earlier sign-up")
	assert.Equal("ana@lab.bio", items[0].(map[string]any)["id"])
}
