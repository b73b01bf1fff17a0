package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/credentials"
	"github.com/meghashyamc/bioagents/services/errs"
	"golang.org/x/oauth2"
)

const maxErrorBodyLength = 500

type TokenResolver interface {
	ResolveAccessToken(ctx context.Context, scopes ...string) (*oauth2.Token, error)
}

// SearchError is a non-2xx answer from the search endpoint.
type SearchError struct {
	Status int
	Body   string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search request failed with status %d: %s", e.Status, e.Body)
}

// DiscoveryClient calls the Discovery Engine (Vertex AI Search) REST API.
type DiscoveryClient struct {
	logger     logger.Logger
	httpClient *http.Client
	endpoint   string
	tokens     TokenResolver
}

var _ Searcher = (*DiscoveryClient)(nil)

func NewDiscoveryClient(logger logger.Logger, httpClient *http.Client, endpoint string, tokens TokenResolver) *DiscoveryClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DiscoveryClient{
		logger:     logger,
		httpClient: httpClient,
		endpoint:   strings.TrimRight(endpoint, "/"),
		tokens:     tokens,
	}
}

type discoveryRequest struct {
	Query             string            `json:"query"`
	PageSize          int               `json:"pageSize"`
	ContentSearchSpec contentSearchSpec `json:"contentSearchSpec"`
}

type contentSearchSpec struct {
	SnippetSpec           snippetSpec           `json:"snippetSpec"`
	ExtractiveContentSpec extractiveContentSpec `json:"extractiveContentSpec"`
}

type snippetSpec struct {
	ReturnSnippet bool `json:"returnSnippet"`
}

type extractiveContentSpec struct {
	MaxExtractiveSegmentCount int `json:"maxExtractiveSegmentCount"`
}

type discoveryResponse struct {
	Results []RawResult `json:"results"`
}

func (d *DiscoveryClient) Query(ctx context.Context, servingConfig string, query string, pageSize int) ([]RawResult, error) {
	token, err := d.tokens.ResolveAccessToken(ctx, credentials.ScopeCloudPlatform)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(discoveryRequest{
		Query:    query,
		PageSize: pageSize,
		ContentSearchSpec: contentSearchSpec{
			SnippetSpec:           snippetSpec{ReturnSnippet: true},
			ExtractiveContentSpec: extractiveContentSpec{MaxExtractiveSegmentCount: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s:search", d.endpoint, servingConfig)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(request)

	response, err := d.httpClient.Do(request)
	if err != nil {
		d.logger.Error("search request failed", "err", err.Error())
		return nil, errs.Transport("search request", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errs.Transport("read search response", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		d.logger.Warn("search endpoint returned an error", "status", response.StatusCode)
		return nil, &SearchError{Status: response.StatusCode, Body: truncate(string(responseBody), maxErrorBodyLength)}
	}

	parsed := discoveryResponse{}
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return nil, errs.UpstreamFormat("decode search response", err)
	}

	return parsed.Results, nil
}
