// Package ocr turns an uploaded PDF or image into plain text, using the PDF text layer
// when there is one and the Document AI OCR processor otherwise.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/credentials"
	"github.com/meghashyamc/bioagents/services/errs"
	"github.com/meghashyamc/bioagents/services/payload"
	"golang.org/x/oauth2"
)

const (
	mimePDF         = "application/pdf"
	DefaultLocation = "us"

	maxErrorBodyLength = 500
)

var DocumentTypes = []string{mimePDF, "image/png", "image/jpeg", "image/tiff", "image/gif", "image/webp", "image/bmp"}

var errProcessorNotConfigured = errs.Configuration("document ai processor not configured")

type TokenResolver interface {
	Configured() bool
	ResolveProjectID() string
	ResolveAccessToken(ctx context.Context, scopes ...string) (*oauth2.Token, error)
}

type Settings struct {
	// Processor is either a processor id or a full projects/.../processors/... name.
	Processor string
	Location  string
	// Endpoint overrides https://{location}-documentai.googleapis.com.
	Endpoint string
}

type Result struct {
	Text      string `json:"text"`
	CharCount int    `json:"charCount"`
}

type Service struct {
	logger     logger.Logger
	httpClient *http.Client
	tokens     TokenResolver
	settings   Settings
	textLayer  func([]byte) (string, error)
}

func New(logger logger.Logger, httpClient *http.Client, tokens TokenResolver, settings Settings) *Service {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if settings.Location == "" {
		settings.Location = DefaultLocation
	}
	return &Service{
		logger:     logger,
		httpClient: httpClient,
		tokens:     tokens,
		settings:   settings,
		textLayer:  pdfTextLayer,
	}
}

// Extract decodes the upload and returns its text. Unsupported types are validation
// errors, missing credentials or processor are configuration errors and an empty result
// is a no content error.
func (s *Service) Extract(ctx context.Context, file string, mimeType string) (*Result, error) {
	data, declared, err := payload.Decode(file)
	if err != nil {
		return nil, err
	}
	if mimeType == "" {
		mimeType = declared
	}

	resolved, err := payload.ResolveMIME(data, mimeType, DocumentTypes)
	if err != nil {
		return nil, err
	}

	if resolved == mimePDF {
		text, err := s.textLayer(data)
		switch {
		case err != nil:
			s.logger.Info("pdf text layer unreadable, using ocr", "err", err.Error())
		case hasTextLayer(text):
			s.logger.Info("answered from pdf text layer", "chars", utf8.RuneCountInString(text))
			return newResult(text)
		}
	}

	text, err := s.process(ctx, data, resolved)
	if err != nil {
		return nil, err
	}

	return newResult(text)
}

func newResult(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.NoContent("no text found in document")
	}
	return &Result{Text: text, CharCount: utf8.RuneCountInString(text)}, nil
}

type processRequest struct {
	RawDocument rawDocument `json:"rawDocument"`
}

type rawDocument struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type processResponse struct {
	Document struct {
		Text string `json:"text"`
	} `json:"document"`
}

func (s *Service) process(ctx context.Context, data []byte, mimeType string) (string, error) {
	if s.tokens == nil || !s.tokens.Configured() {
		return "", credentials.ErrNotConfigured
	}
	name, err := s.processorName()
	if err != nil {
		return "", err
	}

	token, err := s.tokens.ResolveAccessToken(ctx, credentials.ScopeCloudPlatform)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(processRequest{RawDocument: rawDocument{
		Content:  base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}})
	if err != nil {
		return "", fmt.Errorf("failed to encode ocr request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s:process", s.endpoint(), name)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build ocr request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(request)

	response, err := s.httpClient.Do(request)
	if err != nil {
		s.logger.Error("ocr request failed", "err", err.Error())
		return "", errs.Transport("ocr request", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", errs.Transport("read ocr response", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		s.logger.Warn("document ai returned an error", "status", response.StatusCode)
		return "", errs.Transport(fmt.Sprintf("ocr request failed with status %d", response.StatusCode),
			fmt.Errorf("%s", truncate(string(responseBody), maxErrorBodyLength)))
	}

	parsed := processResponse{}
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", errs.UpstreamFormat("decode ocr response", err)
	}

	return parsed.Document.Text, nil
}

func (s *Service) processorName() (string, error) {
	processor := strings.Trim(strings.TrimSpace(s.settings.Processor), "/")
	if processor == "" {
		return "", errProcessorNotConfigured
	}
	if strings.HasPrefix(processor, "projects/") {
		return processor, nil
	}

	projectID := s.tokens.ResolveProjectID()
	if projectID == "" {
		return "", errs.Configuration("google cloud project id not configured")
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, s.settings.Location, processor), nil
}

func (s *Service) endpoint() string {
	if s.settings.Endpoint != "" {
		return strings.TrimRight(s.settings.Endpoint, "/")
	}
	return fmt.Sprintf("https://%s-documentai.googleapis.com", s.settings.Location)
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
