// Package search queries a search backend and normalizes its heterogeneous results
// into uniform document summaries.
package search

import (
	"context"
	"strings"

	"github.com/meghashyamc/bioagents/logger"
)

const DefaultPageSize = 8

// RawResult is one backend result before normalization.
type RawResult = map[string]any

type Searcher interface {
	Query(ctx context.Context, servingConfig string, query string, pageSize int) ([]RawResult, error)
}

type Document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Snippet  string         `json:"snippet"`
	URI      string         `json:"uri,omitempty"`
	Score    *float64       `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Service struct {
	logger   logger.Logger
	searcher Searcher
}

func New(logger logger.Logger, searcher Searcher) *Service {
	return &Service{
		logger:   logger,
		searcher: searcher,
	}
}

// Search returns an empty result without calling the backend when the serving config
// is empty after leading slashes are removed. Results without a readable snippet are dropped.
func (s *Service) Search(ctx context.Context, servingConfig string, query string, pageSize int) ([]Document, error) {
	servingConfig = NormalizeServingConfig(servingConfig)
	if servingConfig == "" {
		s.logger.Warn("search skipped, serving config is empty")
		return []Document{}, nil
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	rawResults, err := s.searcher.Query(ctx, servingConfig, query, pageSize)
	if err != nil {
		s.logger.Error("search failed", "serving_config", servingConfig, "err", err.Error())
		return nil, err
	}

	documents := make([]Document, 0, len(rawResults))
	for _, raw := range rawResults {
		document, ok := Normalize(raw)
		if !ok {
			continue
		}
		documents = append(documents, document)
	}

	if dropped := len(rawResults) - len(documents); dropped > 0 {
		s.logger.Debug("dropped search results without snippet", "dropped", dropped)
	}

	return documents, nil
}

func NormalizeServingConfig(servingConfig string) string {
	return strings.TrimLeft(strings.TrimSpace(servingConfig), "/")
}
