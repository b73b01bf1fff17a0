package searchdb

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meghashyamc/bioagents/logger"
)

const indexingBatchSize = 100

const (
	indexFieldTitle   = "title"
	indexFieldContent = "content"
	indexFieldURI     = "uri"
)

var quotedPhrasePattern = regexp.MustCompile(`"([^"]*)"`)

type BleveDB struct {
	indexPath string
	logger    logger.Logger
	index     bleve.Index
}

var _ DB = (*BleveDB)(nil)

func New(logger logger.Logger, indexPath string) (*BleveDB, error) {
	index, err := bleve.New(indexPath, createIndexMapping())
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Error("could not open index", "err", err.Error(), "path", indexPath)
			return nil, err
		}
	}
	return &BleveDB{indexPath: indexPath, logger: logger, index: index}, nil
}

// NewMemOnly keeps the index in memory; nothing survives Close.
func NewMemOnly(logger logger.Logger) (*BleveDB, error) {
	index, err := bleve.NewMemOnly(createIndexMapping())
	if err != nil {
		logger.Error("could not create in-memory index", "err", err.Error())
		return nil, err
	}
	return &BleveDB{logger: logger, index: index}, nil
}

func (b *BleveDB) Index(documents []Document) error {

	batch := b.index.NewBatch()

	for i, doc := range documents {

		if err := batch.Index(doc.ID, doc); err != nil {
			b.logger.Error("could not index document", "id", doc.ID, "err", err.Error())
			return err
		}

		if (i+1)%indexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not index document", "err", err.Error())
			return err
		}
	}

	return nil
}

func createIndexMapping() mapping.IndexMapping {

	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldTitle, titleFieldMapping)

	// Content is stored so that highlight fragments can be cut from it
	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = standard.Name
	contentFieldMapping.Store = true
	contentFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(indexFieldContent, contentFieldMapping)

	uriFieldMapping := bleve.NewTextFieldMapping()
	uriFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldURI, uriFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

func (b *BleveDB) Search(queryString string, limit int) (*Response, error) {
	start := time.Now()

	searchRequest := bleve.NewSearchRequestOptions(b.buildSearchQuery(queryString), limit, 0, false)
	searchRequest.Fields = []string{indexFieldTitle, indexFieldURI, indexFieldContent}
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField(indexFieldContent)

	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("search failed", "err", err.Error())
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, len(searchResult.Hits))
	for i, hit := range searchResult.Hits {
		result := Result{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if title, ok := hit.Fields[indexFieldTitle].(string); ok {
			result.Title = title
		}
		if uri, ok := hit.Fields[indexFieldURI].(string); ok {
			result.URI = uri
		}
		if content, ok := hit.Fields[indexFieldContent].(string); ok {
			result.Content = content
		}
		if fragments := hit.Fragments[indexFieldContent]; len(fragments) > 0 {
			result.Snippet = fragments[0]
		}

		results[i] = result
	}

	return &Response{
		Results:    results,
		Total:      searchResult.Total,
		MaxScore:   searchResult.MaxScore,
		SearchTime: time.Since(start).String(),
	}, nil
}

func (b *BleveDB) buildSearchQuery(queryString string) query.Query {

	const (
		boostForContent      = 3.0
		boostForTitle        = 2.0
		boostForPhraseMatch  = 5.0
		boostForPartialMatch = 1.5
	)

	quoted, remaining := parseQuotedQuery(strings.ToLower(queryString))

	if len(quoted) == 0 && remaining == "" {
		return bleve.NewMatchAllQuery()
	}

	disjunctQuery := bleve.NewDisjunctionQuery()

	for _, phrase := range quoted {
		phraseQuery := bleve.NewMatchPhraseQuery(phrase)
		phraseQuery.SetField(indexFieldContent)
		phraseQuery.SetBoost(boostForPhraseMatch)
		disjunctQuery.AddQuery(phraseQuery)

		titlePhraseQuery := bleve.NewMatchPhraseQuery(phrase)
		titlePhraseQuery.SetField(indexFieldTitle)
		titlePhraseQuery.SetBoost(boostForTitle)
		disjunctQuery.AddQuery(titlePhraseQuery)
	}

	if remaining == "" {
		return disjunctQuery
	}

	contentQuery := bleve.NewMatchQuery(remaining)
	contentQuery.SetField(indexFieldContent)
	contentQuery.SetBoost(boostForContent)
	disjunctQuery.AddQuery(contentQuery)

	titleQuery := bleve.NewMatchQuery(remaining)
	titleQuery.SetField(indexFieldTitle)
	titleQuery.SetBoost(boostForTitle)
	disjunctQuery.AddQuery(titleQuery)

	phraseQuery := bleve.NewMatchPhraseQuery(remaining)
	phraseQuery.SetField(indexFieldContent)
	phraseQuery.SetBoost(boostForPhraseMatch)
	disjunctQuery.AddQuery(phraseQuery)

	if len(remaining) > 2 && !strings.Contains(remaining, " ") {
		prefixQuery := bleve.NewPrefixQuery(remaining)
		prefixQuery.SetField(indexFieldTitle)
		prefixQuery.SetBoost(boostForPartialMatch)
		disjunctQuery.AddQuery(prefixQuery)

		contentPrefixQuery := bleve.NewPrefixQuery(remaining)
		contentPrefixQuery.SetField(indexFieldContent)
		contentPrefixQuery.SetBoost(boostForPartialMatch)
		disjunctQuery.AddQuery(contentPrefixQuery)
	}

	return disjunctQuery
}

// parseQuotedQuery splits "quoted phrases" from the rest of the query.
// Empty phrases are dropped and the remainder has its whitespace collapsed.
func parseQuotedQuery(queryString string) ([]string, string) {
	var quoted []string
	for _, match := range quotedPhrasePattern.FindAllStringSubmatch(queryString, -1) {
		if phrase := strings.TrimSpace(match[1]); phrase != "" {
			quoted = append(quoted, phrase)
		}
	}

	remaining := quotedPhrasePattern.ReplaceAllString(queryString, " ")

	return quoted, strings.Join(strings.Fields(remaining), " ")
}

func (b *BleveDB) GetDocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *BleveDB) Close() error {

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			return err
		}
	}
	return nil
}
