package search

import (
	"context"

	"github.com/meghashyamc/bioagents/db/searchdb"
)

// LocalIndex serves queries from the embedded bleve index. The serving config only
// gates whether a search happens at all.
type LocalIndex struct {
	db searchdb.DB
}

var _ Searcher = (*LocalIndex)(nil)

func NewLocalIndex(db searchdb.DB) *LocalIndex {
	return &LocalIndex{db: db}
}

func (l *LocalIndex) Index(documents []searchdb.Document) error {
	return l.db.Index(documents)
}

func (l *LocalIndex) Query(ctx context.Context, servingConfig string, query string, pageSize int) ([]RawResult, error) {
	response, err := l.db.Search(query, pageSize)
	if err != nil {
		return nil, err
	}

	results := make([]RawResult, 0, len(response.Results))
	for _, hit := range response.Results {
		results = append(results, RawResult{
			"id":      hit.ID,
			"title":   hit.Title,
			"uri":     hit.URI,
			"snippet": hit.Snippet,
			"content": hit.Content,
			"score":   hit.Score,
		})
	}

	return results, nil
}
