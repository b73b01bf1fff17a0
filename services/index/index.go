// Package index seeds the local search index from a directory of site content. Files
// that have not changed since they were last indexed are skipped.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/bioagents/db/searchdb"
	"github.com/meghashyamc/bioagents/db/store"
	"github.com/meghashyamc/bioagents/logger"
)

// FilesCollection records when each content file was last indexed.
const FilesCollection = "search_index_files"

const (
	fieldPath        = "path"
	fieldLastIndexed = "lastIndexed"

	indexingBatchSize = 100
)

type Indexer interface {
	Index(documents []searchdb.Document) error
}

type Service struct {
	logger  logger.Logger
	indexer Indexer
	store   store.DB
	now     func() time.Time
}

func New(logger logger.Logger, indexer Indexer, db store.DB) *Service {
	return &Service{logger: logger, indexer: indexer, store: db, now: time.Now}
}

// Build indexes every new or modified content file under rootPath and returns how many
// documents were indexed.
func (s *Service) Build(ctx context.Context, rootPath string) (int, error) {
	indexTime := s.now().UTC()

	files, err := s.discoverModifiedFiles(ctx, rootPath)
	if err != nil {
		s.logger.Error("failed to discover content files", "root", rootPath, "err", err.Error())
		return 0, err
	}
	s.logger.Info("discovered modified content files", "root", rootPath, "num_of_files", len(files))

	indexed := 0
	for start := 0; start < len(files); start += indexingBatchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		batch := files[start:min(start+indexingBatchSize, len(files))]
		documents := make([]searchdb.Document, 0, len(batch))
		processed := make([]FileInfo, 0, len(batch))
		for _, file := range batch {
			document, err := extractContent(file)
			if err != nil {
				s.logger.Error("error processing file", "path", file.Path, "err", err.Error())
				continue
			}
			documents = append(documents, document)
			processed = append(processed, file)
		}

		if err := s.indexer.Index(documents); err != nil {
			s.logger.Error("failed to index content files", "err", err.Error())
			return indexed, fmt.Errorf("failed to index content files: %w", err)
		}
		indexed += len(documents)

		for _, file := range processed {
			s.setLastIndexed(ctx, file, indexTime)
		}
	}

	s.logger.Info("finished indexing content files", "count", fmt.Sprintf("%d/%d", indexed, len(files)))
	return indexed, nil
}

// documentID is stable per relative path and safe as a store key.
func documentID(relativePath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(relativePath)).String()
}

func (s *Service) shouldFileBeIndexed(ctx context.Context, file FileInfo) bool {
	document, err := s.store.Get(ctx, FilesCollection, documentID(file.RelativePath))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("failed to get file metadata", "path", file.RelativePath, "err", err.Error())
		}
		return true
	}

	raw, _ := document.Data[fieldLastIndexed].(string)
	lastIndexed, err := time.Parse(store.TimeLayout, raw)
	if err != nil {
		return true
	}

	return file.ModTime.After(lastIndexed)
}

func (s *Service) setLastIndexed(ctx context.Context, file FileInfo, indexTime time.Time) {
	fields := map[string]any{
		fieldPath:        file.RelativePath,
		fieldLastIndexed: store.Timestamp(indexTime),
	}
	if _, err := s.store.Write(ctx, FilesCollection, fields, documentID(file.RelativePath)); err != nil {
		s.logger.Error("failed to set file metadata", "path", file.RelativePath, "err", err.Error())
	}
}
