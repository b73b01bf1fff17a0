package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type FileInfo struct {
	Path         string
	RelativePath string
	Name         string
	Size         int64
	ModTime      time.Time
}

var contentExtensions = map[string]bool{
	".md": true, ".markdown": true, ".txt": true, ".html": true, ".htm": true,
}

func (s *Service) discoverModifiedFiles(ctx context.Context, rootPath string) ([]FileInfo, error) {
	var modifiedFiles []FileInfo
	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Error("could not walk through file or directory", "err", err.Error())
			if errors.Is(err, os.ErrPermission) {
				return nil
			}
			return err
		}

		// Skip directories that start with '.' but not the root directory
		if info.IsDir() && strings.HasPrefix(info.Name(), ".") && path != rootPath {
			return filepath.SkipDir
		}

		if info.IsDir() || strings.HasPrefix(info.Name(), ".") || !isContentFile(path) {
			return nil
		}

		relativePath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}

		file := FileInfo{
			Path:         path,
			RelativePath: filepath.ToSlash(relativePath),
			Name:         info.Name(),
			Size:         info.Size(),
			ModTime:      info.ModTime(),
		}
		if s.shouldFileBeIndexed(ctx, file) {
			modifiedFiles = append(modifiedFiles, file)
		}

		return nil
	})

	return modifiedFiles, err
}

func isContentFile(path string) bool {
	return contentExtensions[strings.ToLower(filepath.Ext(path))]
}
