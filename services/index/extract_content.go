package index

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/meghashyamc/bioagents/db/searchdb"
)

// Read file with size limit to prevent memory issues
const maxFileSize = 10 * 1024 * 1024

func extractContent(file FileInfo) (searchdb.Document, error) {
	content, err := readTextFile(file.Path)
	if err != nil {
		return searchdb.Document{}, err
	}

	document := searchdb.Document{
		ID:  documentID(file.RelativePath),
		URI: "/" + strings.TrimSuffix(file.RelativePath, filepath.Ext(file.RelativePath)),
	}

	switch strings.ToLower(filepath.Ext(file.Path)) {
	case ".html", ".htm":
		page, err := goquery.NewDocumentFromReader(strings.NewReader(content))
		if err != nil {
			return searchdb.Document{}, err
		}
		page.Find("script, style, noscript").Remove()
		document.Title = strings.TrimSpace(page.Find("title").First().Text())
		document.Content = strings.Join(strings.Fields(page.Find("body").Text()), " ")
	case ".md", ".markdown":
		document.Title = markdownTitle(content)
		document.Content = content
	default:
		document.Content = content
	}

	if document.Title == "" {
		document.Title = strings.TrimSuffix(file.Name, filepath.Ext(file.Name))
	}

	return document, nil
}

// markdownTitle returns the first level-one heading.
func markdownTitle(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

func readTextFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxFileSize))
	if err != nil {
		return "", err
	}

	return string(content), nil
}
