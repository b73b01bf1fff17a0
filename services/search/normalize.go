package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxContentSnippetLength = 420

// Block-level elements get a trailing space so that adjacent blocks do not run together.
const blockElements = "br,p,div,li,tr,td,th,h1,h2,h3,h4,h5,h6,blockquote,section,article"

// Normalize maps a flat result or a Discovery Engine result onto a Document.
// Snippet precedence: explicit snippet, then extractive segment, then content cut to
// 420 characters. It reports false when none of them has readable text.
func Normalize(raw RawResult) (Document, bool) {
	document := mapValue(raw, "document")
	derived := mapValue(document, "derivedStructData")
	structData := mapValue(document, "structData")

	snippet := firstNonEmpty(
		cleanText(stringValue(raw, "snippet")),
		snippetFromList(derived["snippets"]),
	)
	if snippet == "" {
		snippet = firstNonEmpty(
			cleanText(stringValue(raw, "extractiveSegment")),
			segmentFromList(raw["extractiveSegments"]),
			segmentFromList(derived["extractive_segments"]),
			segmentFromList(derived["extractive_answers"]),
		)
	}
	if snippet == "" {
		content := firstNonEmpty(
			cleanText(stringValue(raw, "content")),
			cleanText(stringValue(structData, "content")),
			cleanText(stringValue(derived, "content")),
		)
		snippet = truncate(content, maxContentSnippetLength)
	}
	if snippet == "" {
		return Document{}, false
	}

	id := firstNonEmpty(stringValue(raw, "id"), stringValue(document, "id"), lastPathSegment(stringValue(document, "name")))

	result := Document{
		ID:      id,
		Title:   firstNonEmpty(cleanText(stringValue(raw, "title")), cleanText(stringValue(derived, "title")), cleanText(stringValue(structData, "title")), id),
		Snippet: snippet,
		URI: firstNonEmpty(
			stringValue(raw, "uri"), stringValue(raw, "link"), stringValue(raw, "url"),
			stringValue(derived, "link"), stringValue(structData, "uri"), stringValue(structData, "url"),
		),
		Score:    score(raw),
		Metadata: metadata(raw, structData),
	}

	return result, true
}

// cleanText strips HTML tags, decodes entities and collapses whitespace.
func cleanText(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	if !strings.ContainsAny(value, "<&") {
		return collapseWhitespace(value)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return collapseWhitespace(value)
	}
	doc.Find("script,style,noscript").Remove()
	doc.Find(blockElements).AfterHtml(" ")

	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit]))
}

// snippetFromList reads Discovery Engine snippets, skipping entries whose status
// says no snippet was available.
func snippetFromList(value any) string {
	items, _ := value.([]any)
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if status := stringValue(entry, "snippet_status"); status != "" && status != "SUCCESS" {
			continue
		}
		if snippet := cleanText(stringValue(entry, "snippet")); snippet != "" {
			return snippet
		}
	}
	return ""
}

func segmentFromList(value any) string {
	items, _ := value.([]any)
	for _, item := range items {
		switch entry := item.(type) {
		case string:
			if segment := cleanText(entry); segment != "" {
				return segment
			}
		case map[string]any:
			if segment := cleanText(stringValue(entry, "content")); segment != "" {
				return segment
			}
		}
	}
	return ""
}

func score(raw RawResult) *float64 {
	for _, key := range []string{"score", "relevanceScore"} {
		if value, ok := raw[key].(float64); ok {
			return &value
		}
	}

	relevance := mapValue(mapValue(raw, "modelScores"), "relevance_score")
	if values, ok := relevance["values"].([]any); ok && len(values) > 0 {
		if value, ok := values[0].(float64); ok {
			return &value
		}
	}

	return nil
}

func metadata(raw RawResult, structData map[string]any) map[string]any {
	source := mapValue(raw, "metadata")
	if len(source) == 0 {
		source = structData
	}

	result := map[string]any{}
	for key, value := range source {
		if key == "content" || key == "title" {
			continue
		}
		result[key] = value
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func mapValue(source map[string]any, key string) map[string]any {
	if source == nil {
		return nil
	}
	value, _ := source[key].(map[string]any)
	return value
}

func stringValue(source map[string]any, key string) string {
	if source == nil {
		return ""
	}
	value, _ := source[key].(string)
	return strings.TrimSpace(value)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func lastPathSegment(name string) string {
	if index := strings.LastIndex(name, "/"); index >= 0 {
		return name[index+1:]
	}
	return name
}
