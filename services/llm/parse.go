package llm

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/meghashyamc/bioagents/services/errs"
)

const fence = "```"

// StripFences removes a surrounding triple-backtick fence, with or without a language
// tag, together with the surrounding whitespace.
func StripFences(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, fence) {
		text = strings.TrimPrefix(text, fence)
		if newline := strings.IndexByte(text, '\n'); newline >= 0 && isFenceTag(text[:newline]) {
			text = text[newline+1:]
		} else if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
			text = text[4:]
		}
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, fence)

	return strings.TrimSpace(text)
}

func isFenceTag(line string) bool {
	for _, r := range strings.TrimSpace(line) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// DecodeArray reads a JSON array of objects. An object holding exactly one array is
// unwrapped, its scalar keys ignored; an object holding no array becomes a one element
// array.
func DecodeArray(text string) ([]map[string]any, error) {
	var value any
	if err := json.Unmarshal([]byte(StripFences(text)), &value); err != nil {
		return nil, errs.UpstreamFormat("model output is not valid json", err)
	}

	switch v := value.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		var arrays [][]any
		for _, inner := range v {
			if items, ok := inner.([]any); ok {
				arrays = append(arrays, items)
			}
		}
		switch len(arrays) {
		case 0:
			return []map[string]any{v}, nil
		case 1:
			return objectsOf(arrays[0])
		default:
			return nil, errs.UpstreamFormat("model output wraps more than one array", nil)
		}
	default:
		return nil, errs.UpstreamFormat("model output is neither an array nor an object", nil)
	}
}

// DecodeObject reads a JSON object into target.
func DecodeObject(text string, target any) error {
	cleaned := StripFences(text)
	if !strings.HasPrefix(cleaned, "{") {
		return errs.UpstreamFormat("model output is not a json object", nil)
	}
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return errs.UpstreamFormat("model output is not valid json", err)
	}
	return nil
}

func objectsOf(items []any) ([]map[string]any, error) {
	objects := make([]map[string]any, 0, len(items))
	for _, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			return nil, errs.UpstreamFormat("model output array holds non-object values", nil)
		}
		objects = append(objects, object)
	}
	return objects, nil
}
