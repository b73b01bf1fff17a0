// Package labels reads the printed fields of a product or sample label from an image.
package labels

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/errs"
	"github.com/meghashyamc/bioagents/services/llm"
	"github.com/meghashyamc/bioagents/services/payload"
)

var ImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/heic", "image/heif", "image/gif"}

const systemPrompt = `You read labels of laboratory samples, reagents and pharmaceutical products.
Return every field printed on the label as a JSON array of objects with the keys
"label" (the field name), "value" (the text exactly as printed) and "confidence"
(a number between 0 and 1). Do not translate values. Return only JSON.`

const userPrompt = "Extract all fields from this label image."

var (
	labelKeys = []string{"label", "campo", "name", "key", "field"}
	valueKeys = []string{"value", "valor", "text", "texto"}
)

type Field struct {
	Label      string   `json:"label"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type Extractor struct {
	logger    logger.Logger
	generator llm.Generator
}

func New(logger logger.Logger, generator llm.Generator) *Extractor {
	return &Extractor{logger: logger, generator: generator}
}

// Extract decodes the image, checks its type and asks the model for the label fields.
func (e *Extractor) Extract(ctx context.Context, image string, mimeType string) ([]Field, error) {
	data, declared, err := payload.Decode(image)
	if err != nil {
		return nil, err
	}
	if mimeType == "" {
		mimeType = declared
	}

	resolved, err := payload.ResolveMIME(data, mimeType, ImageTypes)
	if err != nil {
		return nil, err
	}

	text, err := e.generator.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      userPrompt,
		Parts:       []llm.Part{{MIMEType: resolved, Data: data}},
		JSON:        true,
		Temperature: llm.Temperature(0.1),
	})
	if err != nil {
		return nil, fmt.Errorf("could not extract label fields: %w", err)
	}

	items, err := llm.DecodeArray(text)
	if err != nil {
		e.logger.Warn("label model returned unreadable output", "err", err.Error())
		return nil, err
	}

	fields := toFields(items)
	if len(items) > 0 && len(fields) == 0 {
		e.logger.Warn("label model output had no label or value keys", "items", len(items))
		return nil, errs.UpstreamFormat("model output has no label fields", nil)
	}
	return fields, nil
}

func toFields(items []map[string]any) []Field {
	fields := make([]Field, 0, len(items))
	for _, item := range items {
		label := firstString(item, labelKeys)
		value := firstString(item, valueKeys)
		if label == "" && value == "" {
			continue
		}

		field := Field{Label: label, Value: value}
		if confidence, ok := toFloat(item["confidence"]); ok {
			confidence = min(max(confidence, 0), 1)
			field.Confidence = &confidence
		}
		fields = append(fields, field)
	}
	return fields
}

func firstString(item map[string]any, keys []string) string {
	for _, key := range keys {
		raw, ok := item[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
