package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/metrics"
	"github.com/meghashyamc/bioagents/services/errs"
	"google.golang.org/genai"
)

const ProviderGemini = "gemini"

type GeminiConfig struct {
	APIKey      string
	Model       string
	VisionModel string
}

type Gemini struct {
	logger      logger.Logger
	client      *genai.Client
	model       string
	visionModel string
}

var _ Generator = (*Gemini)(nil)

// NewGemini builds the client eagerly when a key is present. Without a key every
// call fails with a configuration error instead of failing startup.
func NewGemini(ctx context.Context, logger logger.Logger, cfg GeminiConfig) (*Gemini, error) {
	g := &Gemini{logger: logger, model: cfg.Model, visionModel: cfg.VisionModel}
	if g.visionModel == "" {
		g.visionModel = g.model
	}

	if cfg.APIKey == "" {
		logger.Warn("gemini api key not configured, model calls will fail")
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.Error("could not create gemini client", "err", err.Error())
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client = client

	return g, nil
}

func (g *Gemini) Provider() string {
	return ProviderGemini
}

func (g *Gemini) Generate(ctx context.Context, request Request) (string, error) {
	if g.client == nil {
		return "", errs.Configuration("gemini api key not configured")
	}

	model := request.Model
	if model == "" {
		model = g.model
		if len(request.Parts) > 0 {
			model = g.visionModel
		}
	}

	parts := make([]*genai.Part, 0, len(request.Parts)+1)
	for _, part := range request.Parts {
		parts = append(parts, genai.NewPartFromBytes(part.Data, part.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(request.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{Temperature: request.Temperature}
	if request.System != "" {
		config.SystemInstruction = genai.NewContentFromText(request.System, genai.RoleUser)
	}
	if request.JSON {
		config.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	response, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	metrics.ObserveModelCall(ProviderGemini, model, err, time.Since(start))
	if err != nil {
		g.logger.Error("gemini generate content failed", "model", model, "err", err.Error())
		return "", errs.Transport("generate content", err)
	}

	text := responseText(response)
	if text == "" {
		g.logger.Warn("gemini returned no text", "model", model)
		return "", errs.UpstreamFormat("model returned no text", nil)
	}

	return text, nil
}

func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}

	candidate := response.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}

	return strings.TrimSpace(builder.String())
}
