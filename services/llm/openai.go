package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/metrics"
	"github.com/meghashyamc/bioagents/services/errs"
	openai "github.com/sashabaranov/go-openai"
)

const ProviderOpenAI = "openai"

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAI talks to any OpenAI-compatible chat completion endpoint. Only image
// attachments are supported.
type OpenAI struct {
	logger logger.Logger
	client *openai.Client
	model  string
}

var _ Generator = (*OpenAI)(nil)

func NewOpenAI(logger logger.Logger, cfg OpenAIConfig) *OpenAI {
	o := &OpenAI{logger: logger, model: cfg.Model}
	if cfg.APIKey == "" {
		logger.Warn("openai api key not configured, model calls will fail")
		return o
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	o.client = openai.NewClientWithConfig(clientCfg)

	return o
}

func (o *OpenAI) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAI) Generate(ctx context.Context, request Request) (string, error) {
	if o.client == nil {
		return "", errs.Configuration("openai api key not configured")
	}

	model := request.Model
	if model == "" {
		model = o.model
	}

	userMessage, err := buildUserMessage(request)
	if err != nil {
		return "", err
	}

	messages := []openai.ChatCompletionMessage{}
	if request.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: request.System})
	}
	messages = append(messages, userMessage)

	chatRequest := openai.ChatCompletionRequest{Model: model, Messages: messages}
	if request.Temperature != nil {
		chatRequest.Temperature = *request.Temperature
	}
	if request.JSON {
		chatRequest.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	response, err := o.client.CreateChatCompletion(ctx, chatRequest)
	metrics.ObserveModelCall(ProviderOpenAI, model, err, time.Since(start))
	if err != nil {
		o.logger.Error("openai chat completion failed", "model", model, "err", err.Error())
		return "", errs.Transport("chat completion", describeAPIError(err))
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", errs.UpstreamFormat("model returned no text", nil)
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func buildUserMessage(request Request) (openai.ChatCompletionMessage, error) {
	if len(request.Parts) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: request.Prompt}, nil
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: request.Prompt}}
	for _, part := range request.Parts {
		if !strings.HasPrefix(part.MIMEType, "image/") {
			return openai.ChatCompletionMessage{}, errs.Validation(fmt.Sprintf("attachment type %s is not supported by the openai provider", part.MIMEType))
		}
		dataURL := "data:" + part.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(part.Data)
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
		})
	}

	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}, nil
}

func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai api error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) {
		return fmt.Errorf("openai request error %d: %w", requestErr.HTTPStatusCode, requestErr.Err)
	}

	return err
}
