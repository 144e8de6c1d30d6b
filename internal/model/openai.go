// File: internal/model/openai.go
package model

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

// OpenAIClient speaks the chat-completions wire. It also serves any
// OpenAI-compatible gateway through a custom base URL.
type OpenAIClient struct {
	client          openai.Client
	model           string
	temperature     float64
	maxOutputTokens int
	logger          *zap.Logger
}

// NewOpenAIClient reads OPENAI_API_KEY and the optional OPENAI_BASE_URL
// override from the environment.
func NewOpenAIClient(model string, temperature float64, maxOutputTokens int, logger *zap.Logger) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(providerHTTPClient()),
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client:          openai.NewClient(opts...),
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		logger:          logger.Named("model.openai"),
	}, nil
}

func (c *OpenAIClient) Step(ctx context.Context, q Query) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(userText(q)),
	}
	if q.ImageB64 != "" {
		parts = append(parts, openai.ImageContentPart(
			openai.ChatCompletionContentPartImageImageURLParam{URL: q.ImageB64}))
	}

	jsonMode := shared.NewResponseFormatJSONObjectParam()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(parts),
		},
		Temperature:    openai.Opt(c.temperature),
		MaxTokens:      openai.Opt(int64(c.maxOutputTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &jsonMode},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	c.logger.Debug("Model responded.",
		zap.String("model", c.model),
		zap.Int("response_len", len(resp.Choices[0].Message.Content)))
	return resp.Choices[0].Message.Content, nil
}
