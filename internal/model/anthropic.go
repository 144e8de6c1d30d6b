// File: internal/model/anthropic.go
package model

import (
	"context"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// AnthropicClient speaks the Messages API.
type AnthropicClient struct {
	client          anthropic.Client
	model           string
	temperature     float64
	maxOutputTokens int
	logger          *zap.Logger
}

// NewAnthropicClient reads ANTHROPIC_API_KEY from the environment.
func NewAnthropicClient(model string, temperature float64, maxOutputTokens int, logger *zap.Logger) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(
			aoption.WithAPIKey(apiKey),
			aoption.WithHTTPClient(providerHTTPClient()),
		),
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		logger:          logger.Named("model.anthropic"),
	}, nil
}

func (c *AnthropicClient) Step(ctx context.Context, q Query) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock("Return ONLY JSON with keys: plan,say,next_action,args,done."),
	}
	if payload, ok := imagePayload(q.ImageB64); ok {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/jpeg", payload))
	}
	blocks = append(blocks, anthropic.NewTextBlock(userText(q)))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxOutputTokens),
		Temperature: anthropic.Float(c.temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}

	c.logger.Debug("Model responded.",
		zap.String("model", c.model),
		zap.Int("response_len", sb.Len()))
	return sb.String(), nil
}
