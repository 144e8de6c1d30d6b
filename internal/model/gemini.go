// File: internal/model/gemini.go
package model

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient speaks the Gemini generateContent API.
type GeminiClient struct {
	client          *genai.Client
	model           string
	temperature     float64
	maxOutputTokens int
	logger          *zap.Logger
}

// NewGeminiClient reads GOOGLE_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, model string, temperature float64, maxOutputTokens int, logger *zap.Logger) (*GeminiClient, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:          client,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		logger:          logger.Named("model.gemini"),
	}, nil
}

func (c *GeminiClient) Step(ctx context.Context, q Query) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(userText(q))}
	if payload, ok := imagePayload(q.ImageB64); ok {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", fmt.Errorf("decoding frame payload: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(raw, "image/jpeg"))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:       genai.Ptr(float32(c.temperature)),
			MaxOutputTokens:   int32(c.maxOutputTokens),
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text content")
	}

	c.logger.Debug("Model responded.",
		zap.String("model", c.model),
		zap.Int("response_len", len(text)))
	return text, nil
}
