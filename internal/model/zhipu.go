// File: internal/model/zhipu.go
package model

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// The /coding/ path segment is required by the Z.ai gateway; the shorter
// /api/paas/v4 endpoint rejects these models.
const zhipuDefaultBaseURL = "https://api.z.ai/api/coding/paas/v4"

// zhipuTokenTTL bounds the signed token lifetime.
const zhipuTokenTTL = 30 * time.Minute

// ZhipuClient speaks the Z.ai OpenAI-compatible wire. Keys in the native
// "id.secret" form are exchanged for a signed JWT per request; plain keys are
// passed through as-is.
type ZhipuClient struct {
	apiKey          string
	baseURL         string
	model           string
	temperature     float64
	maxOutputTokens int
	logger          *zap.Logger
	now             func() time.Time
}

// NewZhipuClient reads ZHIPU_API_KEY and the optional ZHIPU_BASE_URL override
// from the environment.
func NewZhipuClient(model string, temperature float64, maxOutputTokens int, logger *zap.Logger) (*ZhipuClient, error) {
	apiKey := os.Getenv("ZHIPU_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ZHIPU_API_KEY is not set")
	}
	baseURL := os.Getenv("ZHIPU_BASE_URL")
	if baseURL == "" {
		baseURL = zhipuDefaultBaseURL
	}

	return &ZhipuClient{
		apiKey:          apiKey,
		baseURL:         baseURL,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		logger:          logger.Named("model.zhipu"),
		now:             time.Now,
	}, nil
}

// bearerToken returns the Authorization credential for one request.
func (c *ZhipuClient) bearerToken() (string, error) {
	id, secret, found := strings.Cut(c.apiKey, ".")
	if !found {
		return c.apiKey, nil
	}
	return signZhipuToken(id, secret, c.now(), zhipuTokenTTL)
}

// signZhipuToken builds the HS256 token the Zhipu gateway expects: claims
// api_key/exp/timestamp with millisecond epochs, header sign_type=SIGN.
func signZhipuToken(id, secret string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"api_key":   id,
		"exp":       now.Add(ttl).UnixMilli(),
		"timestamp": now.UnixMilli(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["sign_type"] = "SIGN"

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing zhipu token: %w", err)
	}
	return signed, nil
}

func (c *ZhipuClient) Step(ctx context.Context, q Query) (string, error) {
	credential, err := c.bearerToken()
	if err != nil {
		return "", err
	}
	client := openai.NewClient(
		option.WithAPIKey(credential),
		option.WithBaseURL(c.baseURL),
		option.WithHTTPClient(providerHTTPClient()),
	)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(userText(q)),
	}
	if q.ImageB64 != "" {
		parts = append(parts, openai.ImageContentPart(
			openai.ChatCompletionContentPartImageImageURLParam{URL: q.ImageB64}))
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(parts),
		},
		Temperature: openai.Opt(c.temperature),
		MaxTokens:   openai.Opt(int64(c.maxOutputTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("zhipu chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("zhipu returned no choices")
	}

	c.logger.Debug("Model responded.",
		zap.String("model", c.model),
		zap.Int("response_len", len(resp.Choices[0].Message.Content)))
	return resp.Choices[0].Message.Content, nil
}
