// File: internal/model/factory.go
package model

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskops/internal/config"
)

// New builds the configured provider client wrapped in the retry layer.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Client, error) {
	var (
		inner Client
		err   error
	)
	switch cfg.Provider {
	case "openai":
		inner, err = NewOpenAIClient(cfg.Model, cfg.Temperature, cfg.MaxOutputTokens, logger)
	case "anthropic":
		inner, err = NewAnthropicClient(cfg.Model, cfg.Temperature, cfg.MaxOutputTokens, logger)
	case "gemini":
		inner, err = NewGeminiClient(ctx, cfg.Model, cfg.Temperature, cfg.MaxOutputTokens, logger)
	case "zhipu":
		inner, err = NewZhipuClient(cfg.Model, cfg.Temperature, cfg.MaxOutputTokens, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}
	return NewResilient(inner, logger), nil
}
