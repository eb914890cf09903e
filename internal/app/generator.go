package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrisense/farm-advisor/internal/config"
	"github.com/agrisense/farm-advisor/internal/llm"
	"github.com/agrisense/farm-advisor/internal/llm/gemini"
	"github.com/agrisense/farm-advisor/internal/llm/openai"
)

// newGenerator returns nil when no model is configured; the advisor then
// answers from its rule-based fallback.
func newGenerator(ctx context.Context, cfg config.Config, logger *slog.Logger) (llm.Generator, error) {
	if !cfg.LLMConfigured() {
		logger.Info("language model not configured, answers use the rule-based fallback", "provider", cfg.LLMProvider)
		return nil, nil
	}
	generation := llm.GenerationConfig{
		Temperature:     float32(cfg.LLMTemperature),
		TopK:            cfg.LLMTopK,
		TopP:            float32(cfg.LLMTopP),
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
	}
	timeout := time.Duration(cfg.LLMTimeoutSec) * time.Second

	switch cfg.LLMProvider {
	case "gemini":
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:     cfg.LLMAPIKey,
			BaseURL:    cfg.LLMBaseURL,
			Model:      cfg.LLMModel,
			Timeout:    timeout,
			Generation: generation,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		logger.Info("language model configured", "provider", "gemini", "model", client.Model())
		return client, nil
	case "openai":
		client := openai.New(openai.Config{
			APIKey:     cfg.LLMAPIKey,
			BaseURL:    cfg.LLMBaseURL,
			Model:      cfg.LLMModel,
			Timeout:    timeout,
			Generation: generation,
		}, logger)
		logger.Info("language model configured", "provider", "openai", "model", client.Model())
		return client, nil
	default:
		return nil, nil
	}
}
