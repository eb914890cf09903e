package llm

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("llm unavailable")

// GenerationConfig carries the sampling parameters sent with every prompt.
type GenerationConfig struct {
	Temperature     float32
	TopK            int
	TopP            float32
	MaxOutputTokens int
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

// Generator turns one fully rendered prompt into reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}
