package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/agrisense/farm-advisor/internal/llm"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Generation llm.GenerationConfig
}

type Client struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Generation == (llm.GenerationConfig{}) {
		cfg.Generation = llm.DefaultGenerationConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{cfg: cfg, logger: logger}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return c, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.client = client
	return c, nil
}

func (c *Client) Model() string {
	return c.cfg.Model
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("%w: missing gemini API key", llm.ErrUnavailable)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", nil
	}

	gen := c.cfg.Generation
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(gen.Temperature),
		TopK:            genai.Ptr(float32(gen.TopK)),
		TopP:            genai.Ptr(gen.TopP),
		MaxOutputTokens: int32(gen.MaxOutputTokens),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), config)
	if err != nil {
		c.logger.Error("gemini generate content failed", "model", c.cfg.Model, "error", err)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini response returned no text")
	}
	return text, nil
}
