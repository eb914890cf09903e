package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrisense/farm-advisor/internal/llm"
)

func TestGenerateSuccess(t *testing.T) {
	var receivedAuth string
	var receivedModel string
	var receivedPrompt string
	var receivedMaxTokens int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		receivedAuth = req.Header.Get("Authorization")
		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		receivedModel = body.Model
		receivedMaxTokens = body.MaxTokens
		if len(body.Messages) > 1 {
			receivedPrompt = body.Messages[1].Content
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "<think>moisture is low</think>Water the rice today."}},
			},
		})
	}))
	defer server.Close()

	client := New(Config{
		APIKey:  "secret",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	reply, err := client.Generate(context.Background(), "Should I irrigate my rice?")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if reply != "Water the rice today." {
		t.Fatalf("unexpected reply: %s", reply)
	}
	if receivedAuth != "Bearer secret" {
		t.Fatalf("expected auth bearer, got %s", receivedAuth)
	}
	if receivedModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %s", receivedModel)
	}
	if receivedPrompt != "Should I irrigate my rice?" {
		t.Fatalf("unexpected prompt: %q", receivedPrompt)
	}
	if receivedMaxTokens != 1024 {
		t.Fatalf("expected default max tokens, got %d", receivedMaxTokens)
	}
}

func TestGenerateRequiresKeyForHostedEndpoint(t *testing.T) {
	client := New(Config{BaseURL: "https://api.openai.com/v1"}, nil)
	_, err := client.Generate(context.Background(), "hello")
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGenerateNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL + "/ollama"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := client.Generate(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestRequiresAPIKey(t *testing.T) {
	cases := map[string]bool{
		"https://api.openai.com/v1": true,
		"http://localhost:11434/v1": false,
		"http://127.0.0.1:8080":     false,
		"http://ollama.internal/v1": false,
	}
	for url, want := range cases {
		if got := RequiresAPIKey(url); got != want {
			t.Fatalf("RequiresAPIKey(%q) = %v, want %v", url, got, want)
		}
	}
}
