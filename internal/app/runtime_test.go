package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agrisense/farm-advisor/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Environment:          "test",
		HTTPAddr:             "127.0.0.1:0",
		DataDir:              dir,
		DBPath:               filepath.Join(dir, "db", "farm.sqlite"),
		LLMProvider:          "none",
		LLMTimeoutSec:        5,
		HistoryCacheSize:     16,
		HistoryCacheTTLSec:   60,
		HistoryExchanges:     5,
		AlertSweepEnabled:    true,
		AlertSweepCron:       "*/15 * * * *",
		MCPEnabled:           true,
		HeartbeatIntervalSec: 30,
		HeartbeatStaleSec:    1800,
	}
}

func TestNewGeneratorSelection(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t)

	generator, err := newGenerator(context.Background(), cfg, logger)
	if err != nil || generator != nil {
		t.Fatalf("expected no generator for provider none, got %v, %v", generator, err)
	}

	cfg.LLMProvider = "openai"
	cfg.LLMBaseURL = "http://localhost:11434/v1"
	cfg.LLMModel = "llama3.1"
	generator, err = newGenerator(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("openai generator: %v", err)
	}
	if generator == nil || generator.Model() != "llama3.1" {
		t.Fatalf("unexpected openai generator: %v", generator)
	}
}

func TestNewRejectsBadSweepSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.AlertSweepCron = "whenever"
	if _, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestRuntimeServesAPIAndMetrics(t *testing.T) {
	rt, err := New(context.Background(), testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer rt.Close()

	res := httptest.NewRecorder()
	rt.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", res.Code)
	}

	chat := httptest.NewRecorder()
	rt.Handler().ServeHTTP(chat, httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"farm_id":"farm_1","message":"How is my crop?"}`)))
	if chat.Code != http.StatusOK {
		t.Fatalf("expected chat 200, got %d, body=%s", chat.Code, chat.Body.String())
	}

	metrics := httptest.NewRecorder()
	rt.Handler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := metrics.Body.String()
	for _, want := range []string{
		`farm_advisor_chat_answers_total{source="fallback"} 1`,
		`farm_advisor_component_state{component="llm",state="disabled"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}
