package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DataDir     string
	DBPath      string

	LLMProvider        string // gemini | openai | none
	LLMBaseURL         string
	LLMAPIKey          string
	LLMModel           string
	LLMTimeoutSec      int
	LLMTemperature     float64
	LLMTopK            int
	LLMTopP            float64
	LLMMaxOutputTokens int

	HistoryCacheSize   int
	HistoryCacheTTLSec int
	HistoryExchanges   int

	TranscriptDir     string
	InboxDir          string
	AlertSweepEnabled bool
	AlertSweepCron    string
	CropKnowledgeFile string
	MCPEnabled        bool

	HeartbeatIntervalSec int
	HeartbeatStaleSec    int
}

func FromEnv() Config {
	dataDir := stringOrDefault("FARM_ADVISOR_DATA_DIR", "/data")
	dbPath := stringOrDefault("FARM_ADVISOR_DB_PATH", filepath.Join(dataDir, "farm-advisor", "farm.sqlite"))
	provider := providerOrDefault("FARM_ADVISOR_LLM_PROVIDER", "gemini")

	apiKey := strings.TrimSpace(os.Getenv("FARM_ADVISOR_LLM_API_KEY"))
	if apiKey == "" && provider == "gemini" {
		apiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}

	return Config{
		Environment: stringOrDefault("FARM_ADVISOR_ENV", "development"),
		HTTPAddr:    stringOrDefault("FARM_ADVISOR_HTTP_ADDR", ":8080"),
		DataDir:     dataDir,
		DBPath:      dbPath,

		LLMProvider:        provider,
		LLMBaseURL:         strings.TrimSpace(os.Getenv("FARM_ADVISOR_LLM_BASE_URL")),
		LLMAPIKey:          apiKey,
		LLMModel:           stringOrDefault("FARM_ADVISOR_LLM_MODEL", defaultModel(provider)),
		LLMTimeoutSec:      intOrDefault("FARM_ADVISOR_LLM_TIMEOUT_SECONDS", 30),
		LLMTemperature:     floatOrDefault("FARM_ADVISOR_LLM_TEMPERATURE", 0.7),
		LLMTopK:            intOrDefault("FARM_ADVISOR_LLM_TOP_K", 40),
		LLMTopP:            floatOrDefault("FARM_ADVISOR_LLM_TOP_P", 0.95),
		LLMMaxOutputTokens: intOrDefault("FARM_ADVISOR_LLM_MAX_OUTPUT_TOKENS", 1024),

		HistoryCacheSize:   intOrDefault("FARM_ADVISOR_HISTORY_CACHE_SIZE", 256),
		HistoryCacheTTLSec: intOrDefault("FARM_ADVISOR_HISTORY_CACHE_TTL_SECONDS", 1800),
		HistoryExchanges:   intOrDefault("FARM_ADVISOR_HISTORY_EXCHANGES", 5),

		TranscriptDir:     strings.TrimSpace(os.Getenv("FARM_ADVISOR_TRANSCRIPT_DIR")),
		InboxDir:          strings.TrimSpace(os.Getenv("FARM_ADVISOR_INBOX_DIR")),
		AlertSweepEnabled: boolOrDefault("FARM_ADVISOR_ALERT_SWEEP_ENABLED", true),
		AlertSweepCron:    stringOrDefault("FARM_ADVISOR_ALERT_SWEEP_CRON", "*/15 * * * *"),
		CropKnowledgeFile: strings.TrimSpace(os.Getenv("FARM_ADVISOR_CROP_KNOWLEDGE_FILE")),
		MCPEnabled:        boolOrDefault("FARM_ADVISOR_MCP_ENABLED", true),

		HeartbeatIntervalSec: intOrDefault("FARM_ADVISOR_HEARTBEAT_INTERVAL_SECONDS", 30),
		HeartbeatStaleSec:    intOrDefault("FARM_ADVISOR_HEARTBEAT_STALE_SECONDS", 1800),
	}
}

// LLMConfigured reports whether a model call should be attempted at all.
// Local OpenAI-compatible endpoints do not need a key.
func (c Config) LLMConfigured() bool {
	switch c.LLMProvider {
	case "gemini":
		return c.LLMAPIKey != ""
	case "openai":
		return c.LLMAPIKey != "" || isLocalEndpoint(c.LLMBaseURL)
	default:
		return false
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-2.0-flash"
	default:
		return ""
	}
}

func isLocalEndpoint(baseURL string) bool {
	lower := strings.ToLower(baseURL)
	return strings.Contains(lower, "localhost") || strings.Contains(lower, "127.0.0.1") || strings.Contains(lower, "ollama")
}

func providerOrDefault(name, fallback string) string {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch value {
	case "gemini", "openai", "none":
		return value
	default:
		return fallback
	}
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func floatOrDefault(name string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
