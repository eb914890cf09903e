package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/agrisense/farm-advisor/internal/advisor"
	"github.com/agrisense/farm-advisor/internal/alerts"
	"github.com/agrisense/farm-advisor/internal/config"
	"github.com/agrisense/farm-advisor/internal/store"
	"github.com/agrisense/farm-advisor/internal/telemetry"
)

type Advisor interface {
	Ask(ctx context.Context, q advisor.Question) (advisor.Answer, error)
	ModelConfigured() bool
	ForgetHistory(farmID string)
}

type Dependencies struct {
	Config   config.Config
	Store    *store.Store
	Advisor  Advisor
	Contexts advisor.ContextBuilder
	Recorder *telemetry.Recorder
	Alerts   *alerts.Hub
	Metrics  http.Handler
	MCP      http.Handler
	Logger   *slog.Logger
}

type router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/api/v1/info", rt.handleInfo)
	mux.HandleFunc("/api/v1/chat", rt.handleChat)
	mux.HandleFunc("/api/v1/chat/history", rt.handleChatHistory)
	mux.HandleFunc("/api/v1/chat/stats", rt.handleChatStats)
	mux.HandleFunc("/api/v1/farms", rt.handleFarms)
	mux.HandleFunc("/api/v1/insights", rt.handleInsights)
	mux.HandleFunc("/api/v1/insights/stats", rt.handleInsightStats)
	mux.HandleFunc("/api/v1/analysis", rt.handleAnalysis)
	mux.HandleFunc("/api/v1/sensors", rt.handleSensors)
	mux.HandleFunc("/api/v1/irrigation", rt.handleIrrigation)
	mux.HandleFunc("/api/v1/alerts", rt.handleAlerts)
	mux.HandleFunc("/api/v1/alerts/resolve", rt.handleAlertsResolve)
	mux.HandleFunc("/api/v1/alerts/stream", rt.handleAlertsStream)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
	if deps.MCP != nil {
		mux.Handle("/mcp", deps.MCP)
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

// farmIDParam reads farm_id and writes the 400 itself when it is missing.
func farmIDParam(w http.ResponseWriter, req *http.Request) (string, bool) {
	farmID := strings.TrimSpace(req.URL.Query().Get("farm_id"))
	if farmID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "farm_id is required"})
		return "", false
	}
	return farmID, true
}

func intParam(req *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(req.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
