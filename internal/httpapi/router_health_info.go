package httpapi

import "net/http"

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *router) handleReady(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.Store.Ping(req.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (r *router) handleInfo(w http.ResponseWriter, req *http.Request) {
	modelConfigured := false
	if r.deps.Advisor != nil {
		modelConfigured = r.deps.Advisor.ModelConfigured()
	}
	subscribers := 0
	if r.deps.Alerts != nil {
		subscribers = r.deps.Alerts.Subscribers()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":              "farm-advisor",
		"environment":       r.deps.Config.Environment,
		"llm_provider":      r.deps.Config.LLMProvider,
		"llm_model":         r.deps.Config.LLMModel,
		"model_configured":  modelConfigured,
		"mcp_enabled":       r.deps.MCP != nil,
		"alert_subscribers": subscribers,
	})
}
