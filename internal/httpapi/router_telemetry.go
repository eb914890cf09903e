package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agrisense/farm-advisor/internal/store"
	"github.com/agrisense/farm-advisor/internal/telemetry"
)

const (
	defaultInsightLimit    = 100
	defaultSensorLimit     = 50
	defaultIrrigationLimit = 50
	defaultStatsDays       = 7
)

func (r *router) handleInsights(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleInsightsList(w, req)
	case http.MethodPost:
		r.handleInsightsCreate(w, req)
	default:
		methodNotAllowed(w)
	}
}

func (r *router) handleInsightsCreate(w http.ResponseWriter, req *http.Request) {
	var payload telemetry.InsightPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	insight, raised, err := r.deps.Recorder.RecordInsight(req.Context(), payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "Insight stored",
		"insight": insight,
		"alerts":  raised,
	})
}

func (r *router) handleInsightsList(w http.ResponseWriter, req *http.Request) {
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	insights, err := r.deps.Store.ListInsights(req.Context(), farmID, intParam(req, "limit", defaultInsightLimit))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"farm_id": farmID,
		"count":   len(insights),
		"data":    insights,
	})
}

func (r *router) handleInsightStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	stats, err := r.deps.Store.InsightStats(req.Context(), farmID, intParam(req, "days", defaultStatsDays))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"farm_id": farmID,
		"days":    stats.Days,
		"stats":   stats,
	})
}

func (r *router) handleSensors(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleSensorsList(w, req)
	case http.MethodPost:
		r.handleSensorsCreate(w, req)
	default:
		methodNotAllowed(w)
	}
}

func (r *router) handleSensorsCreate(w http.ResponseWriter, req *http.Request) {
	var payload telemetry.SensorPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	reading, err := r.deps.Recorder.RecordSensor(req.Context(), payload)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrInvalidReading) || payload.FarmID == "" {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "reading": reading})
}

func (r *router) handleSensorsList(w http.ResponseWriter, req *http.Request) {
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	readings, err := r.deps.Store.ListSensorReadings(req.Context(), farmID, intParam(req, "limit", defaultSensorLimit))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"farm_id":  farmID,
		"count":    len(readings),
		"readings": readings,
	})
}

func (r *router) handleIrrigation(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleIrrigationList(w, req)
	case http.MethodPost:
		r.handleIrrigationCreate(w, req)
	default:
		methodNotAllowed(w)
	}
}

func (r *router) handleIrrigationCreate(w http.ResponseWriter, req *http.Request) {
	var payload telemetry.IrrigationPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	entry, err := r.deps.Recorder.RecordIrrigation(req.Context(), payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "log": entry})
}

func (r *router) handleIrrigationList(w http.ResponseWriter, req *http.Request) {
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	logs, err := r.deps.Store.ListIrrigationLogs(req.Context(), farmID, intParam(req, "limit", defaultIrrigationLimit))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"farm_id": farmID,
		"count":   len(logs),
		"logs":    logs,
	})
}

func (r *router) handleAnalysis(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"farm_id":  farmID,
		"analysis": r.deps.Contexts.Build(req.Context(), farmID),
	})
}
