package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agrisense/farm-advisor/internal/store"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 45 * time.Second
)

var alertUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type resolveRequest struct {
	AlertID string `json:"alert_id"`
}

func (r *router) handleAlerts(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	// Open alerts unless resolved=true is asked for.
	resolved := false
	if raw := strings.TrimSpace(req.URL.Query().Get("resolved")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "resolved must be true or false"})
			return
		}
		resolved = parsed
	}
	items, err := r.deps.Store.ListAlerts(req.Context(), store.AlertFilter{
		FarmID:   farmID,
		Resolved: &resolved,
		Limit:    intParam(req, "limit", 50),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"farm_id": farmID,
		"count":   len(items),
		"alerts":  items,
	})
}

func (r *router) handleAlertsResolve(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var payload resolveRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(payload.AlertID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "alert_id is required"})
		return
	}
	alert, err := r.deps.Store.ResolveAlert(req.Context(), payload.AlertID)
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Alert not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "alert": alert})
}

// handleAlertsStream pushes newly raised alerts over a websocket. farm_id is
// optional; without it the client sees every farm.
func (r *router) handleAlertsStream(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if r.deps.Alerts == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "alert stream is unavailable"})
		return
	}
	farmID := strings.TrimSpace(req.URL.Query().Get("farm_id"))
	conn, err := alertUpgrader.Upgrade(w, req, nil)
	if err != nil {
		r.deps.Logger.Warn("alert stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := r.deps.Alerts.Subscribe(farmID)
	defer r.deps.Alerts.Unsubscribe(sub)
	logger := r.deps.Logger.With("farm_id", farmID)
	logger.Debug("alert stream connected")

	writeMu := &sync.Mutex{}
	write := func(messageType int, payload any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if messageType == websocket.PingMessage {
			return conn.WriteMessage(websocket.PingMessage, nil)
		}
		return conn.WriteJSON(payload)
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			logger.Debug("alert stream closed by client")
			return
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		case alert, ok := <-sub.C:
			if !ok {
				return
			}
			if err := write(websocket.TextMessage, map[string]any{"type": "alert", "alert": alert}); err != nil {
				logger.Debug("alert stream write failed", "error", err)
				return
			}
		}
	}
}
