package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/agrisense/farm-advisor/internal/advisor"
	"github.com/agrisense/farm-advisor/internal/farmerr"
)

const defaultHistoryLimit = 50

type chatRequest struct {
	FarmID   string `json:"farm_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
}

func (r *router) handleChat(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if r.deps.Advisor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "advisor is unavailable"})
		return
	}

	var payload chatRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	answer, err := r.deps.Advisor.Ask(req.Context(), advisor.Question{
		FarmID:   payload.FarmID,
		Text:     payload.Message,
		Language: payload.Language,
	})
	if err != nil {
		switch {
		case errors.Is(err, farmerr.ErrFarmRequired):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "farm_id is required"})
		case errors.Is(err, farmerr.ErrInvalidQuestion):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required and cannot be empty"})
		default:
			r.deps.Logger.Error("chat request failed", "farm_id", payload.FarmID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process chat message"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"farm_id":   payload.FarmID,
		"message":   payload.Message,
		"response":  answer.Text,
		"language":  answer.Language,
		"source":    answer.Source,
		"timestamp": answer.Timestamp,
	})
}

func (r *router) handleChatHistory(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleChatHistoryList(w, req)
	case http.MethodDelete:
		r.handleChatHistoryClear(w, req)
	default:
		methodNotAllowed(w)
	}
}

func (r *router) handleChatHistoryList(w http.ResponseWriter, req *http.Request) {
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	page, err := r.deps.Store.ListConversation(
		req.Context(),
		farmID,
		intParam(req, "limit", defaultHistoryLimit),
		intParam(req, "skip", 0),
	)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"farm_id":    farmID,
		"count":      page.Count,
		"totalCount": page.Total,
		"hasMore":    page.HasMore,
		"history":    page.Entries,
	})
}

func (r *router) handleChatHistoryClear(w http.ResponseWriter, req *http.Request) {
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	deleted, err := r.deps.Store.ClearConversation(req.Context(), farmID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	r.deps.Advisor.ForgetHistory(farmID)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"message":      fmt.Sprintf("Cleared %d chat messages", deleted),
		"farm_id":      farmID,
		"deletedCount": deleted,
	})
}

func (r *router) handleChatStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	stats, err := r.deps.Store.ConversationStats(req.Context(), farmID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"farm_id": farmID,
		"stats":   stats,
	})
}
