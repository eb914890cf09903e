package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agrisense/farm-advisor/internal/store"
)

type cropRequest struct {
	Name         string `json:"name"`
	Variety      string `json:"variety"`
	CurrentStage string `json:"current_stage"`
	PlantingDate string `json:"planting_date"`
	HarvestDate  string `json:"harvest_date"`
}

type farmRequest struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Address        string        `json:"address"`
	AreaAcres      *float64      `json:"area_acres"`
	Latitude       *float64      `json:"latitude"`
	Longitude      *float64      `json:"longitude"`
	SoilType       string        `json:"soil_type"`
	IrrigationType string        `json:"irrigation_type"`
	Active         *bool         `json:"active"`
	Crops          []cropRequest `json:"crops"`
}

func (r *router) handleFarms(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleFarmGet(w, req)
	case http.MethodPut:
		r.handleFarmUpsert(w, req)
	default:
		methodNotAllowed(w)
	}
}

func (r *router) handleFarmGet(w http.ResponseWriter, req *http.Request) {
	farmID, ok := farmIDParam(w, req)
	if !ok {
		return
	}
	farm, err := r.deps.Store.GetFarm(req.Context(), farmID)
	if err != nil {
		if errors.Is(err, store.ErrFarmNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Farm not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, farm)
}

func (r *router) handleFarmUpsert(w http.ResponseWriter, req *http.Request) {
	var payload farmRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	farm, err := payload.farm()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	saved, err := r.deps.Store.UpsertFarm(req.Context(), farm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "farm": saved})
}

func (p farmRequest) farm() (store.Farm, error) {
	farm := store.Farm{
		ID:             p.ID,
		Name:           p.Name,
		Address:        strings.TrimSpace(p.Address),
		AreaAcres:      p.AreaAcres,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		SoilType:       strings.ToLower(strings.TrimSpace(p.SoilType)),
		IrrigationType: strings.TrimSpace(p.IrrigationType),
		Active:         p.Active == nil || *p.Active,
		Crops:          make([]store.Crop, 0, len(p.Crops)),
	}
	for _, crop := range p.Crops {
		planted, err := parseDate(crop.PlantingDate)
		if err != nil {
			return store.Farm{}, fmt.Errorf("crop %q planting_date: %w", crop.Name, err)
		}
		harvest, err := parseDate(crop.HarvestDate)
		if err != nil {
			return store.Farm{}, fmt.Errorf("crop %q harvest_date: %w", crop.Name, err)
		}
		farm.Crops = append(farm.Crops, store.Crop{
			Name:         strings.TrimSpace(crop.Name),
			Variety:      strings.TrimSpace(crop.Variety),
			CurrentStage: strings.ToLower(strings.TrimSpace(crop.CurrentStage)),
			PlantingDate: planted,
			HarvestDate:  harvest,
		})
	}
	return farm, nil
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", value)
	}
	return &parsed, nil
}
