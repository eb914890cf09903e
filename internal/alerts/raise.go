package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agrisense/farm-advisor/internal/farmctx"
	"github.com/agrisense/farm-advisor/internal/store"
)

type Store interface {
	CreateAlert(ctx context.Context, alert store.Alert) (store.Alert, error)
	HasOpenAlert(ctx context.Context, farmID, alertType, severity string) (bool, error)
}

// Raiser persists alerts that are not already open and publishes the ones it
// stored.
type Raiser struct {
	store  Store
	hub    *Hub
	logger *slog.Logger
}

func NewRaiser(store Store, hub *Hub, logger *slog.Logger) *Raiser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Raiser{store: store, hub: hub, logger: logger}
}

// Raise skips any candidate whose farm already has an unresolved alert of the
// same type and severity.
func (r *Raiser) Raise(ctx context.Context, candidates []store.Alert) ([]store.Alert, error) {
	created := make([]store.Alert, 0, len(candidates))
	for _, candidate := range candidates {
		open, err := r.store.HasOpenAlert(ctx, candidate.FarmID, candidate.Type, candidate.Severity)
		if err != nil {
			return created, fmt.Errorf("check open alert: %w", err)
		}
		if open {
			continue
		}
		alert, err := r.store.CreateAlert(ctx, candidate)
		if err != nil {
			return created, fmt.Errorf("create alert: %w", err)
		}
		r.logger.Info("alert raised", "farm_id", alert.FarmID, "type", alert.Type, "severity", alert.Severity)
		r.hub.Publish(alert)
		created = append(created, alert)
	}
	return created, nil
}

// ForInsight derives alerts from an edge insight: an urgent irrigation need
// and a device-flagged anomaly.
func ForInsight(insight store.Insight) []store.Alert {
	var out []store.Alert
	if strings.EqualFold(insight.IrrigationNeed, "HIGH") {
		message := "Urgent irrigation needed."
		if insight.SoilMoisture != nil {
			message = fmt.Sprintf("Urgent irrigation needed. Moisture: %.1f%%", *insight.SoilMoisture)
		}
		out = append(out, store.Alert{
			FarmID:   insight.FarmID,
			Type:     "irrigation",
			Severity: "high",
			Message:  message,
			Data:     insightData(insight),
		})
	}
	if insight.Anomaly {
		out = append(out, store.Alert{
			FarmID:   insight.FarmID,
			Type:     "anomaly",
			Severity: "medium",
			Message:  "Sensor anomaly detected",
			Data:     insightData(insight),
		})
	}
	return out
}

// ForContext converts the threshold alerts of a built farm context.
func ForContext(fc *farmctx.FarmContext) []store.Alert {
	if fc == nil {
		return nil
	}
	out := make([]store.Alert, 0, len(fc.Alerts))
	for _, alert := range fc.Alerts {
		out = append(out, store.Alert{
			FarmID:   fc.FarmID,
			Type:     alert.Type,
			Severity: string(alert.Severity),
			Message:  alert.Message,
		})
	}
	return out
}

func insightData(insight store.Insight) json.RawMessage {
	data, err := json.Marshal(map[string]any{
		"insightId":    insight.ID,
		"deviceId":     insight.DeviceID,
		"soilMoisture": insight.SoilMoisture,
		"observedAt":   insight.ObservedAt,
	})
	if err != nil {
		return nil
	}
	return data
}
