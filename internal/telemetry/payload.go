// Package telemetry decodes edge-device payloads and records them, raising
// alerts for insights that call for attention.
package telemetry

import (
	"strings"
	"time"

	"github.com/agrisense/farm-advisor/internal/store"
)

// Edge devices report epoch seconds; some gateways send milliseconds.
const millisecondThreshold = 1_000_000_000_000

type InsightPayload struct {
	Timestamp           *int64   `json:"timestamp"`
	DeviceID            string   `json:"device_id"`
	FarmID              string   `json:"farm_id"`
	SoilMoisture        *float64 `json:"soil_moisture"`
	MoistureTrend       string   `json:"moisture_trend"`
	PredictedMoisture6h *float64 `json:"predicted_moisture_6h"`
	IrrigationNeed      string   `json:"irrigation_need"`
	Temperature         *float64 `json:"temperature"`
	Humidity            *float64 `json:"humidity"`
	PH                  *float64 `json:"ph"`
	EC                  *float64 `json:"ec"`
	LightIntensity      *float64 `json:"light_intensity"`
	CropStage           string   `json:"crop_stage"`
	Anomaly             bool     `json:"anomaly"`
}

func (p InsightPayload) Insight() store.Insight {
	return store.Insight{
		FarmID:              strings.TrimSpace(p.FarmID),
		DeviceID:            strings.TrimSpace(p.DeviceID),
		ObservedAt:          epoch(p.Timestamp),
		SoilMoisture:        p.SoilMoisture,
		MoistureTrend:       strings.ToLower(strings.TrimSpace(p.MoistureTrend)),
		PredictedMoisture6h: p.PredictedMoisture6h,
		IrrigationNeed:      p.IrrigationNeed,
		Temperature:         p.Temperature,
		Humidity:            p.Humidity,
		PH:                  p.PH,
		EC:                  p.EC,
		LightIntensity:      p.LightIntensity,
		CropStage:           p.CropStage,
		Anomaly:             p.Anomaly,
	}
}

type SensorPayload struct {
	FarmID      string  `json:"farm_id"`
	SensorType  string  `json:"sensor_type"`
	SensorID    string  `json:"sensor_id"`
	SensorModel string  `json:"sensor_model"`
	Zone        string  `json:"zone"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Timestamp   *int64  `json:"timestamp"`
}

func (p SensorPayload) Reading() store.SensorReading {
	return store.SensorReading{
		FarmID:      strings.TrimSpace(p.FarmID),
		SensorType:  store.SensorType(p.SensorType),
		SensorID:    p.SensorID,
		SensorModel: p.SensorModel,
		Zone:        p.Zone,
		Value:       p.Value,
		Unit:        strings.TrimSpace(p.Unit),
		ObservedAt:  epoch(p.Timestamp),
	}
}

type IrrigationPayload struct {
	FarmID      string   `json:"farm_id"`
	Timestamp   *int64   `json:"timestamp"`
	Duration    *float64 `json:"duration"`
	WaterAmount *float64 `json:"water_amount"`
	Method      string   `json:"method"`
	Notes       string   `json:"notes"`
}

func (p IrrigationPayload) Log() store.IrrigationLog {
	return store.IrrigationLog{
		FarmID:          strings.TrimSpace(p.FarmID),
		StartedAt:       epoch(p.Timestamp),
		DurationMinutes: p.Duration,
		WaterLiters:     p.WaterAmount,
		Method:          strings.TrimSpace(p.Method),
		Notes:           strings.TrimSpace(p.Notes),
	}
}

// Batch is the file format gateways drop into the inbox.
type Batch struct {
	Insights       []InsightPayload    `json:"insights"`
	SensorReadings []SensorPayload     `json:"sensor_readings"`
	Irrigation     []IrrigationPayload `json:"irrigation"`
}

func (b Batch) Empty() bool {
	return len(b.Insights) == 0 && len(b.SensorReadings) == 0 && len(b.Irrigation) == 0
}

// epoch returns the zero time for a missing or non-positive timestamp, which
// the store replaces with the insert time.
func epoch(value *int64) time.Time {
	if value == nil || *value <= 0 {
		return time.Time{}
	}
	if *value >= millisecondThreshold {
		return time.UnixMilli(*value).UTC()
	}
	return time.Unix(*value, 0).UTC()
}
