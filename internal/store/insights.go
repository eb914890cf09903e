package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Insight is a derived snapshot reported by an edge device.
type Insight struct {
	ID                  string    `json:"id"`
	FarmID              string    `json:"farmId"`
	DeviceID            string    `json:"deviceId,omitempty"`
	ObservedAt          time.Time `json:"observedAt"`
	SoilMoisture        *float64  `json:"soilMoisture"`
	MoistureTrend       string    `json:"moistureTrend,omitempty"`
	PredictedMoisture6h *float64  `json:"predictedMoisture6h"`
	IrrigationNeed      string    `json:"irrigationNeed,omitempty"`
	Temperature         *float64  `json:"temperature"`
	Humidity            *float64  `json:"humidity"`
	PH                  *float64  `json:"ph"`
	EC                  *float64  `json:"ec"`
	LightIntensity      *float64  `json:"lightIntensity"`
	CropStage           string    `json:"cropStage,omitempty"`
	Anomaly             bool      `json:"anomaly"`
	CreatedAt           time.Time `json:"createdAt"`
}

type InsightStats struct {
	Days             int      `json:"days"`
	TotalReadings    int      `json:"totalReadings"`
	AvgMoisture      *float64 `json:"avgMoisture"`
	AvgTemperature   *float64 `json:"avgTemperature"`
	AvgHumidity      *float64 `json:"avgHumidity"`
	IrrigationNeeded int      `json:"irrigationNeeded"`
	Anomalies        int      `json:"anomalies"`
}

func (s *Store) CreateInsight(ctx context.Context, insight Insight) (Insight, error) {
	insight.FarmID = strings.TrimSpace(insight.FarmID)
	if insight.FarmID == "" {
		return Insight{}, fmt.Errorf("farm id is required")
	}
	if strings.TrimSpace(insight.ID) == "" {
		insight.ID = "ins_" + uuid.NewString()
	}
	now := s.now()
	insight.ObservedAt = time.Unix(unixOrNow(insight.ObservedAt, now), 0).UTC()
	insight.CreatedAt = time.Unix(now.Unix(), 0).UTC()
	insight.IrrigationNeed = strings.ToUpper(strings.TrimSpace(insight.IrrigationNeed))
	insight.CropStage = strings.ToLower(strings.TrimSpace(insight.CropStage))
	anomaly := 0
	if insight.Anomaly {
		anomaly = 1
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO insights (
			id, farm_id, device_id, observed_at_unix, soil_moisture, moisture_trend,
			predicted_moisture_6h, irrigation_need, temperature, humidity, ph, ec,
			light_intensity, crop_stage, anomaly, created_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insight.ID,
		insight.FarmID,
		nullIfEmpty(strings.TrimSpace(insight.DeviceID)),
		insight.ObservedAt.Unix(),
		nullFloat(insight.SoilMoisture),
		nullIfEmpty(strings.TrimSpace(insight.MoistureTrend)),
		nullFloat(insight.PredictedMoisture6h),
		nullIfEmpty(insight.IrrigationNeed),
		nullFloat(insight.Temperature),
		nullFloat(insight.Humidity),
		nullFloat(insight.PH),
		nullFloat(insight.EC),
		nullFloat(insight.LightIntensity),
		nullIfEmpty(insight.CropStage),
		anomaly,
		insight.CreatedAt.Unix(),
	)
	if err != nil {
		return Insight{}, fmt.Errorf("insert insight: %w", err)
	}
	return insight, nil
}

// ListInsights returns the newest insights first.
func (s *Store) ListInsights(ctx context.Context, farmID string, limit int) ([]Insight, error) {
	limit = clampLimit(limit, 100, 1000)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, farm_id, device_id, observed_at_unix, soil_moisture, moisture_trend,
			predicted_moisture_6h, irrigation_need, temperature, humidity, ph, ec,
			light_intensity, crop_stage, anomaly, created_at_unix
		 FROM insights
		 WHERE farm_id = ?
		 ORDER BY observed_at_unix DESC, rowid DESC
		 LIMIT ?`,
		strings.TrimSpace(farmID),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	insights := []Insight{}
	for rows.Next() {
		var (
			item                                    Insight
			deviceID, trend, need, stage            sql.NullString
			moisture, predicted, temp, humidity, ph sql.NullFloat64
			ec, light                               sql.NullFloat64
			anomaly                                 int
			observedAtUnix, createdAtUnix           int64
		)
		if err := rows.Scan(
			&item.ID, &item.FarmID, &deviceID, &observedAtUnix, &moisture, &trend,
			&predicted, &need, &temp, &humidity, &ph, &ec,
			&light, &stage, &anomaly, &createdAtUnix,
		); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		item.DeviceID = deviceID.String
		item.ObservedAt = time.Unix(observedAtUnix, 0).UTC()
		item.SoilMoisture = floatPtr(moisture)
		item.MoistureTrend = trend.String
		item.PredictedMoisture6h = floatPtr(predicted)
		item.IrrigationNeed = need.String
		item.Temperature = floatPtr(temp)
		item.Humidity = floatPtr(humidity)
		item.PH = floatPtr(ph)
		item.EC = floatPtr(ec)
		item.LightIntensity = floatPtr(light)
		item.CropStage = stage.String
		item.Anomaly = anomaly == 1
		item.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		insights = append(insights, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return insights, nil
}

// InsightStats summarises the last days of insights. Averages skip missing
// values and are nil when nothing was reported.
func (s *Store) InsightStats(ctx context.Context, farmID string, days int) (InsightStats, error) {
	if days < 1 {
		days = 7
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*), AVG(soil_moisture), AVG(temperature), AVG(humidity),
			COALESCE(SUM(CASE WHEN irrigation_need = 'HIGH' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(anomaly), 0)
		 FROM insights
		 WHERE farm_id = ? AND observed_at_unix >= ?`,
		strings.TrimSpace(farmID),
		since,
	)
	stats := InsightStats{Days: days}
	var moisture, temp, humidity sql.NullFloat64
	if err := row.Scan(&stats.TotalReadings, &moisture, &temp, &humidity, &stats.IrrigationNeeded, &stats.Anomalies); err != nil {
		return InsightStats{}, fmt.Errorf("insight stats: %w", err)
	}
	stats.AvgMoisture = floatPtr(moisture)
	stats.AvgTemperature = floatPtr(temp)
	stats.AvgHumidity = floatPtr(humidity)
	return stats, nil
}
