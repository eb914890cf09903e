package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidReading = errors.New("invalid sensor reading")

type SensorType string

const (
	SensorTemperature    SensorType = "temperature"
	SensorHumidity       SensorType = "humidity"
	SensorSoilMoisture   SensorType = "soil_moisture"
	SensorPHLevel        SensorType = "ph_level"
	SensorLightIntensity SensorType = "light_intensity"
	SensorRainfall       SensorType = "rainfall"
	SensorWindSpeed      SensorType = "wind_speed"
	SensorAirPressure    SensorType = "air_pressure"
)

type sensorRange struct {
	unit     string
	min, max float64
	bounded  bool
}

var sensorRanges = map[SensorType]sensorRange{
	SensorTemperature:    {unit: "°C", min: -40, max: 80, bounded: true},
	SensorHumidity:       {unit: "%", min: 0, max: 100, bounded: true},
	SensorSoilMoisture:   {unit: "%", min: 0, max: 100, bounded: true},
	SensorPHLevel:        {unit: "pH", min: 0, max: 14, bounded: true},
	SensorLightIntensity: {unit: "lux"},
	SensorRainfall:       {unit: "mm"},
	SensorWindSpeed:      {unit: "km/h"},
	SensorAirPressure:    {unit: "hPa"},
}

type SensorReading struct {
	ID          string     `json:"id"`
	FarmID      string     `json:"farmId"`
	SensorType  SensorType `json:"sensorType"`
	SensorID    string     `json:"sensorId,omitempty"`
	SensorModel string     `json:"sensorModel,omitempty"`
	Zone        string     `json:"zone,omitempty"`
	Value       float64    `json:"value"`
	Unit        string     `json:"unit"`
	ObservedAt  time.Time  `json:"observedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ValidateSensorReading checks the type and the hardware range of the value.
func ValidateSensorReading(sensorType SensorType, value float64) error {
	limits, ok := sensorRanges[sensorType]
	if !ok {
		return fmt.Errorf("%w: unknown sensor type %q", ErrInvalidReading, sensorType)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: value is not finite", ErrInvalidReading)
	}
	if limits.bounded && (value < limits.min || value > limits.max) {
		return fmt.Errorf("%w: %s value %.2f outside %.0f..%.0f", ErrInvalidReading, sensorType, value, limits.min, limits.max)
	}
	return nil
}

func (s *Store) CreateSensorReading(ctx context.Context, reading SensorReading) (SensorReading, error) {
	reading.FarmID = strings.TrimSpace(reading.FarmID)
	if reading.FarmID == "" {
		return SensorReading{}, fmt.Errorf("farm id is required")
	}
	reading.SensorType = SensorType(strings.ToLower(strings.TrimSpace(string(reading.SensorType))))
	if err := ValidateSensorReading(reading.SensorType, reading.Value); err != nil {
		return SensorReading{}, err
	}
	if strings.TrimSpace(reading.ID) == "" {
		reading.ID = "sen_" + uuid.NewString()
	}
	if strings.TrimSpace(reading.Unit) == "" {
		reading.Unit = sensorRanges[reading.SensorType].unit
	}
	now := s.now()
	reading.ObservedAt = time.Unix(unixOrNow(reading.ObservedAt, now), 0).UTC()
	reading.CreatedAt = time.Unix(now.Unix(), 0).UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sensor_readings (
			id, farm_id, sensor_type, sensor_id, sensor_model, zone, value, unit,
			observed_at_unix, created_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reading.ID,
		reading.FarmID,
		string(reading.SensorType),
		nullIfEmpty(strings.TrimSpace(reading.SensorID)),
		nullIfEmpty(strings.TrimSpace(reading.SensorModel)),
		nullIfEmpty(strings.TrimSpace(reading.Zone)),
		reading.Value,
		reading.Unit,
		reading.ObservedAt.Unix(),
		reading.CreatedAt.Unix(),
	)
	if err != nil {
		return SensorReading{}, fmt.Errorf("insert sensor reading: %w", err)
	}
	return reading, nil
}

// ListSensorReadings returns the newest readings first across all sensor types.
func (s *Store) ListSensorReadings(ctx context.Context, farmID string, limit int) ([]SensorReading, error) {
	limit = clampLimit(limit, 50, 1000)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, farm_id, sensor_type, sensor_id, sensor_model, zone, value, unit,
			observed_at_unix, created_at_unix
		 FROM sensor_readings
		 WHERE farm_id = ?
		 ORDER BY observed_at_unix DESC, rowid DESC
		 LIMIT ?`,
		strings.TrimSpace(farmID),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sensor readings: %w", err)
	}
	defer rows.Close()

	readings := []SensorReading{}
	for rows.Next() {
		var (
			item                          SensorReading
			sensorType                    string
			sensorID, model, zone         sql.NullString
			observedAtUnix, createdAtUnix int64
		)
		if err := rows.Scan(
			&item.ID, &item.FarmID, &sensorType, &sensorID, &model, &zone, &item.Value, &item.Unit,
			&observedAtUnix, &createdAtUnix,
		); err != nil {
			return nil, fmt.Errorf("scan sensor reading: %w", err)
		}
		item.SensorType = SensorType(sensorType)
		item.SensorID = sensorID.String
		item.SensorModel = model.String
		item.Zone = zone.String
		item.ObservedAt = time.Unix(observedAtUnix, 0).UTC()
		item.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		readings = append(readings, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensor readings: %w", err)
	}
	return readings, nil
}
