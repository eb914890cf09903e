package store

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestCreateSensorReadingValidatesRange(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		sensorType SensorType
		value      float64
	}{
		{SensorTemperature, 81},
		{SensorTemperature, -41},
		{SensorSoilMoisture, 101},
		{SensorPHLevel, 14.5},
		{SensorHumidity, -1},
		{SensorType("co2"), 400},
		{SensorRainfall, math.NaN()},
	}
	for _, tc := range cases {
		_, err := sqlStore.CreateSensorReading(ctx, SensorReading{FarmID: "farm-1", SensorType: tc.sensorType, Value: tc.value})
		if !errors.Is(err, ErrInvalidReading) {
			t.Fatalf("%s=%v: expected ErrInvalidReading, got %v", tc.sensorType, tc.value, err)
		}
	}
}

func TestCreateAndListSensorReadings(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	first, err := sqlStore.CreateSensorReading(ctx, SensorReading{
		FarmID: "farm-1", SensorType: "Soil_Moisture", Value: 33, ObservedAt: base,
	})
	if err != nil {
		t.Fatalf("create reading: %v", err)
	}
	if first.Unit != "%" || first.SensorType != SensorSoilMoisture {
		t.Fatalf("unexpected normalized reading %+v", first)
	}
	if _, err := sqlStore.CreateSensorReading(ctx, SensorReading{
		FarmID: "farm-1", SensorType: SensorLightIntensity, Value: 12000, ObservedAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("create light reading: %v", err)
	}

	readings, err := sqlStore.ListSensorReadings(ctx, "farm-1", 10)
	if err != nil {
		t.Fatalf("list readings: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	if readings[0].SensorType != SensorLightIntensity || readings[0].Unit != "lux" {
		t.Fatalf("expected newest light reading first, got %+v", readings[0])
	}
}
