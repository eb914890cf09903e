package farmctx

import (
	"github.com/agrisense/farm-advisor/internal/agronomy"
	"github.com/agrisense/farm-advisor/internal/store"
)

type field int

const (
	fieldSoilMoisture field = iota
	fieldTemperature
	fieldHumidity
	fieldPH
	fieldEC
	fieldLightIntensity
	fieldRainfall
)

// sensorFields maps dedicated sensor rows onto condition fields. Sensor types
// missing here (wind, pressure) do not feed the context.
var sensorFields = map[store.SensorType]field{
	store.SensorSoilMoisture:   fieldSoilMoisture,
	store.SensorTemperature:    fieldTemperature,
	store.SensorHumidity:       fieldHumidity,
	store.SensorPHLevel:        fieldPH,
	store.SensorLightIntensity: fieldLightIntensity,
	store.SensorRainfall:       fieldRainfall,
}

// insightFields maps insight columns onto condition fields. Insights carry no
// rainfall; sensors carry no conductivity.
var insightFields = map[field]func(store.Insight) *float64{
	fieldSoilMoisture:   func(i store.Insight) *float64 { return i.SoilMoisture },
	fieldTemperature:    func(i store.Insight) *float64 { return i.Temperature },
	fieldHumidity:       func(i store.Insight) *float64 { return i.Humidity },
	fieldPH:             func(i store.Insight) *float64 { return i.PH },
	fieldEC:             func(i store.Insight) *float64 { return i.EC },
	fieldLightIntensity: func(i store.Insight) *float64 { return i.LightIntensity },
}

// reconcile picks, per field, the newest sensor value, else the latest
// insight value, else nil.
func reconcile(latest *store.Insight, sensors []store.SensorReading) Conditions {
	values := map[field]*float64{}
	for _, reading := range sensors {
		target, ok := sensorFields[reading.SensorType]
		if !ok || values[target] != nil {
			continue
		}
		values[target] = agronomy.Float(reading.Value)
	}
	if latest != nil {
		for target, get := range insightFields {
			if values[target] == nil {
				values[target] = agronomy.Finite(get(*latest))
			}
		}
	}

	conditions := Conditions{
		SoilMoisture:   values[fieldSoilMoisture],
		Temperature:    values[fieldTemperature],
		Humidity:       values[fieldHumidity],
		PH:             values[fieldPH],
		EC:             values[fieldEC],
		LightIntensity: values[fieldLightIntensity],
		Rainfall:       values[fieldRainfall],
	}
	if latest != nil {
		observed := latest.ObservedAt
		conditions.ObservedAt = &observed
	}
	if len(sensors) > 0 {
		observed := sensors[0].ObservedAt
		if conditions.ObservedAt == nil || observed.After(*conditions.ObservedAt) {
			conditions.ObservedAt = &observed
		}
	}
	return conditions
}
