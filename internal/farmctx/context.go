// Package farmctx builds the per-request FarmContext: farm metadata, the
// reconciled latest reading, trends, analysis, statistics and alerts.
package farmctx

import (
	"time"

	"github.com/agrisense/farm-advisor/internal/agronomy"
	"github.com/agrisense/farm-advisor/internal/store"
)

const (
	UnknownFarmName     = "Unknown Farm"
	UnspecifiedLocation = "Not specified"
	DefaultIrrigation   = "Manual"
	NoDataText          = "No data"
	UnableToAnalyzeText = "Unable to analyze"
)

type FarmContext struct {
	FarmID         string     `json:"farmId"`
	FarmName       string     `json:"farmName"`
	FarmLocation   string     `json:"farmLocation"`
	FarmAreaAcres  *float64   `json:"farmAreaAcres"`
	IrrigationType string     `json:"irrigationType"`
	Crop           CropInfo   `json:"cropInfo"`
	Soil           SoilInfo   `json:"soilInfo"`
	Conditions     Conditions `json:"currentConditions"`
	Trends         Trends     `json:"trends"`
	Analysis       Analysis   `json:"analysis"`
	Statistics     Statistics `json:"statistics"`
	Alerts         []Alert    `json:"alerts"`
	Recent         Recent     `json:"historicalData"`
	GeneratedAt    time.Time  `json:"generatedAt"`
}

type CropInfo struct {
	Name              string               `json:"name"`
	Variety           string               `json:"variety"`
	GrowthStage       agronomy.GrowthStage `json:"growthStage"`
	PlantingDate      *time.Time           `json:"plantingDate"`
	HarvestDate       *time.Time           `json:"harvestDate"`
	DaysSincePlanting *int                 `json:"daysSincePlanting"`
	AllCropNames      []string             `json:"allCropNames"`
}

func (c CropInfo) Known() bool {
	return c.Name != ""
}

type SoilInfo struct {
	SoilType           agronomy.SoilType `json:"soilType"`
	OptimalMoistureMin float64           `json:"optimalMoistureMin"`
	OptimalMoistureMax float64           `json:"optimalMoistureMax"`
	Characteristics    string            `json:"characteristics"`
}

type Conditions struct {
	SoilMoisture   *float64             `json:"soilMoisture"`
	Temperature    *float64             `json:"temperature"`
	Humidity       *float64             `json:"humidity"`
	PH             *float64             `json:"ph"`
	EC             *float64             `json:"ec"`
	LightIntensity *float64             `json:"lightIntensity"`
	Rainfall       *float64             `json:"rainfall"`
	CropStage      agronomy.GrowthStage `json:"cropStage"`
	ObservedAt     *time.Time           `json:"observedAt"`
}

// Reading projects the conditions onto the scored axes.
func (c Conditions) Reading() *agronomy.Reading {
	return &agronomy.Reading{
		SoilMoisture: c.SoilMoisture,
		Temperature:  c.Temperature,
		Humidity:     c.Humidity,
		PH:           c.PH,
	}
}

type Trends struct {
	Moisture    agronomy.Trend `json:"moisture"`
	Temperature agronomy.Trend `json:"temperature"`
	Humidity    agronomy.Trend `json:"humidity"`
}

type Analysis struct {
	HealthScore              int                     `json:"healthScore"`
	IrrigationRecommendation string                  `json:"irrigationRecommendation"`
	FertilizerRecommendation string                  `json:"fertilizerRecommendation"`
	RiskAssessment           agronomy.RiskAssessment `json:"riskAssessment"`
}

// NoDataAnalysis is the aggregate sentinel for a farm without any readings.
// It is distinct from agronomy.NoReadingHealthScore.
func NoDataAnalysis() Analysis {
	return Analysis{
		HealthScore:              0,
		IrrigationRecommendation: NoDataText,
		FertilizerRecommendation: NoDataText,
		RiskAssessment:           agronomy.LowRisk(),
	}
}

// FailedAnalysis is the aggregate sentinel for an analysis that could not run.
func FailedAnalysis() Analysis {
	return Analysis{
		HealthScore:              0,
		IrrigationRecommendation: UnableToAnalyzeText,
		FertilizerRecommendation: UnableToAnalyzeText,
		RiskAssessment:           agronomy.LowRisk(),
	}
}

type Statistics struct {
	AvgMoisture    *float64 `json:"avgMoisture"`
	AvgTemperature *float64 `json:"avgTemperature"`
	ReadingsCount  int      `json:"readingsCount"`
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Alert struct {
	Severity Severity `json:"severity"`
	Type     string   `json:"type"`
	Message  string   `json:"message"`
}

type Recent struct {
	Insights       []store.Insight       `json:"insights"`
	SensorReadings []store.SensorReading `json:"sensorReadings"`
	Irrigation     []store.IrrigationLog `json:"recentIrrigation"`
}

// HasReadings reports whether any insight or sensor row fed the context.
func (fc *FarmContext) HasReadings() bool {
	return fc != nil && (len(fc.Recent.Insights) > 0 || len(fc.Recent.SensorReadings) > 0)
}

// Empty is the context used when nothing at all could be assembled.
func Empty(farmID string, now time.Time) *FarmContext {
	profile := agronomy.SoilProfileFor(agronomy.SoilUnknown)
	return &FarmContext{
		FarmID:         farmID,
		FarmName:       UnknownFarmName,
		FarmLocation:   UnspecifiedLocation,
		IrrigationType: DefaultIrrigation,
		Crop: CropInfo{
			GrowthStage:  agronomy.StageUnknown,
			AllCropNames: []string{},
		},
		Soil: SoilInfo{
			SoilType:           agronomy.SoilUnknown,
			OptimalMoistureMin: profile.MoistureMin,
			OptimalMoistureMax: profile.MoistureMax,
			Characteristics:    profile.Characteristics,
		},
		Conditions: Conditions{CropStage: agronomy.StageUnknown},
		Trends: Trends{
			Moisture:    agronomy.TrendUnknown,
			Temperature: agronomy.TrendUnknown,
			Humidity:    agronomy.TrendUnknown,
		},
		Analysis: NoDataAnalysis(),
		Alerts:   []Alert{},
		Recent: Recent{
			Insights:       []store.Insight{},
			SensorReadings: []store.SensorReading{},
			Irrigation:     []store.IrrigationLog{},
		},
		GeneratedAt: now.UTC(),
	}
}
