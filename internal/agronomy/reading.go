// Package agronomy holds the deterministic decision rules behind farm advice:
// trend estimation, health scoring, risk levels, soil moisture bands and the
// irrigation and fertilizer recommendation tables. Nothing here performs I/O.
package agronomy

import (
	"math"
	"strings"
)

// Reading is the latest known value of each scored axis. A nil field means the
// axis has no sample.
type Reading struct {
	SoilMoisture *float64
	Temperature  *float64
	Humidity     *float64
	PH           *float64
}

// Empty reports whether no axis carries a value.
func (r *Reading) Empty() bool {
	return r == nil || (r.SoilMoisture == nil && r.Temperature == nil && r.Humidity == nil && r.PH == nil)
}

// Float returns a pointer to v, or nil when v is NaN or infinite.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Finite drops NaN and infinite values so they never reach formatted output.
func Finite(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

type GrowthStage string

const (
	StagePlanting    GrowthStage = "planting"
	StageGermination GrowthStage = "germination"
	StageVegetative  GrowthStage = "vegetative"
	StageFlowering   GrowthStage = "flowering"
	StageFruiting    GrowthStage = "fruiting"
	StageHarvesting  GrowthStage = "harvesting"
	StageUnknown     GrowthStage = "unknown"
)

var growthStages = []GrowthStage{
	StagePlanting,
	StageGermination,
	StageVegetative,
	StageFlowering,
	StageFruiting,
	StageHarvesting,
}

// ParseGrowthStage lowercases and trims raw; anything outside the enum is
// StageUnknown.
func ParseGrowthStage(raw string) GrowthStage {
	value := GrowthStage(strings.ToLower(strings.TrimSpace(raw)))
	for _, stage := range growthStages {
		if stage == value {
			return stage
		}
	}
	return StageUnknown
}

func (s GrowthStage) Known() bool {
	return s != StageUnknown && s != ""
}
