package agronomy

import (
	"fmt"
	"strings"
)

const genericCropName = "your crop"

type IrrigationUrgency string

const (
	IrrigationUnavailable IrrigationUrgency = "unavailable"
	IrrigationImmediate   IrrigationUrgency = "immediate"
	IrrigationWithinHours IrrigationUrgency = "within_hours"
	IrrigationWithinDay   IrrigationUrgency = "within_day"
	IrrigationNotNeeded   IrrigationUrgency = "not_needed"
	IrrigationOptimal     IrrigationUrgency = "optimal"
)

type Irrigation struct {
	Urgency IrrigationUrgency
	Message string
}

var IrrigationThresholds = struct {
	Critical     float64
	Low          float64
	Adequate     float64
	HeatCompound float64
}{
	Critical:     15,
	Low:          25,
	Adequate:     60,
	HeatCompound: 30,
}

// IrrigationAdvice applies the irrigation rules in fixed order; the first
// matching rule wins. crop and soil personalise the message when known.
func IrrigationAdvice(r *Reading, crop string, soil SoilType) Irrigation {
	cropName := strings.TrimSpace(crop)
	if cropName == "" {
		cropName = genericCropName
	}
	var moisture, temperature *float64
	if r != nil {
		moisture, temperature = Finite(r.SoilMoisture), Finite(r.Temperature)
	}
	th := IrrigationThresholds

	if moisture == nil {
		return Irrigation{
			Urgency: IrrigationUnavailable,
			Message: fmt.Sprintf("Sensor unavailable - no soil moisture reading for %s.", cropName),
		}
	}
	m := *moisture
	switch {
	case m < th.Critical:
		msg := fmt.Sprintf("URGENT: Irrigate %s immediately! Critically low moisture", cropName)
		if soil.Known() {
			msg += fmt.Sprintf(" for %s soil", soil)
		}
		return Irrigation{Urgency: IrrigationImmediate, Message: msg + "."}
	case m < th.Low && temperature != nil && *temperature > th.HeatCompound:
		msg := fmt.Sprintf("Irrigate %s within 2-4 hours due to heat stress", cropName)
		if soil.Known() {
			msg += fmt.Sprintf(" on %s soil", soil)
		}
		return Irrigation{Urgency: IrrigationWithinHours, Message: msg + "."}
	case m < th.Low:
		return Irrigation{
			Urgency: IrrigationWithinDay,
			Message: fmt.Sprintf("Irrigate %s within 12 hours.", cropName),
		}
	case m > th.Adequate:
		return Irrigation{
			Urgency: IrrigationNotNeeded,
			Message: fmt.Sprintf("No irrigation needed. Moisture adequate for %s.", cropName),
		}
	default:
		return Irrigation{
			Urgency: IrrigationOptimal,
			Message: fmt.Sprintf("Moisture optimal for %s - continue monitoring.", cropName),
		}
	}
}

// FertilizerAdvice is keyed on the exact growth stage.
func FertilizerAdvice(stage GrowthStage, crop string) string {
	cropName := strings.TrimSpace(crop)
	if cropName == "" {
		cropName = genericCropName
	}
	switch stage {
	case StagePlanting, StageGermination:
		return fmt.Sprintf("Apply starter fertilizer (DAP) for %s root development.", cropName)
	case StageVegetative:
		return fmt.Sprintf("Apply nitrogen fertilizer (Urea) for %s leaf growth.", cropName)
	case StageFlowering:
		return fmt.Sprintf("Reduce nitrogen and apply phosphorus-rich NPK 10:26:26 for %s flowering.", cropName)
	case StageFruiting:
		return fmt.Sprintf("Apply potassium-rich fertilizer (MOP) for %s fruit quality and size.", cropName)
	case StageHarvesting:
		return fmt.Sprintf("Reduce fertilizer. %s is nearing harvest.", cropName)
	default:
		return fmt.Sprintf("Monitor %s growth stage for specific recommendations.", cropName)
	}
}

// StageAdvisories holds one agronomic tip per advisory stage.
var StageAdvisories = map[string]string{
	"seedling":   "Focus on consistent moisture and protection from pests. Avoid overwatering.",
	"vegetative": "Ensure adequate nitrogen for leaf growth. Maintain optimal moisture.",
	"flowering":  "Critical stage - maintain consistent water. Avoid stress. Consider phosphorus.",
	"fruiting":   "Increase potassium for fruit quality. Maintain steady irrigation.",
	"harvesting": "Reduce irrigation. Monitor for maturity indicators.",
	"unknown":    "Update growth stage in settings for specific recommendations.",
}

// StageAdvisory maps planting and germination onto the seedling tip.
func StageAdvisory(stage GrowthStage) string {
	key := string(stage)
	switch stage {
	case StagePlanting, StageGermination:
		key = "seedling"
	}
	if tip, ok := StageAdvisories[key]; ok {
		return tip
	}
	return StageAdvisories["unknown"]
}
