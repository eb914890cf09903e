package farmctx

import "fmt"

var AlertThresholds = struct {
	MoistureCritical float64
	MoistureLow      float64
	MoistureHigh     float64
	HeatExtreme      float64
	ColdRisk         float64
	PHAcidic         float64
	PHAlkaline       float64
	HealthBelow      int
}{
	MoistureCritical: 20,
	MoistureLow:      30,
	MoistureHigh:     70,
	HeatExtreme:      38,
	ColdRisk:         10,
	PHAcidic:         5.5,
	PHAlkaline:       8.0,
	HealthBelow:      60,
}

// buildAlerts runs the independent threshold checks over the latest reading
// and the health score. Several alerts can fire at once.
func buildAlerts(conditions Conditions, analysis Analysis, crop CropInfo) []Alert {
	th := AlertThresholds
	cropName := crop.Name
	if cropName == "" {
		cropName = "crop"
	}
	alerts := []Alert{}

	if m := conditions.SoilMoisture; m != nil {
		switch {
		case *m < th.MoistureCritical:
			alerts = append(alerts, Alert{
				Severity: SeverityHigh,
				Type:     "irrigation",
				Message:  fmt.Sprintf("Critical moisture (%.1f%%)! %s needs immediate watering.", *m, cropName),
			})
		case *m < th.MoistureLow:
			alerts = append(alerts, Alert{
				Severity: SeverityMedium,
				Type:     "irrigation",
				Message:  fmt.Sprintf("Low moisture (%.1f%%). Plan irrigation soon.", *m),
			})
		case *m > th.MoistureHigh:
			alerts = append(alerts, Alert{
				Severity: SeverityMedium,
				Type:     "overwatering",
				Message:  fmt.Sprintf("High moisture (%.1f%%). Risk of root rot for %s.", *m, cropName),
			})
		}
	}

	if t := conditions.Temperature; t != nil {
		switch {
		case *t > th.HeatExtreme:
			alerts = append(alerts, Alert{
				Severity: SeverityHigh,
				Type:     "heat",
				Message:  fmt.Sprintf("Extreme heat (%.1f°C)! %s at risk of heat stress.", *t, cropName),
			})
		case *t < th.ColdRisk:
			alerts = append(alerts, Alert{
				Severity: SeverityHigh,
				Type:     "cold",
				Message:  fmt.Sprintf("Low temperature (%.1f°C). Frost risk for %s.", *t, cropName),
			})
		}
	}

	if ph := conditions.PH; ph != nil {
		switch {
		case *ph < th.PHAcidic:
			alerts = append(alerts, Alert{
				Severity: SeverityMedium,
				Type:     "soil",
				Message:  fmt.Sprintf("Acidic soil (pH %.2f). Consider liming.", *ph),
			})
		case *ph > th.PHAlkaline:
			alerts = append(alerts, Alert{
				Severity: SeverityMedium,
				Type:     "soil",
				Message:  fmt.Sprintf("Alkaline soil (pH %.2f). May affect nutrient uptake.", *ph),
			})
		}
	}

	if analysis.HealthScore < th.HealthBelow {
		alerts = append(alerts, Alert{
			Severity: SeverityMedium,
			Type:     "health",
			Message:  fmt.Sprintf("Farm health below optimal (%d/100). Review conditions.", analysis.HealthScore),
		})
	}
	return alerts
}
