package agronomy

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

type RiskAssessment struct {
	Drought       RiskLevel `json:"drought"`
	HeatStress    RiskLevel `json:"heatStress"`
	FungalDisease RiskLevel `json:"fungalDisease"`
}

// LowRisk is the assessment used whenever nothing can be asserted.
func LowRisk() RiskAssessment {
	return RiskAssessment{Drought: RiskLow, HeatStress: RiskLow, FungalDisease: RiskLow}
}

var RiskThresholds = struct {
	DroughtHigh          float64
	DroughtMedium        float64
	HeatHigh             float64
	HeatMedium           float64
	FungalHumidityHigh   float64
	FungalHumidityMedium float64
	FungalTempMin        float64
	FungalTempMax        float64
}{
	DroughtHigh:          20,
	DroughtMedium:        30,
	HeatHigh:             35,
	HeatMedium:           30,
	FungalHumidityHigh:   80,
	FungalHumidityMedium: 70,
	FungalTempMin:        20,
	FungalTempMax:        30,
}

// AssessRisk evaluates each axis independently. A missing input never raises
// an axis above LOW.
func AssessRisk(r *Reading) RiskAssessment {
	out := LowRisk()
	if r == nil {
		return out
	}
	moisture, temperature, humidity := Finite(r.SoilMoisture), Finite(r.Temperature), Finite(r.Humidity)
	th := RiskThresholds

	if moisture != nil {
		switch {
		case *moisture < th.DroughtHigh:
			out.Drought = RiskHigh
		case *moisture < th.DroughtMedium:
			out.Drought = RiskMedium
		}
	}
	if temperature != nil {
		switch {
		case *temperature > th.HeatHigh:
			out.HeatStress = RiskHigh
		case *temperature > th.HeatMedium:
			out.HeatStress = RiskMedium
		}
	}
	if humidity != nil {
		warmAndHumid := temperature != nil &&
			*humidity > th.FungalHumidityHigh &&
			*temperature > th.FungalTempMin && *temperature < th.FungalTempMax
		switch {
		case warmAndHumid:
			out.FungalDisease = RiskHigh
		case *humidity > th.FungalHumidityMedium:
			out.FungalDisease = RiskMedium
		}
	}
	return out
}
