package agronomy

// NoReadingHealthScore is returned by HealthScore when there is nothing to
// score. It means "insufficient data", not "bad conditions".
const NoReadingHealthScore = 50

// AxisPenalty describes one scored axis. Values outside the severe bounds cost
// Severe points; values outside the warning bounds cost Warning points. Bounds
// are exclusive, so a value equal to a bound is inside it.
type AxisPenalty struct {
	SevereBelow  float64
	SevereAbove  float64
	Severe       int
	WarningBelow float64
	WarningAbove float64
	Warning      int
}

func (a AxisPenalty) For(value *float64) int {
	if value == nil {
		return 0
	}
	v := *value
	if v < a.SevereBelow || v > a.SevereAbove {
		return a.Severe
	}
	if v < a.WarningBelow || v > a.WarningAbove {
		return a.Warning
	}
	return 0
}

var HealthPenalties = struct {
	Moisture    AxisPenalty
	Temperature AxisPenalty
	PH          AxisPenalty
}{
	Moisture:    AxisPenalty{SevereBelow: 15, SevereAbove: 70, Severe: 30, WarningBelow: 20, WarningAbove: 60, Warning: 15},
	Temperature: AxisPenalty{SevereBelow: 10, SevereAbove: 38, Severe: 20, WarningBelow: 15, WarningAbove: 35, Warning: 10},
	PH:          AxisPenalty{SevereBelow: 5.5, SevereAbove: 8.0, Severe: 15, WarningBelow: 6.0, WarningAbove: 7.5, Warning: 8},
}

func MoisturePenalty(moisture *float64) int {
	return HealthPenalties.Moisture.For(Finite(moisture))
}

func TemperaturePenalty(temperature *float64) int {
	return HealthPenalties.Temperature.For(Finite(temperature))
}

func PHPenalty(ph *float64) int {
	return HealthPenalties.PH.For(Finite(ph))
}

// HealthScore starts at 100 and subtracts the independent moisture,
// temperature and pH penalties, floored at 0. An absent axis costs nothing;
// only a missing reading gets NoReadingHealthScore.
func HealthScore(r *Reading) int {
	if r == nil {
		return NoReadingHealthScore
	}
	score := 100 - MoisturePenalty(r.SoilMoisture) - TemperaturePenalty(r.Temperature) - PHPenalty(r.PH)
	return max(0, score)
}

type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
)

func HealthTier(score int) Tier {
	switch {
	case score >= 80:
		return TierExcellent
	case score >= 60:
		return TierGood
	case score >= 40:
		return TierFair
	default:
		return TierPoor
	}
}
