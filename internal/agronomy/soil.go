package agronomy

import "strings"

type SoilType string

const (
	SoilClay    SoilType = "clay"
	SoilSandy   SoilType = "sandy"
	SoilLoamy   SoilType = "loamy"
	SoilSilty   SoilType = "silty"
	SoilPeaty   SoilType = "peaty"
	SoilChalky  SoilType = "chalky"
	SoilUnknown SoilType = "unknown"
)

func ParseSoilType(raw string) SoilType {
	value := SoilType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := SoilMoistureRanges[value]; ok {
		return value
	}
	return SoilUnknown
}

func (s SoilType) Known() bool {
	return s != SoilUnknown && s != ""
}

// SoilProfile is the optimal moisture band (percent) for a soil type.
type SoilProfile struct {
	MoistureMin     float64
	MoistureMax     float64
	Characteristics string
}

var SoilMoistureRanges = map[SoilType]SoilProfile{
	SoilClay: {
		MoistureMin:     45,
		MoistureMax:     65,
		Characteristics: "Heavy soil, retains water well but drains slowly. Risk of waterlogging. Good for rice, wheat.",
	},
	SoilSandy: {
		MoistureMin:     25,
		MoistureMax:     45,
		Characteristics: "Light soil, drains quickly, needs frequent irrigation. Good for root vegetables, groundnut.",
	},
	SoilLoamy: {
		MoistureMin:     40,
		MoistureMax:     60,
		Characteristics: "Ideal balanced soil, good drainage and water retention. Suitable for most crops.",
	},
	SoilSilty: {
		MoistureMin:     40,
		MoistureMax:     60,
		Characteristics: "Fertile soil, retains moisture well. Good for vegetables and fruits.",
	},
	SoilPeaty: {
		MoistureMin:     50,
		MoistureMax:     70,
		Characteristics: "Acidic, rich in organic matter. Needs liming. Good for root crops.",
	},
	SoilChalky: {
		MoistureMin:     35,
		MoistureMax:     55,
		Characteristics: "Alkaline soil, free-draining. May need iron supplements. Good for brassicas.",
	},
}

var unknownSoilProfile = SoilProfile{
	MoistureMin:     40,
	MoistureMax:     60,
	Characteristics: "General purpose soil",
}

// SoilProfileFor falls back to a loamy-equivalent band for unknown soil.
func SoilProfileFor(soil SoilType) SoilProfile {
	if profile, ok := SoilMoistureRanges[soil]; ok {
		return profile
	}
	return unknownSoilProfile
}

type MoistureLevel string

const (
	MoistureLow     MoistureLevel = "LOW"
	MoistureOptimal MoistureLevel = "OPTIMAL"
	MoistureHigh    MoistureLevel = "HIGH"
	MoistureUnknown MoistureLevel = "UNKNOWN"
)

// MoistureStatus places a reading against the soil's optimal band. The band
// is inclusive at both ends.
func MoistureStatus(moisture *float64, soil SoilType) MoistureLevel {
	moisture = Finite(moisture)
	if moisture == nil {
		return MoistureUnknown
	}
	profile := SoilProfileFor(soil)
	switch {
	case *moisture < profile.MoistureMin:
		return MoistureLow
	case *moisture > profile.MoistureMax:
		return MoistureHigh
	default:
		return MoistureOptimal
	}
}
