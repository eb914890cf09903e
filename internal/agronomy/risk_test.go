package agronomy

import "testing"

func TestAssessRiskMissingInputsAreLow(t *testing.T) {
	if got := AssessRisk(nil); got != LowRisk() {
		t.Fatalf("expected all LOW, got %+v", got)
	}
	got := AssessRisk(&Reading{Humidity: ptr(85)})
	if got.FungalDisease != RiskMedium {
		t.Fatalf("expected MEDIUM fungal risk without temperature, got %q", got.FungalDisease)
	}
	if got.Drought != RiskLow || got.HeatStress != RiskLow {
		t.Fatalf("expected LOW drought and heat, got %+v", got)
	}
}

func TestAssessRiskAxes(t *testing.T) {
	cases := []struct {
		name    string
		reading Reading
		want    RiskAssessment
	}{
		{
			name:    "dry and hot",
			reading: Reading{SoilMoisture: ptr(15), Temperature: ptr(37), Humidity: ptr(40)},
			want:    RiskAssessment{Drought: RiskHigh, HeatStress: RiskHigh, FungalDisease: RiskLow},
		},
		{
			name:    "moderate",
			reading: Reading{SoilMoisture: ptr(25), Temperature: ptr(32), Humidity: ptr(75)},
			want:    RiskAssessment{Drought: RiskMedium, HeatStress: RiskMedium, FungalDisease: RiskMedium},
		},
		{
			name:    "warm and humid",
			reading: Reading{SoilMoisture: ptr(50), Temperature: ptr(25), Humidity: ptr(85)},
			want:    RiskAssessment{Drought: RiskLow, HeatStress: RiskLow, FungalDisease: RiskHigh},
		},
		{
			name:    "humid but cool",
			reading: Reading{SoilMoisture: ptr(50), Temperature: ptr(20), Humidity: ptr(85)},
			want:    RiskAssessment{Drought: RiskLow, HeatStress: RiskLow, FungalDisease: RiskMedium},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AssessRisk(&tc.reading); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}
