package agronomy

import "testing"

func TestSoilMoistureRangesAreOrdered(t *testing.T) {
	for soil, profile := range SoilMoistureRanges {
		if profile.MoistureMin >= profile.MoistureMax {
			t.Fatalf("%s: min %.0f must be below max %.0f", soil, profile.MoistureMin, profile.MoistureMax)
		}
		if profile.Characteristics == "" {
			t.Fatalf("%s: missing characteristics", soil)
		}
	}
}

func TestSandySoilAtThirtyFiveIsOptimal(t *testing.T) {
	profile := SoilProfileFor(ParseSoilType("Sandy"))
	if profile.MoistureMin != 25 || profile.MoistureMax != 45 {
		t.Fatalf("expected [25,45], got [%.0f,%.0f]", profile.MoistureMin, profile.MoistureMax)
	}
	if got := MoistureStatus(ptr(35), SoilSandy); got != MoistureOptimal {
		t.Fatalf("expected optimal, got %q", got)
	}
}

func TestUnknownSoilUsesLoamyBand(t *testing.T) {
	soil := ParseSoilType("volcanic")
	if soil != SoilUnknown {
		t.Fatalf("expected unknown soil, got %q", soil)
	}
	profile := SoilProfileFor(soil)
	if profile.MoistureMin != 40 || profile.MoistureMax != 60 {
		t.Fatalf("expected [40,60], got [%.0f,%.0f]", profile.MoistureMin, profile.MoistureMax)
	}
	if got := MoistureStatus(ptr(39), soil); got != MoistureLow {
		t.Fatalf("expected low, got %q", got)
	}
	if got := MoistureStatus(ptr(61), soil); got != MoistureHigh {
		t.Fatalf("expected high, got %q", got)
	}
	if got := MoistureStatus(nil, soil); got != MoistureUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
}
