package advisor

import (
	"strings"
	"testing"
	"time"

	"github.com/agrisense/farm-advisor/internal/agronomy"
	"github.com/agrisense/farm-advisor/internal/farmctx"
)

func ptr(v float64) *float64 { return &v }

func tomatoContext() *farmctx.FarmContext {
	fc := farmctx.Empty("farm_1", time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	fc.FarmName = "Green Acres"
	days := 42
	fc.Crop = farmctx.CropInfo{
		Name:              "Tomato",
		Variety:           "Arka Rakshak",
		GrowthStage:       agronomy.StageFlowering,
		DaysSincePlanting: &days,
		AllCropNames:      []string{"Tomato"},
	}
	profile := agronomy.SoilProfileFor(agronomy.SoilLoamy)
	fc.Soil = farmctx.SoilInfo{
		SoilType:           agronomy.SoilLoamy,
		OptimalMoistureMin: profile.MoistureMin,
		OptimalMoistureMax: profile.MoistureMax,
		Characteristics:    profile.Characteristics,
	}
	fc.Conditions.SoilMoisture = ptr(45)
	fc.Conditions.Temperature = ptr(27.5)
	fc.Conditions.Humidity = ptr(60)
	fc.Conditions.PH = ptr(6.5)
	fc.Trends.Moisture = agronomy.TrendStable
	fc.Analysis = farmctx.DefaultAnalysis(fc.Conditions.Reading(), fc.Crop, fc.Soil)
	return fc
}

func TestFormatResponseLayout(t *testing.T) {
	got := FormatResponse(Response{
		Title:  "Title",
		Reason: "Because",
		Action: "Do it",
		Data:   []Field{{"B", "2"}, {"A", "1"}},
		Tips:   []string{"tip one"},
	})
	want := "**Title**\n\n📝 Because\n\n✅ **Recommended Action:** Do it\n\n" +
		"📈 **Current Readings:**\n• B: 2\n• A: 1\n" +
		"\n💡 **Tips:**\n• tip one\n"
	if got != want {
		t.Fatalf("unexpected layout:\n%q\nwant:\n%q", got, want)
	}

	bare := FormatResponse(Response{Title: "T", Reason: "R", Action: "A"})
	if bare != "**T**\n\n📝 R\n\n✅ **Recommended Action:** A\n\n" {
		t.Fatalf("expected readings and tips omitted, got %q", bare)
	}
}

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		question string
		want     intent
	}{
		{"What crop is best?", intentCrop},
		{"Should I water my plants?", intentCrop},
		{"Should I water today? How is farm health?", intentIrrigation},
		{"IRRIGATION schedule please", intentIrrigation},
		{"How is the farm doing", intentHealth},
		{"What is the status", intentHealth},
		{"Which NPK fertilizer?", intentFertilizer},
		{"Tell me about nutrients", intentFertilizer},
		{"Hello there", intentSummary},
	}
	for _, tc := range cases {
		if got := classify(tc.question); got != tc.want {
			t.Fatalf("classify(%q) = %s, want %s", tc.question, got, tc.want)
		}
	}
}

func TestFallbackWaterAndHealthResolvesToIrrigation(t *testing.T) {
	got := FallbackResponse(tomatoContext(), "Is the water level affecting health?")
	if !strings.HasPrefix(got, "**✅ Soil Moisture is Optimal**") {
		t.Fatalf("expected irrigation branch, got %q", got)
	}
}

func TestFallbackIrrigationBranches(t *testing.T) {
	cases := []struct {
		name       string
		moisture   *float64
		temp       float64
		wantTitle  string
		wantAction string
	}{
		{"critical", ptr(12), 25, "🚨 URGENT: Immediate Irrigation Required!", "immediately"},
		{"heat compounded", ptr(22), 33, "💧 Yes, Irrigation Recommended", "2-4 hours"},
		{"below soil optimum", ptr(32), 25, "💧 Yes, Irrigation Recommended", "4-6 hours"},
		{"wet", ptr(75), 25, "✋ No Irrigation Needed - Soil is Wet", "24-48 hours"},
		{"optimal", ptr(50), 25, "✅ Soil Moisture is Optimal", "No immediate irrigation needed."},
		{"no data", nil, 25, "⚠️ No Sensor Data Available", "sensors are connected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := tomatoContext()
			fc.Conditions.SoilMoisture = tc.moisture
			fc.Conditions.Temperature = ptr(tc.temp)
			got := FallbackResponse(fc, "should I irrigate?")
			if !strings.HasPrefix(got, "**"+tc.wantTitle+"**") {
				t.Fatalf("expected title %q, got %q", tc.wantTitle, got)
			}
			if !strings.Contains(got, tc.wantAction) {
				t.Fatalf("expected action containing %q, got %q", tc.wantAction, got)
			}
		})
	}
}

func TestFallbackCropBranch(t *testing.T) {
	got := FallbackResponse(tomatoContext(), "what am I growing")
	for _, want := range []string{
		"**🌱 Your Crop: Tomato**",
		"You are growing Tomato (Arka Rakshak) currently in flowering stage.",
		agronomy.StageAdvisory(agronomy.StageFlowering),
		"• Days Since Planting: 42 days",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}

	fc := tomatoContext()
	fc.Crop = farmctx.CropInfo{GrowthStage: agronomy.StageUnknown}
	got = FallbackResponse(fc, "which crop")
	if !strings.HasPrefix(got, "**🌱 Crop Information Not Set**") {
		t.Fatalf("expected crop-not-set branch, got %q", got)
	}
	if !strings.Contains(got, "• Farm: Green Acres") || strings.Count(got, "\n• ") != 4 {
		t.Fatalf("expected farm row and three tips, got %q", got)
	}
}

func TestFallbackHealthBranch(t *testing.T) {
	fc := tomatoContext()
	fc.Conditions.SoilMoisture = ptr(18)
	fc.Conditions.Temperature = ptr(37)
	fc.Analysis.HealthScore = 45
	got := FallbackResponse(fc, "How is my farm?")
	if !strings.HasPrefix(got, "**⚠️ Fair Farm Health: 45/100**") {
		t.Fatalf("expected fair title, got %q", got)
	}
	if !strings.Contains(got, "Some stress factors for Tomato: low soil moisture, high temperature.") {
		t.Fatalf("expected explanation, got %q", got)
	}
	if !strings.Contains(got, "• Crop: Tomato (flowering)") {
		t.Fatalf("expected crop row, got %q", got)
	}
}

func TestHealthExplanationTiers(t *testing.T) {
	crop := farmctx.CropInfo{Name: "Rice"}
	cond := farmctx.Conditions{SoilMoisture: ptr(70), PH: ptr(8.1)}
	cases := map[int]string{
		90: "Excellent conditions for Rice! All parameters optimal.",
		65: "Good conditions for Rice. Minor concerns: high soil moisture, alkaline soil.",
		10: "Multiple issues for Rice: high soil moisture, alkaline soil. Immediate action needed.",
	}
	for score, want := range cases {
		if got := healthExplanation(score, cond, crop); got != want {
			t.Fatalf("score %d: got %q, want %q", score, got, want)
		}
	}
	if got := healthExplanation(70, farmctx.Conditions{}, farmctx.CropInfo{}); got != "Good conditions." {
		t.Fatalf("unexpected explanation without data: %q", got)
	}
}

func TestFallbackFertilizerBranch(t *testing.T) {
	fc := tomatoContext()
	fc.Conditions.EC = ptr(1.4)
	got := FallbackResponse(fc, "Which fertilizer now?")
	if !strings.Contains(got, agronomy.FertilizerAdvice(agronomy.StageFlowering, "Tomato")) {
		t.Fatalf("expected stage advice, got %q", got)
	}
	if !strings.Contains(got, "• EC Level: 1.4 mS/cm") || !strings.Contains(got, "• pH Level: 6.50") {
		t.Fatalf("expected EC and pH rows, got %q", got)
	}
}

func TestFallbackSummaryTips(t *testing.T) {
	got := FallbackResponse(tomatoContext(), "hello")
	if !strings.Contains(got, `• Ask "Should I irrigate my Tomato?" for watering advice`) {
		t.Fatalf("expected crop-aware tip, got %q", got)
	}
	if !strings.Contains(got, "• Crop: Tomato (Arka Rakshak)") {
		t.Fatalf("expected crop with variety, got %q", got)
	}

	empty := FallbackResponse(farmctx.Empty("farm_2", time.Time{}), "hello")
	for _, want := range []string{
		"Crop not specified - add crop details for better advice.",
		"• Health Score: 0/100",
		"• Soil Moisture: No data",
		"• Add your crop details in Farm Settings for personalized advice",
	} {
		if !strings.Contains(empty, want) {
			t.Fatalf("expected %q in %q", want, empty)
		}
	}
}

func TestFallbackNeverLeaksNaN(t *testing.T) {
	fc := tomatoContext()
	nan := 0.0
	nan = nan / nan
	fc.Conditions.Temperature = &nan
	for _, question := range []string{"water?", "health?", "fertilizer?", "hi"} {
		if got := FallbackResponse(fc, question); strings.Contains(got, "NaN") {
			t.Fatalf("NaN leaked for %q: %q", question, got)
		}
	}
}
