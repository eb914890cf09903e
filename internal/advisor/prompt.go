package advisor

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agrisense/farm-advisor/internal/agronomy"
	"github.com/agrisense/farm-advisor/internal/farmctx"
)

const (
	promptTurns        = 6
	maxTurnBytes       = 600
	maxQuestionBytes   = 1200
	sectionRule        = "═══════════════════════════════════════════"
	promptDateLayout   = "2006-01-02"
	noSensorData       = "No sensor data"
	notEnoughTrendData = "Not enough data"
)

// Turn is one side of a past exchange.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BuildPrompt renders the farm context, recent turns and question into the
// model prompt. Output depends only on its inputs.
func BuildPrompt(fc *farmctx.FarmContext, question, language string, turns []Turn, kb *agronomy.KnowledgeBase) string {
	if fc == nil {
		fc = farmctx.Empty("", time.Time{})
	}
	c := fc.Conditions
	crop := fc.Crop
	soil := fc.Soil
	moistureLevel := agronomy.MoistureStatus(c.SoilMoisture, soil.SoilType)

	var b strings.Builder
	b.WriteString("You are an expert agricultural AI assistant and farmer companion for a smart farming system. ")
	b.WriteString("Your role is to provide personalized, actionable advice based on the farmer's actual farm data. ")
	b.WriteString(LanguageInstruction(language))
	b.WriteString("\n")

	section(&b, "🏡 FARM PROFILE")
	bullet(&b, "Farm Name", orDefault(fc.FarmName, "Unknown"))
	bullet(&b, "Location", orDefault(fc.FarmLocation, farmctx.UnspecifiedLocation))
	bullet(&b, "Farm Size", formatReading(fc.FarmAreaAcres, "%g acres", farmctx.UnspecifiedLocation))
	bullet(&b, "Irrigation System", orDefault(fc.IrrigationType, farmctx.DefaultIrrigation))

	section(&b, "🌱 CROP INFORMATION")
	bullet(&b, "Primary Crop", orDefault(crop.Name, "NOT SET - Ask farmer what they are growing"))
	allCrops := "No crops registered"
	if len(crop.AllCropNames) > 0 {
		allCrops = strings.Join(crop.AllCropNames, ", ")
	}
	bullet(&b, "All Crops", allCrops)
	bullet(&b, "Variety", orDefault(crop.Variety, "Not specified"))
	bullet(&b, "Growth Stage", string(crop.GrowthStage))
	days := "Not recorded"
	if crop.DaysSincePlanting != nil {
		days = fmt.Sprintf("%d days", *crop.DaysSincePlanting)
	}
	bullet(&b, "Days Since Planting", days)
	bullet(&b, "Planting Date", formatDate(crop.PlantingDate, "Not recorded"))
	bullet(&b, "Expected Harvest", formatDate(crop.HarvestDate, "Not set"))

	section(&b, "🪨 SOIL INFORMATION")
	bullet(&b, "Soil Type", string(soil.SoilType))
	bullet(&b, "Soil Characteristics", orDefault(soil.Characteristics, "Not available"))
	bullet(&b, "Optimal Moisture Range", fmt.Sprintf("%g%% - %g%%", soil.OptimalMoistureMin, soil.OptimalMoistureMax))

	section(&b, "📊 REAL-TIME SENSOR DATA")
	bullet(&b, "Soil Moisture", formatReading(c.SoilMoisture, "%.1f%%", noSensorData)+" → Status: "+moistureStatusText(c.SoilMoisture, moistureLevel, soil))
	bullet(&b, "Temperature", formatReading(c.Temperature, "%.1f°C", noSensorData))
	bullet(&b, "Air Humidity", formatReading(c.Humidity, "%.1f%%", noSensorData))
	bullet(&b, "Soil pH", formatReading(c.PH, "%.2f", noSensorData))
	bullet(&b, "Electrical Conductivity", formatReading(c.EC, "%g mS/cm", noSensorData))
	bullet(&b, "Light Intensity", formatReading(c.LightIntensity, "%g lux", noSensorData))
	bullet(&b, "Rainfall", formatReading(c.Rainfall, "%g mm", noSensorData))
	lastReading := "No recent data"
	if c.ObservedAt != nil {
		lastReading = c.ObservedAt.UTC().Format(time.RFC3339)
	}
	bullet(&b, "Last Reading", lastReading)

	section(&b, "📈 TRENDS & ANALYSIS")
	bullet(&b, "Moisture Trend", trendText(fc.Trends.Moisture))
	bullet(&b, "Temperature Trend", trendText(fc.Trends.Temperature))
	bullet(&b, "Humidity Trend", trendText(fc.Trends.Humidity))
	bullet(&b, "Farm Health Score", fmt.Sprintf("%d/100", fc.Analysis.HealthScore))
	bullet(&b, "Irrigation Status", orDefault(fc.Analysis.IrrigationRecommendation, "N/A"))
	bullet(&b, "Fertilizer Advice", orDefault(fc.Analysis.FertilizerRecommendation, "N/A"))
	risk := fc.Analysis.RiskAssessment
	bullet(&b, "Risks", fmt.Sprintf("drought %s, heat stress %s, fungal disease %s", risk.Drought, risk.HeatStress, risk.FungalDisease))

	section(&b, "📉 STATISTICS (Recent Readings)")
	bullet(&b, "Avg Moisture", formatReading(fc.Statistics.AvgMoisture, "%.1f%%", "N/A"))
	bullet(&b, "Avg Temperature", formatReading(fc.Statistics.AvgTemperature, "%.1f°C", "N/A"))
	bullet(&b, "Total Readings", fmt.Sprintf("%d", fc.Statistics.ReadingsCount))

	if knowledge, ok := kb.Lookup(crop.Name); ok {
		section(&b, "📚 "+strings.ToUpper(crop.Name)+" CROP GUIDE")
		for _, line := range knowledge.Lines() {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if len(fc.Alerts) > 0 {
		section(&b, "🚨 ACTIVE ALERTS")
		for _, alert := range fc.Alerts {
			fmt.Fprintf(&b, "• [%s] %s\n", strings.ToUpper(string(alert.Severity)), alert.Message)
		}
	}

	if recent := lastTurns(turns, promptTurns); len(recent) > 0 {
		section(&b, "🗨️ RECENT CONVERSATION")
		for _, turn := range recent {
			speaker := "Farmer"
			if turn.Role == RoleAssistant {
				speaker = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, clip(turn.Content, maxTurnBytes))
		}
	}

	section(&b, "💬 FARMER'S QUESTION")
	fmt.Fprintf(&b, "%q\n", clip(strings.TrimSpace(question), maxQuestionBytes))

	section(&b, "📋 RESPONSE GUIDELINES")
	guidelines := []string{
		"If NO CROP is registered, first ask the farmer what crop they are growing",
		"ALWAYS reference the actual sensor data values when giving advice",
		fmt.Sprintf("Consider the SOIL TYPE (%s) when recommending irrigation/fertilizer", soil.SoilType),
		fmt.Sprintf("Tailor advice to the CURRENT GROWTH STAGE (%s)", crop.GrowthStage),
		"Warn if sensor readings are outside optimal range for the crop",
		"Be specific with quantities, timing, and durations",
		"Use bullet points and bold for key recommendations",
		"If moisture is " + moistureGuideline(moistureLevel),
		"Keep response concise but actionable",
		LanguageInstruction(language),
	}
	for i, line := range guidelines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	b.WriteString("\nRespond now as a helpful farmer companion:")
	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(sectionRule)
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(sectionRule)
	b.WriteString("\n")
}

func bullet(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "• %s: %s\n", label, value)
}

func moistureStatusText(moisture *float64, level agronomy.MoistureLevel, soil farmctx.SoilInfo) string {
	m := agronomy.Finite(moisture)
	if m == nil {
		return "Unknown"
	}
	switch level {
	case agronomy.MoistureLow:
		return fmt.Sprintf("LOW (%.1f%% - below optimal %g%%)", *m, soil.OptimalMoistureMin)
	case agronomy.MoistureHigh:
		return fmt.Sprintf("HIGH (%.1f%% - above optimal %g%%)", *m, soil.OptimalMoistureMax)
	case agronomy.MoistureOptimal:
		return fmt.Sprintf("OPTIMAL (%.1f%%)", *m)
	default:
		return "Unknown"
	}
}

func moistureGuideline(level agronomy.MoistureLevel) string {
	switch level {
	case agronomy.MoistureLow:
		return "LOW - recommend irrigation"
	case agronomy.MoistureHigh:
		return "HIGH - warn about overwatering"
	case agronomy.MoistureOptimal:
		return "in optimal range"
	default:
		return "unknown - ask the farmer to check the soil moisture sensor"
	}
}

func trendText(trend agronomy.Trend) string {
	if trend == "" || trend == agronomy.TrendUnknown {
		return notEnoughTrendData
	}
	return string(trend)
}

func formatDate(value *time.Time, missing string) string {
	if value == nil || value.IsZero() {
		return missing
	}
	return value.UTC().Format(promptDateLayout)
}

func lastTurns(turns []Turn, n int) []Turn {
	out := make([]Turn, 0, n)
	for _, turn := range turns {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		out = append(out, turn)
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// clip cuts s to at most limit bytes on a rune boundary, marking the cut.
func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut]) + "…"
}
