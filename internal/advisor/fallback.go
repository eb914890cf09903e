package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/agrisense/farm-advisor/internal/agronomy"
	"github.com/agrisense/farm-advisor/internal/farmctx"
)

// Field is one "label: value" row in the current readings block.
type Field struct {
	Label string
	Value string
}

// Response is the structured form of every rule-based answer.
type Response struct {
	Title  string
	Reason string
	Action string
	Data   []Field
	Tips   []string
}

// FormatResponse renders title, reason, action, readings and tips in that
// order. Readings and tips are omitted when empty.
func FormatResponse(r Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", r.Title)
	fmt.Fprintf(&b, "📝 %s\n\n", r.Reason)
	fmt.Fprintf(&b, "✅ **Recommended Action:** %s\n\n", r.Action)
	if len(r.Data) > 0 {
		b.WriteString("📈 **Current Readings:**\n")
		for _, field := range r.Data {
			fmt.Fprintf(&b, "• %s: %s\n", field.Label, field.Value)
		}
	}
	if len(r.Tips) > 0 {
		b.WriteString("\n💡 **Tips:**\n")
		for _, tip := range r.Tips {
			fmt.Fprintf(&b, "• %s\n", tip)
		}
	}
	return b.String()
}

type intent string

const (
	intentCrop       intent = "crop"
	intentIrrigation intent = "irrigation"
	intentHealth     intent = "health"
	intentFertilizer intent = "fertilizer"
	intentSummary    intent = "summary"
)

// intentKeywords is checked in order; the first category with a matching
// substring wins.
var intentKeywords = []struct {
	intent   intent
	keywords []string
}{
	{intentCrop, []string{"crop", "plant", "grow"}},
	{intentIrrigation, []string{"irrigat", "water", "moisture"}},
	{intentHealth, []string{"health", "status", "condition", "how"}},
	{intentFertilizer, []string{"fertiliz", "nutrient", "npk"}},
}

func classify(question string) intent {
	lower := strings.ToLower(question)
	for _, entry := range intentKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.intent
			}
		}
	}
	return intentSummary
}

// FallbackResponse answers from the farm context alone, without a model.
func FallbackResponse(fc *farmctx.FarmContext, question string) string {
	if fc == nil {
		fc = farmctx.Empty("", time.Time{})
	}
	switch classify(question) {
	case intentCrop:
		return FormatResponse(cropResponse(fc))
	case intentIrrigation:
		return FormatResponse(irrigationResponse(fc))
	case intentHealth:
		return FormatResponse(healthResponse(fc))
	case intentFertilizer:
		return FormatResponse(fertilizerResponse(fc))
	default:
		return FormatResponse(summaryResponse(fc))
	}
}

func cropResponse(fc *farmctx.FarmContext) Response {
	crop := fc.Crop
	if !crop.Known() {
		farm := fc.FarmName
		if farm == "" || farm == farmctx.UnknownFarmName {
			farm = fc.FarmID
		}
		return Response{
			Title:  "🌱 Crop Information Not Set",
			Reason: "I don't have information about what crop is being grown on your farm.",
			Action: "Please update your farm settings with the crop information, or tell me what crop you're growing.",
			Data:   []Field{{"Farm", farm}},
			Tips: []string{
				"Go to Farm Settings to add your crop details",
				"Include crop name, planting date, and growth stage",
				"This helps me give you crop-specific advice",
			},
		}
	}
	reason := "You are growing " + crop.Name
	if crop.Variety != "" {
		reason += " (" + crop.Variety + ")"
	}
	reason += fmt.Sprintf(" currently in %s stage.", crop.GrowthStage)
	days := "Not specified"
	if crop.DaysSincePlanting != nil {
		days = fmt.Sprintf("%d days", *crop.DaysSincePlanting)
	}
	return Response{
		Title:  "🌱 Your Crop: " + crop.Name,
		Reason: reason,
		Action: agronomy.StageAdvisory(crop.GrowthStage),
		Data: []Field{
			{"Crop", crop.Name},
			{"Variety", orDefault(crop.Variety, "Not specified")},
			{"Stage", string(crop.GrowthStage)},
			{"Days Since Planting", days},
		},
	}
}

func irrigationResponse(fc *farmctx.FarmContext) Response {
	moisture := agronomy.Finite(fc.Conditions.SoilMoisture)
	if moisture == nil {
		return Response{
			Title:  "⚠️ No Sensor Data Available",
			Reason: "I cannot find recent sensor readings for your farm.",
			Action: "Please check if your sensors are connected and transmitting data.",
			Data:   []Field{{"Farm ID", fc.FarmID}},
		}
	}
	crop := fc.Crop
	m := *moisture
	optMin, optMax := fc.Soil.OptimalMoistureMin, fc.Soil.OptimalMoistureMax
	optimal := fmt.Sprintf("%g-%g%%", optMin, optMax)
	advice := agronomy.IrrigationAdvice(fc.Conditions.Reading(), crop.Name, fc.Soil.SoilType)

	var title, reason, action string
	switch {
	case advice.Urgency == agronomy.IrrigationImmediate:
		title = "🚨 URGENT: Immediate Irrigation Required!"
		reason = fmt.Sprintf("Soil moisture is critically low at %.1f%%.", m)
		if crop.Known() {
			reason += fmt.Sprintf(" Your %s is at risk of water stress.", crop.Name)
		}
		action = advice.Message + " Irrigate for 30-45 minutes."
	case advice.Urgency == agronomy.IrrigationWithinHours || advice.Urgency == agronomy.IrrigationWithinDay:
		title = "💧 Yes, Irrigation Recommended"
		reason = fmt.Sprintf("Soil moisture (%.1f%%) is low; the optimal range is %s.", m, optimal)
		if crop.Known() {
			reason += fmt.Sprintf(" %s in %s stage needs adequate water.", crop.Name, crop.GrowthStage)
		}
		action = advice.Message
	case m < optMin:
		title = "💧 Yes, Irrigation Recommended"
		reason = fmt.Sprintf("Soil moisture (%.1f%%) is below optimal range (%s).", m, optimal)
		if crop.Known() {
			reason += fmt.Sprintf(" %s in %s stage needs adequate water.", crop.Name, crop.GrowthStage)
		}
		action = "Plan irrigation within the next 4-6 hours."
	case m > optMax:
		title = "✋ No Irrigation Needed - Soil is Wet"
		reason = fmt.Sprintf("Soil moisture (%.1f%%) is above optimal.", m)
		if crop.Known() {
			reason += fmt.Sprintf(" Risk of root issues for %s.", crop.Name)
		}
		action = "Skip irrigation for 24-48 hours."
	default:
		title = "✅ Soil Moisture is Optimal"
		reason = fmt.Sprintf("Current moisture at %.1f%% is within ideal range (%s).", m, optimal)
		action = "No immediate irrigation needed."
	}

	return Response{
		Title:  title,
		Reason: reason,
		Action: action,
		Data: []Field{
			{"Soil Moisture", fmt.Sprintf("%.1f%%", m)},
			{"Optimal Range", optimal},
			{"Temperature", formatReading(fc.Conditions.Temperature, "%.1f°C", "N/A")},
			{"Crop", cropLabel(crop, false)},
			{"Trend", string(fc.Trends.Moisture)},
		},
	}
}

var healthTitles = map[agronomy.Tier]string{
	agronomy.TierExcellent: "🌟 Excellent Farm Health: %d/100",
	agronomy.TierGood:      "👍 Good Farm Health: %d/100",
	agronomy.TierFair:      "⚠️ Fair Farm Health: %d/100",
	agronomy.TierPoor:      "🚨 Poor Farm Health: %d/100",
}

func healthResponse(fc *farmctx.FarmContext) Response {
	score := fc.Analysis.HealthScore
	cropValue := "Not specified"
	if fc.Crop.Known() {
		cropValue = fmt.Sprintf("%s (%s)", fc.Crop.Name, fc.Crop.GrowthStage)
	}
	return Response{
		Title:  fmt.Sprintf(healthTitles[agronomy.HealthTier(score)], score),
		Reason: healthExplanation(score, fc.Conditions, fc.Crop),
		Action: orDefault(fc.Analysis.IrrigationRecommendation, "Continue monitoring."),
		Data: []Field{
			{"Health Score", fmt.Sprintf("%d/100", score)},
			{"Crop", cropValue},
			{"Soil Moisture", formatReading(fc.Conditions.SoilMoisture, "%.1f%%", farmctx.NoDataText)},
			{"Temperature", formatReading(fc.Conditions.Temperature, "%.1f°C", farmctx.NoDataText)},
			{"Humidity", formatReading(fc.Conditions.Humidity, "%.1f%%", farmctx.NoDataText)},
		},
	}
}

// healthExplanation names the readings outside their comfortable band.
func healthExplanation(score int, c farmctx.Conditions, crop farmctx.CropInfo) string {
	var issues []string
	if m := agronomy.Finite(c.SoilMoisture); m != nil {
		switch {
		case *m < 25:
			issues = append(issues, "low soil moisture")
		case *m > 65:
			issues = append(issues, "high soil moisture")
		}
	}
	if t := agronomy.Finite(c.Temperature); t != nil {
		switch {
		case *t > 35:
			issues = append(issues, "high temperature")
		case *t < 15:
			issues = append(issues, "low temperature")
		}
	}
	if ph := agronomy.Finite(c.PH); ph != nil {
		switch {
		case *ph < 6.0:
			issues = append(issues, "acidic soil")
		case *ph > 7.5:
			issues = append(issues, "alkaline soil")
		}
	}
	cropNote := ""
	if crop.Known() {
		cropNote = " for " + crop.Name
	}
	listed := strings.Join(issues, ", ")

	switch agronomy.HealthTier(score) {
	case agronomy.TierExcellent:
		return fmt.Sprintf("Excellent conditions%s! All parameters optimal.", cropNote)
	case agronomy.TierGood:
		if listed == "" {
			return fmt.Sprintf("Good conditions%s.", cropNote)
		}
		return fmt.Sprintf("Good conditions%s. Minor concerns: %s.", cropNote, listed)
	case agronomy.TierFair:
		if listed == "" {
			return fmt.Sprintf("Some stress factors%s.", cropNote)
		}
		return fmt.Sprintf("Some stress factors%s: %s.", cropNote, listed)
	default:
		if listed == "" {
			return fmt.Sprintf("Multiple issues%s. Immediate action needed.", cropNote)
		}
		return fmt.Sprintf("Multiple issues%s: %s. Immediate action needed.", cropNote, listed)
	}
}

func fertilizerResponse(fc *farmctx.FarmContext) Response {
	crop := fc.Crop
	reason := "Crop not specified"
	action := "Please specify your crop for detailed fertilizer recommendations."
	if crop.Known() {
		reason = fmt.Sprintf("Based on %s in %s stage", crop.Name, crop.GrowthStage)
		action = agronomy.FertilizerAdvice(crop.GrowthStage, crop.Name)
	}
	return Response{
		Title:  "🧪 Fertilizer Recommendation",
		Reason: reason,
		Action: action,
		Data: []Field{
			{"Crop", cropLabel(crop, false)},
			{"Stage", string(crop.GrowthStage)},
			{"EC Level", formatReading(fc.Conditions.EC, "%g mS/cm", "N/A")},
			{"pH Level", formatReading(fc.Conditions.PH, "%.2f", "N/A")},
		},
	}
}

func summaryResponse(fc *farmctx.FarmContext) Response {
	crop := fc.Crop
	reason := "Crop not specified - add crop details for better advice."
	tips := []string{
		"Add your crop details in Farm Settings for personalized advice",
		`Ask "Should I irrigate today?" for watering advice`,
	}
	if crop.Known() {
		reason = fmt.Sprintf("Growing %s (%s stage)", crop.Name, crop.GrowthStage)
		tips = []string{
			fmt.Sprintf("Ask \"Should I irrigate my %s?\" for watering advice", crop.Name),
			fmt.Sprintf("Ask \"What fertilizer for %s?\" for nutrient recommendations", crop.Name),
		}
	}
	return Response{
		Title:  "📊 Your Farm Summary",
		Reason: reason,
		Action: orDefault(fc.Analysis.IrrigationRecommendation, "Continue monitoring."),
		Data: []Field{
			{"Farm", orDefault(fc.FarmName, farmctx.UnknownFarmName)},
			{"Crop", cropLabel(crop, true)},
			{"Stage", string(crop.GrowthStage)},
			{"Health Score", fmt.Sprintf("%d/100", fc.Analysis.HealthScore)},
			{"Soil Moisture", formatReading(fc.Conditions.SoilMoisture, "%.1f%%", farmctx.NoDataText)},
			{"Temperature", formatReading(fc.Conditions.Temperature, "%.1f°C", farmctx.NoDataText)},
		},
		Tips: tips,
	}
}

func cropLabel(crop farmctx.CropInfo, withVariety bool) string {
	if !crop.Known() {
		return "Not specified"
	}
	if withVariety && crop.Variety != "" {
		return fmt.Sprintf("%s (%s)", crop.Name, crop.Variety)
	}
	return crop.Name
}

// formatReading renders a nullable value, never leaking NaN or Inf.
func formatReading(value *float64, format, missing string) string {
	if v := agronomy.Finite(value); v != nil {
		return fmt.Sprintf(format, *v)
	}
	return missing
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
