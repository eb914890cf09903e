package farmctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agrisense/farm-advisor/internal/agronomy"
	"github.com/agrisense/farm-advisor/internal/store"
)

// Source is the read side the aggregator needs. Every list is newest first.
type Source interface {
	GetFarm(ctx context.Context, id string) (store.Farm, error)
	ListInsights(ctx context.Context, farmID string, limit int) ([]store.Insight, error)
	ListSensorReadings(ctx context.Context, farmID string, limit int) ([]store.SensorReading, error)
	ListIrrigationLogs(ctx context.Context, farmID string, limit int) ([]store.IrrigationLog, error)
}

var FetchLimits = struct {
	Insights       int
	SensorReadings int
	Irrigation     int
}{
	Insights:       100,
	SensorReadings: 50,
	Irrigation:     20,
}

// RecentLimits bounds the historical slices carried on the context.
var RecentLimits = struct {
	Insights       int
	SensorReadings int
	Irrigation     int
}{
	Insights:       20,
	SensorReadings: 10,
	Irrigation:     5,
}

type Aggregator struct {
	Source Source
	Clock  func() time.Time
	Logger *slog.Logger
	// Analyze scores the reconciled reading. Nil uses DefaultAnalysis.
	Analyze func(reading *agronomy.Reading, crop CropInfo, soil SoilInfo) Analysis
}

// Build never fails: upstream errors degrade individual fields and a panic
// anywhere in assembly yields Empty.
func (a *Aggregator) Build(ctx context.Context, farmID string) (fc *FarmContext) {
	now := a.now()
	logger := a.logger().With("farm_id", farmID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("farm context assembly panicked", "panic", fmt.Sprint(r))
			fc = Empty(farmID, now)
		}
	}()

	var (
		farm       *store.Farm
		insights   []store.Insight
		sensors    []store.SensorReading
		irrigation []store.IrrigationLog
	)
	var group errgroup.Group
	group.Go(func() error {
		record, err := a.Source.GetFarm(ctx, farmID)
		switch {
		case errors.Is(err, store.ErrFarmNotFound):
			logger.Debug("farm metadata not found")
		case err != nil:
			logger.Warn("farm metadata fetch failed", "error", err)
		default:
			farm = &record
		}
		return nil
	})
	group.Go(func() error {
		rows, err := a.Source.ListInsights(ctx, farmID, FetchLimits.Insights)
		if err != nil {
			logger.Warn("insight fetch failed", "error", err)
			return nil
		}
		insights = rows
		return nil
	})
	group.Go(func() error {
		rows, err := a.Source.ListSensorReadings(ctx, farmID, FetchLimits.SensorReadings)
		if err != nil {
			logger.Warn("sensor reading fetch failed", "error", err)
			return nil
		}
		sensors = rows
		return nil
	})
	group.Go(func() error {
		rows, err := a.Source.ListIrrigationLogs(ctx, farmID, FetchLimits.Irrigation)
		if err != nil {
			logger.Warn("irrigation log fetch failed", "error", err)
			return nil
		}
		irrigation = rows
		return nil
	})
	_ = group.Wait()

	return a.assemble(farmID, now, farm, insights, sensors, irrigation)
}

func (a *Aggregator) assemble(
	farmID string,
	now time.Time,
	farm *store.Farm,
	insights []store.Insight,
	sensors []store.SensorReading,
	irrigation []store.IrrigationLog,
) *FarmContext {
	fc := Empty(farmID, now)
	if insights == nil {
		insights = []store.Insight{}
	}
	if sensors == nil {
		sensors = []store.SensorReading{}
	}
	if irrigation == nil {
		irrigation = []store.IrrigationLog{}
	}

	var latest *store.Insight
	if len(insights) > 0 {
		latest = &insights[0]
	}

	if farm != nil {
		if farm.Name != "" {
			fc.FarmName = farm.Name
		}
		if farm.Address != "" {
			fc.FarmLocation = farm.Address
		}
		fc.FarmAreaAcres = agronomy.Finite(farm.AreaAcres)
		if farm.IrrigationType != "" {
			fc.IrrigationType = farm.IrrigationType
		}
	}
	fc.Crop = cropInfo(farm, latest, now)
	fc.Soil = soilInfo(farm)

	fc.Conditions = reconcile(latest, sensors)
	fc.Conditions.CropStage = fc.Crop.GrowthStage

	fc.Trends = Trends{
		Moisture:    agronomy.EstimateTrend(series(insights, func(i store.Insight) *float64 { return i.SoilMoisture })),
		Temperature: agronomy.EstimateTrend(series(insights, func(i store.Insight) *float64 { return i.Temperature })),
		Humidity:    agronomy.EstimateTrend(series(insights, func(i store.Insight) *float64 { return i.Humidity })),
	}

	hasReadings := len(insights) > 0 || len(sensors) > 0
	if hasReadings {
		fc.Analysis = a.runAnalysis(fc.Conditions.Reading(), fc.Crop, fc.Soil)
	} else {
		fc.Analysis = NoDataAnalysis()
	}
	fc.Statistics = statistics(insights)
	if hasReadings {
		fc.Alerts = buildAlerts(fc.Conditions, fc.Analysis, fc.Crop)
	}

	fc.Recent = Recent{
		Insights:       insights[:min(len(insights), RecentLimits.Insights)],
		SensorReadings: sensors[:min(len(sensors), RecentLimits.SensorReadings)],
		Irrigation:     irrigation[:min(len(irrigation), RecentLimits.Irrigation)],
	}
	return fc
}

func (a *Aggregator) runAnalysis(reading *agronomy.Reading, crop CropInfo, soil SoilInfo) (out Analysis) {
	defer func() {
		if r := recover(); r != nil {
			a.logger().Error("farm analysis panicked", "panic", fmt.Sprint(r))
			out = FailedAnalysis()
		}
	}()
	analyze := a.Analyze
	if analyze == nil {
		analyze = DefaultAnalysis
	}
	return analyze(reading, crop, soil)
}

// DefaultAnalysis runs the agronomy rules over one reading.
func DefaultAnalysis(reading *agronomy.Reading, crop CropInfo, soil SoilInfo) Analysis {
	return Analysis{
		HealthScore:              agronomy.HealthScore(reading),
		IrrigationRecommendation: agronomy.IrrigationAdvice(reading, crop.Name, soil.SoilType).Message,
		FertilizerRecommendation: agronomy.FertilizerAdvice(crop.GrowthStage, crop.Name),
		RiskAssessment:           agronomy.AssessRisk(reading),
	}
}

func cropInfo(farm *store.Farm, latest *store.Insight, now time.Time) CropInfo {
	info := CropInfo{GrowthStage: agronomy.StageUnknown, AllCropNames: []string{}}
	var primary *store.Crop
	if farm != nil {
		for i := range farm.Crops {
			if farm.Crops[i].Name != "" {
				info.AllCropNames = append(info.AllCropNames, farm.Crops[i].Name)
			}
		}
		if len(farm.Crops) > 0 {
			primary = &farm.Crops[0]
		}
	}
	if primary != nil {
		info.Name = primary.Name
		info.Variety = primary.Variety
		info.GrowthStage = agronomy.ParseGrowthStage(primary.CurrentStage)
		info.PlantingDate = primary.PlantingDate
		info.HarvestDate = primary.HarvestDate
		info.DaysSincePlanting = daysSince(primary.PlantingDate, now)
	}
	if !info.GrowthStage.Known() && latest != nil {
		info.GrowthStage = agronomy.ParseGrowthStage(latest.CropStage)
	}
	return info
}

// daysSince is nil for a missing or future planting date.
func daysSince(planted *time.Time, now time.Time) *int {
	if planted == nil || planted.IsZero() {
		return nil
	}
	elapsed := now.Sub(*planted)
	if elapsed < 0 {
		return nil
	}
	days := int(elapsed / (24 * time.Hour))
	return &days
}

func soilInfo(farm *store.Farm) SoilInfo {
	soil := agronomy.SoilUnknown
	if farm != nil {
		soil = agronomy.ParseSoilType(farm.SoilType)
	}
	profile := agronomy.SoilProfileFor(soil)
	return SoilInfo{
		SoilType:           soil,
		OptimalMoistureMin: profile.MoistureMin,
		OptimalMoistureMax: profile.MoistureMax,
		Characteristics:    profile.Characteristics,
	}
}

func series(insights []store.Insight, get func(store.Insight) *float64) []*float64 {
	out := make([]*float64, 0, len(insights))
	for _, insight := range insights {
		if value := agronomy.Finite(get(insight)); value != nil {
			out = append(out, value)
		}
	}
	return out
}

func statistics(insights []store.Insight) Statistics {
	stats := Statistics{ReadingsCount: len(insights)}
	stats.AvgMoisture = mean(series(insights, func(i store.Insight) *float64 { return i.SoilMoisture }))
	stats.AvgTemperature = mean(series(insights, func(i store.Insight) *float64 { return i.Temperature }))
	return stats
}

func mean(values []*float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, value := range values {
		sum += *value
	}
	return agronomy.Float(sum / float64(len(values)))
}

func (a *Aggregator) now() time.Time {
	if a.Clock != nil {
		return a.Clock().UTC()
	}
	return time.Now().UTC()
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
