package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agrisense/farm-advisor/internal/alerts"
	"github.com/agrisense/farm-advisor/internal/store"
)

type Store interface {
	CreateInsight(ctx context.Context, insight store.Insight) (store.Insight, error)
	CreateSensorReading(ctx context.Context, reading store.SensorReading) (store.SensorReading, error)
	CreateIrrigationLog(ctx context.Context, entry store.IrrigationLog) (store.IrrigationLog, error)
}

type AlertRaiser interface {
	Raise(ctx context.Context, candidates []store.Alert) ([]store.Alert, error)
}

type Recorder struct {
	store  Store
	alerts AlertRaiser
	logger *slog.Logger
}

// BatchResult counts what a batch stored. Failed records are reported in the
// error returned alongside it.
type BatchResult struct {
	Insights       int `json:"insights"`
	SensorReadings int `json:"sensorReadings"`
	Irrigation     int `json:"irrigation"`
	Alerts         int `json:"alerts"`
}

func NewRecorder(store Store, raiser AlertRaiser, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, alerts: raiser, logger: logger}
}

// RecordInsight stores the insight first. Alert failures are logged and do
// not fail the insight.
func (r *Recorder) RecordInsight(ctx context.Context, payload InsightPayload) (store.Insight, []store.Alert, error) {
	insight, err := r.store.CreateInsight(ctx, payload.Insight())
	if err != nil {
		return store.Insight{}, nil, err
	}
	candidates := alerts.ForInsight(insight)
	if len(candidates) == 0 || r.alerts == nil {
		return insight, nil, nil
	}
	raised, err := r.alerts.Raise(ctx, candidates)
	if err != nil {
		r.logger.Warn("failed to raise insight alerts", "farm_id", insight.FarmID, "insight_id", insight.ID, "error", err)
	}
	return insight, raised, nil
}

func (r *Recorder) RecordSensor(ctx context.Context, payload SensorPayload) (store.SensorReading, error) {
	return r.store.CreateSensorReading(ctx, payload.Reading())
}

func (r *Recorder) RecordIrrigation(ctx context.Context, payload IrrigationPayload) (store.IrrigationLog, error) {
	return r.store.CreateIrrigationLog(ctx, payload.Log())
}

// RecordBatch stores every record it can and joins the failures.
func (r *Recorder) RecordBatch(ctx context.Context, batch Batch) (BatchResult, error) {
	var (
		result BatchResult
		errs   []error
	)
	for i, payload := range batch.Insights {
		_, raised, err := r.RecordInsight(ctx, payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("insight %d: %w", i, err))
			continue
		}
		result.Insights++
		result.Alerts += len(raised)
	}
	for i, payload := range batch.SensorReadings {
		if _, err := r.RecordSensor(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("sensor reading %d: %w", i, err))
			continue
		}
		result.SensorReadings++
	}
	for i, payload := range batch.Irrigation {
		if _, err := r.RecordIrrigation(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("irrigation %d: %w", i, err))
			continue
		}
		result.Irrigation++
	}
	return result, errors.Join(errs...)
}
