// Package scheduler runs the periodic alert sweep over every farm.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/agrisense/farm-advisor/internal/alerts"
	"github.com/agrisense/farm-advisor/internal/farmctx"
	"github.com/agrisense/farm-advisor/internal/heartbeat"
	"github.com/agrisense/farm-advisor/internal/store"
)

const (
	component          = "alert-sweep"
	defaultConcurrency = 4
	farmSweepTimeout   = 30 * time.Second
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type FarmLister interface {
	ListFarmIDs(ctx context.Context) ([]string, error)
}

type ContextBuilder interface {
	Build(ctx context.Context, farmID string) *farmctx.FarmContext
}

type AlertRaiser interface {
	Raise(ctx context.Context, candidates []store.Alert) ([]store.Alert, error)
}

type SweepResult struct {
	Farms   int
	Skipped int
	Alerts  int
}

type Service struct {
	farms       FarmLister
	contexts    ContextBuilder
	alerts      AlertRaiser
	schedule    cron.Schedule
	expr        string
	logger      *slog.Logger
	reporter    heartbeat.Reporter
	concurrency int
	now         func() time.Time
}

// New parses the sweep schedule up front so a bad expression fails at boot.
func New(farms FarmLister, contexts ContextBuilder, raiser AlertRaiser, expr string, logger *slog.Logger) (*Service, error) {
	expr = strings.TrimSpace(expr)
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse alert sweep schedule %q: %w", expr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		farms:       farms,
		contexts:    contexts,
		alerts:      raiser,
		schedule:    schedule,
		expr:        expr,
		logger:      logger.With("component", component),
		concurrency: defaultConcurrency,
		now:         time.Now,
	}, nil
}

func (s *Service) SetHeartbeatReporter(reporter heartbeat.Reporter) {
	s.reporter = reporter
}

func (s *Service) Start(ctx context.Context) error {
	if s.farms == nil || s.contexts == nil || s.alerts == nil {
		s.report(func(r heartbeat.Reporter) { r.Disabled(component, "dependencies missing") })
		<-ctx.Done()
		return nil
	}
	s.report(func(r heartbeat.Reporter) { r.Starting(component, "scheduled "+s.expr) })
	s.logger.Info("alert sweep started", "schedule", s.expr)
	for {
		next := s.schedule.Next(s.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.report(func(r heartbeat.Reporter) { r.Stopped(component, "stopped") })
			s.logger.Info("alert sweep stopped")
			return nil
		case <-timer.C:
		}
		result, err := s.Sweep(ctx)
		if err != nil {
			s.report(func(r heartbeat.Reporter) { r.Degrade(component, "sweep failed", err) })
			s.logger.Error("alert sweep failed", "error", err, "farms", result.Farms, "alerts", result.Alerts)
			continue
		}
		s.report(func(r heartbeat.Reporter) {
			r.Beat(component, fmt.Sprintf("swept %d farms, raised %d alerts", result.Farms, result.Alerts))
		})
		s.logger.Info("alert sweep completed", "farms", result.Farms, "skipped", result.Skipped, "alerts", result.Alerts)
	}
}

// Sweep builds every farm's context and raises the threshold alerts that are
// not already open. Farms without readings are skipped.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	farmIDs, err := s.farms.ListFarmIDs(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list farms: %w", err)
	}

	var (
		mu     sync.Mutex
		result SweepResult
		errs   []error
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, farmID := range farmIDs {
		group.Go(func() error {
			farmCtx, cancel := context.WithTimeout(groupCtx, farmSweepTimeout)
			defer cancel()
			fc := s.contexts.Build(farmCtx, farmID)
			if !fc.HasReadings() {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}
			raised, err := s.alerts.Raise(farmCtx, alerts.ForContext(fc))
			mu.Lock()
			defer mu.Unlock()
			result.Farms++
			result.Alerts += len(raised)
			if err != nil {
				errs = append(errs, fmt.Errorf("farm %s: %w", farmID, err))
			}
			return nil
		})
	}
	_ = group.Wait()
	return result, errors.Join(errs...)
}

func (s *Service) report(fn func(heartbeat.Reporter)) {
	if s.reporter != nil {
		fn(s.reporter)
	}
}
