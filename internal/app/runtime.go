package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrisense/farm-advisor/internal/alerts"
	"github.com/agrisense/farm-advisor/internal/config"
	"github.com/agrisense/farm-advisor/internal/heartbeat"
	"github.com/agrisense/farm-advisor/internal/httpapi"
	"github.com/agrisense/farm-advisor/internal/ingest"
	"github.com/agrisense/farm-advisor/internal/mcpserver"
	"github.com/agrisense/farm-advisor/internal/scheduler"
	"github.com/agrisense/farm-advisor/internal/telemetry"
)

type Runtime struct {
	cfg              config.Config
	logger           *slog.Logger
	core             *Core
	httpServer       *http.Server
	inbox            *ingest.Inbox
	sweep            *scheduler.Service
	heartbeat        *heartbeat.Registry
	heartbeatMonitor *heartbeat.Monitor
}

type heartbeatAware interface {
	SetHeartbeatReporter(reporter heartbeat.Reporter)
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := heartbeat.NewRegistry()
	registry.Starting("runtime", "booting")
	staleAfter := time.Duration(cfg.HeartbeatStaleSec) * time.Second
	core.Metrics.MustRegister(heartbeat.NewCollector(registry, staleAfter.Seconds()))
	if core.Advisor.ModelConfigured() {
		registry.Beat("llm", cfg.LLMProvider+" "+cfg.LLMModel)
	} else {
		registry.Disabled("llm", "no model configured, using rule-based fallback")
	}

	hub := alerts.NewHub(logger.With("component", "alerts"))
	raiser := alerts.NewRaiser(core.Store, hub, logger.With("component", "alerts"))
	recorder := telemetry.NewRecorder(core.Store, raiser, logger.With("component", "telemetry"))

	inbox := ingest.New(cfg.InboxDir, recorder, logger)
	reporting := []heartbeatAware{inbox}
	var sweep *scheduler.Service
	if cfg.AlertSweepEnabled {
		sweep, err = scheduler.New(core.Store, core.Contexts, raiser, cfg.AlertSweepCron, logger)
		if err != nil {
			core.Close()
			return nil, err
		}
		reporting = append(reporting, sweep)
	} else {
		registry.Disabled("alert-sweep", "disabled by config")
	}
	for _, component := range reporting {
		component.SetHeartbeatReporter(registry)
	}

	var mcpHandler http.Handler
	if cfg.MCPEnabled {
		mcpHandler = mcpserver.Handler(mcpserver.New(core.Contexts, core.Advisor, Version, logger))
	}
	handler := httpapi.NewRouter(httpapi.Dependencies{
		Config:   cfg,
		Store:    core.Store,
		Advisor:  core.Advisor,
		Contexts: core.Contexts,
		Recorder: recorder,
		Alerts:   hub,
		Metrics:  promhttp.HandlerFor(core.Metrics, promhttp.HandlerOpts{}),
		MCP:      mcpHandler,
		Logger:   logger.With("component", "api"),
	})

	return &Runtime{
		cfg:    cfg,
		logger: logger,
		core:   core,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		inbox:     inbox,
		sweep:     sweep,
		heartbeat: registry,
		heartbeatMonitor: heartbeat.NewMonitor(registry, heartbeat.MonitorConfig{
			Interval:   time.Duration(cfg.HeartbeatIntervalSec) * time.Second,
			StaleAfter: staleAfter,
			Logger:     logger.With("component", "heartbeat"),
		}),
	}, nil
}

// Handler is the HTTP API the runtime serves.
func (r *Runtime) Handler() http.Handler {
	return r.httpServer.Handler
}

func (r *Runtime) Close() error {
	if err := r.core.Close(); err != nil {
		return fmt.Errorf("close runtime: %w", err)
	}
	return nil
}
