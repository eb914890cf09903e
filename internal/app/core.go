package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/agrisense/farm-advisor/internal/advisor"
	"github.com/agrisense/farm-advisor/internal/agronomy"
	"github.com/agrisense/farm-advisor/internal/config"
	"github.com/agrisense/farm-advisor/internal/farmctx"
	"github.com/agrisense/farm-advisor/internal/memorylog"
	"github.com/agrisense/farm-advisor/internal/store"
)

// Version is stamped at build time.
var Version = "dev"

// Core is the part of the runtime the one-shot CLI commands also need: the
// store, the context aggregator and the chat service.
type Core struct {
	Store    *store.Store
	Contexts *farmctx.Aggregator
	Advisor  *advisor.Service
	Metrics  *prometheus.Registry
}

func NewCore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Core, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	sqlStore, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlStore.AutoMigrate(ctx); err != nil {
		sqlStore.Close()
		return nil, err
	}

	knowledge := agronomy.DefaultKnowledgeBase()
	if cfg.CropKnowledgeFile != "" {
		knowledge, err = agronomy.LoadKnowledgeBase(cfg.CropKnowledgeFile)
		if err != nil {
			sqlStore.Close()
			return nil, fmt.Errorf("load crop knowledge: %w", err)
		}
	}

	generator, err := newGenerator(ctx, cfg, logger.With("component", "llm"))
	if err != nil {
		sqlStore.Close()
		return nil, err
	}

	aggregator := &farmctx.Aggregator{Source: sqlStore, Logger: logger.With("component", "farmctx")}
	conversations := newConversationLog(sqlStore, memorylog.NewTranscript(cfg.TranscriptDir), logger.With("component", "chatlog"))
	service := advisor.NewService(aggregator, generator, conversations, advisor.Config{
		ModelTimeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
		HistoryExchanges: cfg.HistoryExchanges,
	}, logger.With("component", "advisor"))
	service.SetKnowledgeBase(knowledge)
	service.SetHistoryCache(advisor.NewHistoryCache(cfg.HistoryCacheSize, time.Duration(cfg.HistoryCacheTTLSec)*time.Second))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	service.SetMetrics(advisor.MustNewMetrics(registry))

	return &Core{
		Store:    sqlStore,
		Contexts: aggregator,
		Advisor:  service,
		Metrics:  registry,
	}, nil
}

// Close waits for pending conversation writes before closing the store.
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	if c.Advisor != nil {
		c.Advisor.Close()
	}
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
