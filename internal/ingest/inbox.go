// Package ingest watches a directory where edge gateways drop JSON batches of
// insights, sensor readings and irrigation logs.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agrisense/farm-advisor/internal/heartbeat"
	"github.com/agrisense/farm-advisor/internal/telemetry"
)

const (
	component         = "inbox"
	processedDir      = "processed"
	failedDir         = "failed"
	defaultSettleTime = 500 * time.Millisecond
)

var errEmptyBatch = errors.New("batch has no records")

type Recorder interface {
	RecordBatch(ctx context.Context, batch telemetry.Batch) (telemetry.BatchResult, error)
}

// Inbox processes a file once it has stopped changing for the settle time,
// then moves it to processed/ or failed/.
type Inbox struct {
	dir      string
	recorder Recorder
	logger   *slog.Logger
	settle   time.Duration
	reporter heartbeat.Reporter
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(dir string, recorder Recorder, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		dir:      strings.TrimSpace(dir),
		recorder: recorder,
		logger:   logger.With("component", component),
		settle:   defaultSettleTime,
		now:      func() time.Time { return time.Now().UTC() },
		timers:   map[string]*time.Timer{},
	}
}

func (i *Inbox) SetHeartbeatReporter(reporter heartbeat.Reporter) {
	i.reporter = reporter
}

func (i *Inbox) SetSettleTime(settle time.Duration) {
	if settle > 0 {
		i.settle = settle
	}
}

func (i *Inbox) Start(ctx context.Context) error {
	if i.dir == "" || i.recorder == nil {
		i.report(func(r heartbeat.Reporter) { r.Disabled(component, "inbox directory not configured") })
		<-ctx.Done()
		return nil
	}
	for _, dir := range []string{i.dir, filepath.Join(i.dir, processedDir), filepath.Join(i.dir, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create inbox dir %s: %w", dir, err)
		}
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(i.dir); err != nil {
		return fmt.Errorf("watch inbox %s: %w", i.dir, err)
	}
	i.report(func(r heartbeat.Reporter) { r.Starting(component, "watching "+i.dir) })
	i.logger.Info("edge inbox started", "dir", i.dir)

	ready := make(chan string, 64)
	stop := make(chan struct{})
	defer func() {
		close(stop)
		i.stopTimers()
	}()

	// Files dropped while the service was down.
	if err := i.drain(ctx); err != nil {
		i.logger.Error("initial inbox scan failed", "error", err)
	}
	i.report(func(r heartbeat.Reporter) { r.Beat(component, "idle") })

	for {
		select {
		case <-ctx.Done():
			i.report(func(r heartbeat.Reporter) { r.Stopped(component, "stopped") })
			i.logger.Info("edge inbox stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			i.handleEvent(event, ready, stop)
		case path := <-ready:
			i.processFile(ctx, path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			i.logger.Error("inbox watcher error", "error", err)
			i.report(func(r heartbeat.Reporter) { r.Degrade(component, "watcher error", err) })
		}
	}
}

func (i *Inbox) handleEvent(event fsnotify.Event, ready chan<- string, stop <-chan struct{}) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !isBatchFile(event.Name) || filepath.Dir(event.Name) != filepath.Clean(i.dir) {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if timer, ok := i.timers[event.Name]; ok {
		timer.Reset(i.settle)
		return
	}
	path := event.Name
	i.timers[path] = time.AfterFunc(i.settle, func() {
		i.mu.Lock()
		delete(i.timers, path)
		i.mu.Unlock()
		select {
		case ready <- path:
		case <-stop:
		}
	})
}

func (i *Inbox) stopTimers() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for path, timer := range i.timers {
		timer.Stop()
		delete(i.timers, path)
	}
}

func (i *Inbox) drain(ctx context.Context) error {
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isBatchFile(entry.Name()) {
			continue
		}
		i.processFile(ctx, filepath.Join(i.dir, entry.Name()))
	}
	return nil
}

func (i *Inbox) processFile(ctx context.Context, path string) {
	logger := i.logger.With("file", filepath.Base(path))
	result, err := i.ingest(ctx, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return
	case err != nil && result == (telemetry.BatchResult{}):
		logger.Warn("edge batch rejected", "error", err)
		i.move(logger, path, failedDir)
		i.report(func(r heartbeat.Reporter) { r.Degrade(component, "batch rejected: "+filepath.Base(path), err) })
		return
	case err != nil:
		logger.Warn("edge batch partially stored", "error", err,
			"insights", result.Insights, "sensor_readings", result.SensorReadings, "irrigation", result.Irrigation)
	default:
		logger.Info("edge batch stored",
			"insights", result.Insights, "sensor_readings", result.SensorReadings, "irrigation", result.Irrigation, "alerts", result.Alerts)
	}
	i.move(logger, path, processedDir)
	i.report(func(r heartbeat.Reporter) { r.Beat(component, "processed "+filepath.Base(path)) })
}

func (i *Inbox) ingest(ctx context.Context, path string) (telemetry.BatchResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return telemetry.BatchResult{}, err
	}
	var batch telemetry.Batch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return telemetry.BatchResult{}, fmt.Errorf("decode batch: %w", err)
	}
	if batch.Empty() {
		return telemetry.BatchResult{}, errEmptyBatch
	}
	return i.recorder.RecordBatch(ctx, batch)
}

func (i *Inbox) move(logger *slog.Logger, path, subdir string) {
	target := filepath.Join(i.dir, subdir, i.now().Format("20060102T150405Z")+"-"+filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		logger.Error("failed to move edge batch", "target", target, "error", err)
	}
}

func (i *Inbox) report(fn func(heartbeat.Reporter)) {
	if i.reporter != nil {
		fn(i.reporter)
	}
}

func isBatchFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".json") && !strings.HasPrefix(base, ".")
}
