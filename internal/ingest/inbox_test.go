package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agrisense/farm-advisor/internal/heartbeat"
	"github.com/agrisense/farm-advisor/internal/telemetry"
)

type fakeRecorder struct {
	mu      sync.Mutex
	batches []telemetry.Batch
	err     error
}

func (f *fakeRecorder) RecordBatch(ctx context.Context, batch telemetry.Batch) (telemetry.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	if f.err != nil {
		return telemetry.BatchResult{}, f.err
	}
	return telemetry.BatchResult{Insights: len(batch.Insights), SensorReadings: len(batch.SensorReadings)}, nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func newTestInbox(t *testing.T, recorder Recorder) (*Inbox, string) {
	t.Helper()
	dir := t.TempDir()
	inbox := New(dir, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))
	inbox.SetSettleTime(20 * time.Millisecond)
	return inbox, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestProcessFileSortsBatches(t *testing.T) {
	recorder := &fakeRecorder{}
	inbox, dir := newTestInbox(t, recorder)
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	good := filepath.Join(dir, "good.json")
	writeFile(t, good, `{"insights":[{"farm_id":"farm_1","soil_moisture":30}]}`)
	empty := filepath.Join(dir, "empty.json")
	writeFile(t, empty, `{}`)
	broken := filepath.Join(dir, "broken.json")
	writeFile(t, broken, `{"insights":[`)

	ctx := context.Background()
	inbox.processFile(ctx, good)
	inbox.processFile(ctx, empty)
	inbox.processFile(ctx, broken)

	if got := len(listDir(t, filepath.Join(dir, processedDir))); got != 1 {
		t.Fatalf("expected one processed file, got %d", got)
	}
	if got := len(listDir(t, filepath.Join(dir, failedDir))); got != 2 {
		t.Fatalf("expected two failed files, got %d", got)
	}
	if recorder.count() != 1 {
		t.Fatalf("expected one recorded batch, got %d", recorder.count())
	}
}

func TestRecorderFailureMovesToFailed(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("farm id is required")}
	inbox, dir := newTestInbox(t, recorder)
	registry := heartbeat.NewRegistry()
	inbox.SetHeartbeatReporter(registry)
	if err := os.MkdirAll(filepath.Join(dir, failedDir), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "batch.json")
	writeFile(t, path, `{"sensor_readings":[{"sensor_type":"humidity","value":50}]}`)

	inbox.processFile(context.Background(), path)

	if got := len(listDir(t, filepath.Join(dir, failedDir))); got != 1 {
		t.Fatalf("expected one failed file, got %d", got)
	}
	snapshot := registry.Snapshot(0)
	if snapshot.Overall != string(heartbeat.StateDegraded) {
		t.Fatalf("expected degraded inbox, got %s", snapshot.Overall)
	}
}

func TestStartPicksUpExistingAndNewFiles(t *testing.T) {
	recorder := &fakeRecorder{}
	inbox, dir := newTestInbox(t, recorder)
	writeFile(t, filepath.Join(dir, "waiting.json"), `{"insights":[{"farm_id":"farm_1"}]}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inbox.Start(ctx) }()

	waitFor(t, func() bool { return recorder.count() == 1 })
	writeFile(t, filepath.Join(dir, "fresh.json"), `{"sensor_readings":[{"farm_id":"farm_1","sensor_type":"humidity","value":50}]}`)
	waitFor(t, func() bool { return recorder.count() == 2 })
	waitFor(t, func() bool { return len(listDir(t, filepath.Join(dir, processedDir))) == 2 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Fatalf("expected non-json file to stay: %v", err)
	}
}

func TestStartWithoutDirIsDisabled(t *testing.T) {
	registry := heartbeat.NewRegistry()
	inbox := New("", &fakeRecorder{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	inbox.SetHeartbeatReporter(registry)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := inbox.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overall := registry.Snapshot(0).Overall; overall != "idle" {
		t.Fatalf("expected idle, got %s", overall)
	}
}
