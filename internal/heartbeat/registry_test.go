package heartbeat

import (
	"errors"
	"testing"
	"time"
)

func TestSnapshotMarksStaleComponent(t *testing.T) {
	registry := NewRegistry()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }
	registry.Beat("alert-sweep", "ok")

	now = now.Add(3 * time.Minute)
	snapshot := registry.Snapshot(time.Minute)
	if snapshot.Overall != string(StateDegraded) {
		t.Fatalf("expected degraded overall state, got %s", snapshot.Overall)
	}
	if len(snapshot.Components) != 1 || snapshot.Components[0].State != StateStale {
		t.Fatalf("expected one stale component, got %+v", snapshot.Components)
	}
}

func TestSnapshotIdleForDisabledComponents(t *testing.T) {
	registry := NewRegistry()
	registry.Disabled("inbox", "no inbox dir")
	registry.Disabled("alert-sweep", "disabled by config")

	if overall := registry.Snapshot(time.Minute).Overall; overall != "idle" {
		t.Fatalf("expected idle overall state, got %s", overall)
	}
}

func TestDegradeKeepsError(t *testing.T) {
	registry := NewRegistry()
	registry.Degrade("inbox", "batch failed", errors.New("disk full"))
	snapshot := registry.Snapshot(0)
	if snapshot.Components[0].Error != "disk full" || snapshot.Overall != string(StateDegraded) {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}
