package alerts

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/agrisense/farm-advisor/internal/farmctx"
	"github.com/agrisense/farm-advisor/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	sqlStore, err := store.New(filepath.Join(t.TempDir(), "alerts.sqlite"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	return sqlStore
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f(v float64) *float64 { return &v }

func TestForInsight(t *testing.T) {
	got := ForInsight(store.Insight{FarmID: "farm_1", IrrigationNeed: "HIGH", SoilMoisture: f(14.26), Anomaly: true})
	if len(got) != 2 {
		t.Fatalf("expected two alerts, got %d", len(got))
	}
	if got[0].Type != "irrigation" || got[0].Severity != "high" || got[0].Message != "Urgent irrigation needed. Moisture: 14.3%" {
		t.Fatalf("unexpected irrigation alert: %+v", got[0])
	}
	if got[1].Type != "anomaly" || got[1].Severity != "medium" || got[1].Message != "Sensor anomaly detected" {
		t.Fatalf("unexpected anomaly alert: %+v", got[1])
	}
	if len(ForInsight(store.Insight{FarmID: "farm_1", IrrigationNeed: "LOW"})) != 0 {
		t.Fatal("expected no alerts for a calm insight")
	}
}

func TestRaiseDedupesOpenAlertsAndPublishes(t *testing.T) {
	sqlStore := newTestStore(t)
	hub := NewHub(discardLogger())
	sub := hub.Subscribe("farm_1")
	defer hub.Unsubscribe(sub)
	other := hub.Subscribe("farm_2")
	defer hub.Unsubscribe(other)

	raiser := NewRaiser(sqlStore, hub, discardLogger())
	candidates := ForContext(&farmctx.FarmContext{
		FarmID: "farm_1",
		Alerts: []farmctx.Alert{
			{Severity: farmctx.SeverityHigh, Type: "heat", Message: "Extreme heat (40.0°C)! rice at risk of heat stress."},
		},
	})

	created, err := raiser.Raise(context.Background(), candidates)
	if err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected one alert created, got %d", len(created))
	}
	select {
	case alert := <-sub.C:
		if alert.ID != created[0].ID {
			t.Fatalf("unexpected published alert: %+v", alert)
		}
	case <-time.After(time.Second):
		t.Fatal("expected alert on subscription")
	}
	select {
	case alert := <-other.C:
		t.Fatalf("unexpected alert for other farm: %+v", alert)
	default:
	}

	created, err = raiser.Raise(context.Background(), candidates)
	if err != nil {
		t.Fatalf("second raise failed: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected open alert to suppress duplicate, got %d", len(created))
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(discardLogger())
	sub := hub.Subscribe("")
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(store.Alert{FarmID: "farm_1"})
	}
	if len(sub.C) != subscriberBuffer {
		t.Fatalf("expected buffer to cap at %d, got %d", subscriberBuffer, len(sub.C))
	}
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Subscribers())
	}
}
