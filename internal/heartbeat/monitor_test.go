package heartbeat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMonitorEmitsTransitions(t *testing.T) {
	registry := NewRegistry()
	transitions := make(chan Transition, 4)
	monitor := NewMonitor(registry, MonitorConfig{
		Interval: 10 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnTransition: func(ctx context.Context, transition Transition) {
			transitions <- transition
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = monitor.Start(ctx)
		close(done)
	}()

	registry.Beat("alert-sweep", "ok")
	time.Sleep(25 * time.Millisecond)
	registry.Degrade("alert-sweep", "sweep failed", context.DeadlineExceeded)

	select {
	case degraded := <-transitions:
		if degraded.From != StateHealthy || degraded.To != StateDegraded {
			t.Fatalf("unexpected degraded transition: %+v", degraded)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("expected degraded transition")
	}

	registry.Beat("alert-sweep", "recovered")
	select {
	case recovered := <-transitions:
		if recovered.From != StateDegraded || recovered.To != StateHealthy {
			t.Fatalf("unexpected recovered transition: %+v", recovered)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("expected recovered transition")
	}

	cancel()
	<-done
}

func TestCollectorExportsComponentStates(t *testing.T) {
	registry := NewRegistry()
	registry.Beat("alert-sweep", "ok")
	registry.Disabled("inbox", "no inbox dir")

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(registry, 0))

	expected := `
# HELP farm_advisor_component_state Current state of a background component.
# TYPE farm_advisor_component_state gauge
farm_advisor_component_state{component="alert-sweep",state="healthy"} 1
farm_advisor_component_state{component="inbox",state="disabled"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "farm_advisor_component_state"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}
