package advisor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for answered questions.
type Metrics struct {
	answers          *prometheus.CounterVec
	modelLatency     *prometheus.HistogramVec
	logWriteFailures prometheus.Counter
}

// MustNewMetrics registers the advisor collectors on reg and panics on a
// duplicate registration.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	answers := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farm_advisor",
			Subsystem: "chat",
			Name:      "answers_total",
			Help:      "Answers returned, by the path that produced them.",
		},
		[]string{"source"},
	)
	modelLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "farm_advisor",
			Subsystem: "chat",
			Name:      "model_request_duration_seconds",
			Help:      "Latency of language model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)
	logWriteFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "farm_advisor",
			Subsystem: "chat",
			Name:      "log_write_failures_total",
			Help:      "Conversation log appends that failed.",
		},
	)
	reg.MustRegister(answers, modelLatency, logWriteFailures)
	return &Metrics{
		answers:          answers,
		modelLatency:     modelLatency,
		logWriteFailures: logWriteFailures,
	}
}

func (m *Metrics) observeAnswer(source Source) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) observeModelCall(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.modelLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) observeLogFailure() {
	if m == nil {
		return
	}
	m.logWriteFailures.Inc()
}
