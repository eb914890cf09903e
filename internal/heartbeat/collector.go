package heartbeat

import "github.com/prometheus/client_golang/prometheus"

// Collector exports the registry as one gauge per component and state, set
// to 1 for the current state.
type Collector struct {
	registry   *Registry
	staleAfter float64
	desc       *prometheus.Desc
}

func NewCollector(registry *Registry, staleAfterSeconds float64) *Collector {
	return &Collector{
		registry:   registry,
		staleAfter: staleAfterSeconds,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName("farm_advisor", "component", "state"),
			"Current state of a background component.",
			[]string{"component", "state"},
			nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.registry.Snapshot(secondsToDuration(c.staleAfter))
	for _, item := range snapshot.Components {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, 1, item.Name, string(item.State))
	}
}
