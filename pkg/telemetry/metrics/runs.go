package metrics

import "github.com/prometheus/client_golang/prometheus"

// RunMetrics tracks cleanup runs.
type RunMetrics struct {
	runsTotal *prometheus.CounterVec
	lastRun   *prometheus.GaugeVec
}

func newRunMetrics(cfg Config, registry *prometheus.Registry) *RunMetrics {
	m := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_total",
				Help:      "Cleanup runs by outcome",
			},
			[]string{"domain", "outcome"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last finished cleanup run",
			},
			[]string{"domain"},
		),
	}

	registry.MustRegister(m.runsTotal, m.lastRun)
	return m
}
