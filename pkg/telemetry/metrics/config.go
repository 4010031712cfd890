package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConfigMetrics tracks configuration loading.
type ConfigMetrics struct {
	loadsTotal    *prometheus.CounterVec
	patternErrors *prometheus.CounterVec
}

func newConfigMetrics(cfg Config, registry *prometheus.Registry) *ConfigMetrics {
	m := &ConfigMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "config_loads_total",
				Help:      "Configuration document loads by result (loaded, cached or error kind)",
			},
			[]string{"document", "result"},
		),
		patternErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pattern_errors_total",
				Help:      "Naming pattern lookups that failed because the regex is invalid",
			},
			[]string{"pattern"},
		),
	}

	registry.MustRegister(m.loadsTotal, m.patternErrors)
	return m
}
