package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"azops-hq/sweeper/pkg/retention"
)

// RetentionMetrics tracks retention evaluations.
type RetentionMetrics struct {
	decisionsTotal     *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	bytesReclaimed     *prometheus.CounterVec
}

func newRetentionMetrics(cfg Config, registry *prometheus.Registry) *RetentionMetrics {
	m := &RetentionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Retention decisions by category",
			},
			[]string{"domain", "category"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of one retention evaluation including deletions",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"domain"},
		),
		bytesReclaimed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bytes_reclaimed_total",
				Help:      "Bytes of deleted (or, in dry runs, deletable) resources",
			},
			[]string{"domain"},
		),
	}

	registry.MustRegister(m.decisionsTotal, m.evaluationDuration, m.bytesReclaimed)
	return m
}

func (m *RetentionMetrics) record(domain string, result *retention.Result, elapsed time.Duration) {
	for _, d := range result.Decisions {
		m.decisionsTotal.WithLabelValues(domain, string(d.Category)).Inc()
	}
	m.evaluationDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
	if b := result.BytesReclaimed(); b > 0 {
		m.bytesReclaimed.WithLabelValues(domain).Add(float64(b))
	}
}
