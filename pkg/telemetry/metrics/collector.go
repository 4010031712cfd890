package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"azops-hq/sweeper/pkg/config"
	"azops-hq/sweeper/pkg/retention"
)

// Config configures the Collector.
type Config struct {
	// Namespace prefixes every metric name.
	// Default: "sweeper"
	Namespace string

	// Subsystem is inserted between namespace and name when set.
	Subsystem string

	// DurationBuckets are the evaluation duration histogram buckets in seconds.
	DurationBuckets []float64
}

// Collector records cleanup metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	retention *RetentionMetrics
	runs      *RunMetrics
	config    *ConfigMetrics
}

// NewCollector creates a Collector. A nil registry gets a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "sweeper"
	}
	if len(cfg.DurationBuckets) == 0 {
		// Evaluations range from in-memory plans (ms) to paged deletes (minutes).
		cfg.DurationBuckets = []float64{0.005, 0.05, 0.5, 1, 5, 30, 120, 600}
	}

	return &Collector{
		registry:  registry,
		retention: newRetentionMetrics(cfg, registry),
		runs:      newRunMetrics(cfg, registry),
		config:    newConfigMetrics(cfg, registry),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Evaluated implements retention.Observer.
func (c *Collector) Evaluated(domain string, result *retention.Result, elapsed time.Duration) {
	c.retention.record(domain, result, elapsed)
}

// ConfigLoaded implements config.Observer.
func (c *Collector) ConfigLoaded(document string, cached bool) {
	result := "loaded"
	if cached {
		result = "cached"
	}
	c.config.loadsTotal.WithLabelValues(document, result).Inc()
}

// ConfigFailed implements config.Observer.
func (c *Collector) ConfigFailed(document string, kind config.ErrorKind) {
	c.config.loadsTotal.WithLabelValues(document, string(kind)).Inc()
}

// PatternError implements patterns.Observer.
func (c *Collector) PatternError(pattern string) {
	c.config.patternErrors.WithLabelValues(pattern).Inc()
}

// RecordRun counts a finished cleanup run. outcome is e.g. "success",
// "partial", "pending_confirmation" or "error".
func (c *Collector) RecordRun(domain, outcome string) {
	c.runs.runsTotal.WithLabelValues(domain, outcome).Inc()
	c.runs.lastRun.WithLabelValues(domain).SetToCurrentTime()
}
