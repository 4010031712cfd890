// Package metrics exposes Prometheus metrics for cleanup runs.
//
// Metrics (namespace "sweeper" by default):
//   - sweeper_decisions_total{domain,category}: retention decisions by category
//   - sweeper_evaluation_duration_seconds{domain}: time spent per evaluation
//   - sweeper_bytes_reclaimed_total{domain}: bytes deleted or planned for deletion
//   - sweeper_runs_total{domain,outcome}: cleanup runs by outcome
//   - sweeper_config_loads_total{document,result}: configuration loads
//   - sweeper_pattern_errors_total{pattern}: unusable naming patterns
//
// The Collector satisfies the observer interfaces of config.Store,
// patterns.Registry and retention.Evaluator, so wiring is a matter of passing
// it as the observer option. Metrics live on a private registry served by
// Handler.
package metrics
