// Package telemetry groups the observability packages of sweeper.
//
//   - logging: slog construction, context fields (run_id, domain, environment)
//     and credential redaction
//   - metrics: Prometheus collector for decisions, runs, config loads and
//     pattern errors
//   - tracing: OpenTelemetry tracer with an OTLP/gRPC exporter
//   - health: liveness, readiness and version endpoints for serve
package telemetry
