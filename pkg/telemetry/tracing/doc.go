// Package tracing configures OpenTelemetry tracing for cleanup runs.
//
// When enabled, spans are exported over OTLP/gRPC to a collector. When
// disabled, a noop provider is installed so instrumented code (the retention
// evaluator, the cleanup adapters) pays almost nothing.
//
// Spans produced by a cleanup run:
//   - cleanup.vm / cleanup.blob: one per adapter call, with run_id and pattern
//   - retention.Evaluate: one per evaluated group (all VMs, or one container)
//
// # Usage
//
//	tracer, err := tracing.New(tracing.Config{
//	    Enabled:  true,
//	    Endpoint: "otel-collector:4317",
//	    Insecure: true,
//	    Sampler:  "0.25",
//	})
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
