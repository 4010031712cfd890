package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// RunIDKey is the context key for cleanup run IDs.
	RunIDKey contextKey = "run_id"

	// DomainKey is the context key for the cleanup domain ("vm", "blob").
	DomainKey contextKey = "domain"

	// EnvironmentKey is the context key for the configuration environment.
	EnvironmentKey contextKey = "environment"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// RunID retrieves the run ID from the context.
func RunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

// WithDomain adds the cleanup domain to the context.
func WithDomain(ctx context.Context, domain string) context.Context {
	return context.WithValue(ctx, DomainKey, domain)
}

// Domain retrieves the cleanup domain from the context.
func Domain(ctx context.Context) string {
	return stringValue(ctx, DomainKey)
}

// WithEnvironment adds the environment name to the context.
func WithEnvironment(ctx context.Context, env string) context.Context {
	return context.WithValue(ctx, EnvironmentKey, env)
}

// Environment retrieves the environment name from the context.
func Environment(ctx context.Context) string {
	return stringValue(ctx, EnvironmentKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextFields returns the log attributes carried by ctx.
func contextFields(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range []contextKey{RunIDKey, DomainKey, EnvironmentKey} {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}
