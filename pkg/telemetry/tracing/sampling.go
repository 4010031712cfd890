package tracing

import (
	"fmt"
	"strconv"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ParseSampler turns a sampler setting into a parent-based sampler.
// Accepted values are "always" (or empty), "never", and a trace ID ratio
// such as "0.25".
func ParseSampler(setting string) (sdktrace.Sampler, error) {
	setting = strings.ToLower(strings.TrimSpace(setting))
	switch setting {
	case "", "always":
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	case "never":
		return sdktrace.ParentBased(sdktrace.NeverSample()), nil
	}

	ratio, err := strconv.ParseFloat(setting, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid sampler %q: want always, never or a ratio", setting)
	}
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("sample ratio must be between 0 and 1, got %g", ratio)
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio)), nil
}
