package config

import (
	"log/slog"
	"os"
	"regexp"
)

// varToken matches a value that is exactly one ${NAME} placeholder.
var varToken = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// LookupFunc resolves an environment variable. It has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ExpandVariables walks v and replaces every string that is exactly
// "${NAME}" with the value of the environment variable NAME. Strings that
// only contain a placeholder ("x-${NAME}") are left untouched.
//
// An unset or empty variable leaves the literal token in place; an unset one
// also logs a warning. The returned structure shares nothing mutable with v.
func ExpandVariables(v any, lookup LookupFunc, logger *slog.Logger) any {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if logger == nil {
		logger = slog.Default()
	}
	return expand(v, lookup, logger)
}

func expand(v any, lookup LookupFunc, logger *slog.Logger) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = expand(item, lookup, logger)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expand(item, lookup, logger)
		}
		return out
	case string:
		m := varToken.FindStringSubmatch(val)
		if m == nil {
			return val
		}
		resolved, ok := lookup(m[1])
		if !ok {
			logger.Warn("environment variable not found", "variable", m[1])
			return val
		}
		if resolved == "" {
			return val
		}
		return resolved
	default:
		return v
	}
}
