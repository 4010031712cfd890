package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor scrubs cloud credentials from log output.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			// SAS token signature in a blob URL or query string.
			{regexp.MustCompile(`(?i)(\bsig=)[^&\s"]+`), "${1}***"},
			// Storage connection string key.
			{regexp.MustCompile(`(?i)(AccountKey=)[^;\s"]+`), "${1}***"},
			{regexp.MustCompile(`(?i)(SharedAccessSignature=)[^;\s"]+`), "${1}***"},
			{regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer ***"},
			{regexp.MustCompile(`(?i)(aws_secret_access_key\s*[=:]\s*)\S+`), "${1}***"},
			{regexp.MustCompile(`(?i)(client_secret\s*[=:]\s*)\S+`), "${1}***"},
		},
	}
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr redacts one attribute. Values under sensitive keys are replaced
// entirely; other string values are pattern-scrubbed. Groups are walked.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		redacted := make([]any, len(attrs))
		for i, ga := range attrs {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return a
	default:
		return a
	}
}

var sensitiveKeys = []string{
	"password", "secret", "token", "account_key", "accountkey",
	"sas", "credential", "connection_string", "authorization",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskValue keeps a short prefix for correlation.
func maskValue(v string) string {
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}
