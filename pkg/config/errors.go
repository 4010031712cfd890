package config

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a configuration failure.
type ErrorKind string

const (
	// KindNotFound means the document (or the configuration directory) does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindParseError means the document could not be parsed as a YAML mapping.
	KindParseError ErrorKind = "parse_error"
	// KindEmpty means the document parsed to nothing.
	KindEmpty ErrorKind = "empty"
	// KindSchemaViolation means a required section or field is missing or mistyped.
	KindSchemaViolation ErrorKind = "schema_violation"
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrNotFound        = errors.New("configuration not found")
	ErrParse           = errors.New("configuration parse error")
	ErrEmpty           = errors.New("configuration is empty")
	ErrSchemaViolation = errors.New("configuration schema violation")
)

// ConfigError is returned by every Store operation that fails. Configuration
// errors are fatal to the operation that triggered the load.
type ConfigError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Document is the document name (e.g. "azure_resources"). Empty for
	// construction-time failures.
	Document string

	// Section is the first offending section or field path for schema
	// violations (e.g. "vm_naming_patterns.ci_templates.regex").
	Section string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	switch {
	case e.Document == "" && e.Err != nil:
		return fmt.Sprintf("config %s: %v", e.Kind, e.Err)
	case e.Section != "":
		return fmt.Sprintf("config %s in %q at %s: %v", e.Kind, e.Document, e.Section, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("config %s in %q: %v", e.Kind, e.Document, e.Err)
	default:
		return fmt.Sprintf("config %s in %q", e.Kind, e.Document)
	}
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *ConfigError) Is(target error) bool {
	return sentinelFor(e.Kind) == target
}

func sentinelFor(kind ErrorKind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindParseError:
		return ErrParse
	case KindEmpty:
		return ErrEmpty
	case KindSchemaViolation:
		return ErrSchemaViolation
	}
	return nil
}

func newConfigError(kind ErrorKind, document string, err error) *ConfigError {
	return &ConfigError{Kind: kind, Document: document, Err: err}
}

// KindOf returns the ErrorKind of err if it wraps a ConfigError, or "" otherwise.
func KindOf(err error) ErrorKind {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Kind
	}
	return ""
}
