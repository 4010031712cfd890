package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldError represents a validation error for a specific document field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "vm_naming_patterns.ci_templates.regex").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a document.
type ValidationError struct {
	// Errors contains all validation errors found in the document.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// schema lists the required structure of one document kind.
type schema struct {
	sections []string

	// entries names a section whose every entry must be a mapping holding fields.
	entries string
	fields  []string
}

var schemas = map[string]schema{
	DocAzureResources: {
		sections: []string{"vm_naming_patterns", "vm_cleanup"},
		entries:  "vm_naming_patterns",
		fields:   []string{"regex"},
	},
	DocStorageCleanup: {
		sections: []string{"blob_retention", "storage_accounts"},
		entries:  "blob_retention",
		fields:   []string{"keep_latest_count", "age_threshold_days"},
	},
	DocBuildMonitoring: {
		sections: []string{"pipeline_monitoring", "build_failure_analysis"},
	},
}

// validateDocument checks the required structure of doc and decodes it into
// its typed record. Documents without a schema decode to nil and always pass.
func validateDocument(name string, doc Document) (any, error) {
	if errs := checkSchema(name, doc); len(errs) > 0 {
		return nil, schemaError(name, errs)
	}

	typed, err := decodeTyped(name, doc)
	if err != nil {
		return nil, schemaError(name, []FieldError{{Field: name, Message: err.Error()}})
	}
	return typed, nil
}

func checkSchema(name string, doc Document) []FieldError {
	s, ok := schemas[name]
	if !ok {
		return nil
	}

	var errs []FieldError
	for _, section := range s.sections {
		if _, present := doc[section]; !present {
			errs = append(errs, FieldError{
				Field:   section,
				Message: "missing required section",
			})
		}
	}
	if s.entries == "" || len(errs) > 0 {
		return errs
	}

	raw := doc[s.entries]
	if raw == nil {
		return errs
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		return append(errs, FieldError{
			Field:   s.entries,
			Message: fmt.Sprintf("must be a mapping, got %T", raw),
		})
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entry, ok := entries[key].(map[string]any)
		if !ok {
			errs = append(errs, FieldError{
				Field:   s.entries + "." + key,
				Message: "must be a mapping",
			})
			continue
		}
		for _, field := range s.fields {
			if _, present := entry[field]; !present {
				errs = append(errs, FieldError{
					Field:   s.entries + "." + key + "." + field,
					Message: fmt.Sprintf("missing %q field", field),
				})
			}
		}
	}
	return errs
}

func schemaError(name string, errs []FieldError) *ConfigError {
	return &ConfigError{
		Kind:     KindSchemaViolation,
		Document: name,
		Section:  errs[0].Field,
		Err:      ValidationError{Errors: errs},
	}
}

// decodeTyped converts doc into the typed record for its kind.
func decodeTyped(name string, doc Document) (any, error) {
	switch name {
	case DocAzureResources:
		cfg := defaultAzureResources()
		if err := decodeInto(doc, &cfg); err != nil {
			return nil, err
		}
		applyAzureDefaults(&cfg)
		return &cfg, nil
	case DocStorageCleanup:
		cfg := defaultStorageCleanup()
		if err := decodeInto(doc, &cfg); err != nil {
			return nil, err
		}
		applyStorageDefaults(&cfg)
		return &cfg, nil
	case DocBuildMonitoring:
		var cfg BuildMonitoring
		if err := decodeInto(doc, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	case DocEnvironments:
		var cfg Environments
		if err := decodeInto(doc, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return nil, nil
}

func decodeInto(doc Document, out any) error {
	var node yaml.Node
	if err := node.Encode(map[string]any(doc)); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := node.Decode(out); err != nil {
		return err
	}
	return nil
}
