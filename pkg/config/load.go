package config

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// parseDocument parses raw YAML into a Document. The root must be a
// non-empty mapping.
func parseDocument(name string, data []byte) (Document, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, newConfigError(KindParseError, name, err)
	}
	if root == nil {
		return nil, newConfigError(KindEmpty, name, errors.New("document has no content"))
	}

	m, ok := normalize(root).(map[string]any)
	if !ok {
		return nil, newConfigError(KindParseError, name, fmt.Errorf("document root must be a mapping, got %T", root))
	}
	if len(m) == 0 {
		return nil, newConfigError(KindEmpty, name, errors.New("document is an empty mapping"))
	}
	return Document(m), nil
}

// normalize converts any map[any]any produced by the YAML decoder into
// map[string]any so the rest of the package deals with one mapping type.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}

// readDocument reads name from the source and classifies a missing document.
func (s *Store) readDocument(name string) ([]byte, error) {
	data, err := s.source.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newConfigError(KindNotFound, name,
				fmt.Errorf("configuration file not found: %s/%s%s", s.source.Location(), name, DocumentExtension))
		}
		return nil, newConfigError(KindNotFound, name, err)
	}
	return data, nil
}

// buildEntry runs the full load pipeline for one document: read, parse,
// overlay merge, variable expansion, validation.
func (s *Store) buildEntry(name string, overlay map[string]any) (*entry, error) {
	data, err := s.readDocument(name)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(name, data)
	if err != nil {
		return nil, err
	}

	merged := map[string]any(doc)
	if len(overlay) > 0 {
		merged = DeepMerge(merged, overlay)
	}

	expanded, _ := ExpandVariables(merged, s.lookup, s.logger).(map[string]any)
	doc = Document(expanded)

	typed, err := validateDocument(name, doc)
	if err != nil {
		return nil, err
	}

	return &entry{doc: doc, typed: typed}, nil
}

// loadOverlay reads the overlay for the current environment from the
// environments document. A missing or unreadable file yields no overlay.
func (s *Store) loadOverlay() map[string]any {
	data, err := s.source.Read(DocEnvironments)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("environment config file not found",
				"location", s.source.Location(),
				"document", DocEnvironments,
			)
		} else {
			s.logger.Error("error loading environment overrides", "error", err)
		}
		return nil
	}

	doc, err := parseDocument(DocEnvironments, data)
	if err != nil {
		if KindOf(err) != KindEmpty {
			s.logger.Error("error loading environment overrides", "error", err)
		}
		return nil
	}

	raw, ok := doc[s.environment]
	if !ok || raw == nil {
		return nil
	}
	overlay, ok := raw.(map[string]any)
	if !ok {
		s.logger.Warn("environment overlay is not a mapping, ignoring",
			"environment", s.environment,
			"type", fmt.Sprintf("%T", raw),
		)
		return nil
	}
	return overlay
}
