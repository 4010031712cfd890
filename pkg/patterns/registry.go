package patterns

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"azops-hq/sweeper/pkg/config"
)

// CITemplates is the only pattern kind with version extraction.
const CITemplates = "ci_templates"

// ciTemplateVersion captures <major>-<minor>-<patch>, the release label and
// the build timestamp of a CI template name.
var ciTemplateVersion = regexp.MustCompile(`template-(\d+-\d+-\d+)\.(\w+)-(\d+)`)

// PatternSource supplies the declared naming patterns. *config.Store implements it.
type PatternSource interface {
	NamingPatterns() (map[string]config.NamingPattern, error)
}

// Observer is told about patterns that cannot be used.
type Observer interface {
	PatternError(pattern string)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithObserver reports compile failures, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// Registry resolves named patterns through a PatternSource on every query,
// so edits picked up by a config reload apply immediately. Compiled
// expressions are cached by their source text.
type Registry struct {
	source   PatternSource
	logger   *slog.Logger
	observer Observer

	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
	invalid  map[string]error
}

// NewRegistry creates a Registry over source.
func NewRegistry(source PatternSource, opts ...Option) *Registry {
	r := &Registry{
		source:   source,
		logger:   slog.Default(),
		compiled: make(map[string]*regexp.Regexp),
		invalid:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "patterns")
	return r
}

// Matches reports whether name matches the named pattern at its start.
func (r *Registry) Matches(name, patternName string) bool {
	patterns, err := r.source.NamingPatterns()
	if err != nil {
		r.logger.Error("cannot load naming patterns", "pattern", patternName, "error", err)
		return false
	}
	return r.matches(name, patternName, patterns)
}

func (r *Registry) matches(name, patternName string, patterns map[string]config.NamingPattern) bool {
	p, ok := patterns[patternName]
	if !ok {
		r.logger.Warn("pattern not found", "pattern", patternName)
		return false
	}
	if p.Regex == "" {
		r.logger.Warn("no regex defined for pattern", "pattern", patternName)
		return false
	}

	re, ok := r.compile(patternName, p.Regex)
	if !ok {
		return false
	}

	loc := re.FindStringIndex(name)
	return loc != nil && loc[0] == 0
}

// compile returns the cached expression for src, compiling it on first use.
func (r *Registry) compile(patternName, src string) (*regexp.Regexp, bool) {
	r.mu.RLock()
	re, ok := r.compiled[src]
	_, bad := r.invalid[src]
	r.mu.RUnlock()

	if ok {
		return re, true
	}
	if bad {
		r.reportInvalid(patternName)
		return nil, false
	}

	re, err := regexp.Compile(src)

	r.mu.Lock()
	if err != nil {
		r.invalid[src] = err
	} else {
		r.compiled[src] = re
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("invalid regex for pattern", "pattern", patternName, "regex", src, "error", err)
		r.reportInvalid(patternName)
		return nil, false
	}
	return re, true
}

func (r *Registry) reportInvalid(patternName string) {
	if r.observer != nil {
		r.observer.PatternError(patternName)
	}
}

// Matcher returns a predicate bound to one pattern, suitable for the
// retention evaluator.
func (r *Registry) Matcher(patternName string) func(name string) bool {
	return func(name string) bool {
		return r.Matches(name, patternName)
	}
}

// ExtractVersion returns "<major>.<minor>.<patch>-<label>" for a
// ci_templates name, e.g. "26.1.0-beta" for
// "vhds-ci-wat-template-26-1-0.beta-20260213025457". Other pattern kinds,
// and names that do not match the pattern, yield false.
func (r *Registry) ExtractVersion(name, patternName string) (string, bool) {
	if !r.Matches(name, patternName) {
		return "", false
	}
	if patternName != CITemplates {
		return "", false
	}

	m := ciTemplateVersion.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], "-", ".") + "-" + m[2], true
}

// Compliance is the result of checking a name against every declared pattern.
type Compliance struct {
	Name             string   `json:"vm_name"`
	Compliant        bool     `json:"compliant"`
	MatchingPatterns []string `json:"matching_patterns"`
}

// Compliance checks name against all declared patterns.
func (r *Registry) Compliance(name string) Compliance {
	result := Compliance{Name: name, MatchingPatterns: []string{}}

	patterns, err := r.source.NamingPatterns()
	if err != nil {
		r.logger.Error("cannot load naming patterns", "error", err)
		return result
	}

	for patternName := range patterns {
		if r.matches(name, patternName, patterns) {
			result.MatchingPatterns = append(result.MatchingPatterns, patternName)
		}
	}
	sort.Strings(result.MatchingPatterns)
	result.Compliant = len(result.MatchingPatterns) > 0
	return result
}

// Names returns the declared pattern names, sorted.
func (r *Registry) Names() ([]string, error) {
	patterns, err := r.source.NamingPatterns()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
