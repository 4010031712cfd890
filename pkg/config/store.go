package config

import (
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Observer is notified about document loads. The metrics collector
// implements it; a nil Observer is allowed.
type Observer interface {
	// ConfigLoaded is called after a successful Load. cached reports a cache hit.
	ConfigLoaded(document string, cached bool)

	// ConfigFailed is called when a Load fails.
	ConfigFailed(document string, kind ErrorKind)
}

// Options configures a Store.
type Options struct {
	// Dir is the configuration directory. Ignored when Source is set.
	Dir string

	// Source overrides the directory source (fs.FS, git checkout, ...).
	Source DocumentSource

	// Environment selects the overlay. Defaults to $ENVIRONMENT, then "development".
	Environment string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observer receives load notifications.
	Observer Observer

	// Lookup resolves ${NAME} placeholders. Defaults to os.LookupEnv.
	Lookup LookupFunc
}

type entry struct {
	doc   Document
	typed any
}

// Store loads, merges, expands, validates and caches configuration documents.
//
// A Store is constructed once at process start and passed to every consumer.
// It is safe for concurrent use: readers share cached documents, reloads take
// the write lock.
type Store struct {
	source      DocumentSource
	environment string
	logger      *slog.Logger
	observer    Observer
	lookup      LookupFunc

	mu      sync.RWMutex
	cache   map[string]*entry
	overlay map[string]any
}

// NewStore creates a Store and reads the environment overlay. It fails with
// a NotFound ConfigError when the configuration directory does not exist.
func NewStore(opts Options) (*Store, error) {
	source := opts.Source
	if source == nil {
		dir, err := NewDirSource(opts.Dir)
		if err != nil {
			return nil, err
		}
		source = dir
	}

	environment := opts.Environment
	if environment == "" {
		environment = os.Getenv(EnvironmentVariable)
	}
	if environment == "" {
		environment = DefaultEnvironment
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	s := &Store{
		source:      source,
		environment: environment,
		logger:      logger.With("component", "config.store"),
		observer:    opts.Observer,
		lookup:      lookup,
		cache:       make(map[string]*entry),
	}
	s.overlay = s.loadOverlay()

	s.logger.Info("config store initialized",
		"environment", environment,
		"source", source.Location(),
	)
	return s, nil
}

// Environment returns the environment name selected at construction.
func (s *Store) Environment() string {
	return s.environment
}

// Source returns the document source.
func (s *Store) Source() DocumentSource {
	return s.source
}

// Load returns the named document. A cached document is returned unless
// forceReload is set, in which case the document is re-read and the cached
// instance replaced.
func (s *Store) Load(name string, forceReload bool) (Document, error) {
	e, err := s.load(name, forceReload)
	if err != nil {
		return nil, err
	}
	return e.doc, nil
}

func (s *Store) load(name string, forceReload bool) (*entry, error) {
	s.mu.RLock()
	cached, ok := s.cache[name]
	overlay := s.overlay
	s.mu.RUnlock()

	if ok && !forceReload {
		s.notifyLoaded(name, true)
		return cached, nil
	}

	e, err := s.buildEntry(name, overlay)
	if err != nil {
		s.notifyFailed(name, KindOf(err))
		return nil, err
	}

	s.mu.Lock()
	s.cache[name] = e
	s.mu.Unlock()

	s.logger.Debug("loaded configuration", "document", name, "forced", forceReload)
	s.notifyLoaded(name, false)
	return e, nil
}

// Validate force-reloads the named document and checks its required
// structure. It returns nil when the document is valid.
func (s *Store) Validate(name string) error {
	if _, err := s.load(name, true); err != nil {
		return err
	}
	s.logger.Info("configuration validation passed", "document", name)
	return nil
}

// ValidateAll validates every known document kind and returns the joined errors.
func (s *Store) ValidateAll() error {
	var errs []error
	for _, name := range Documents {
		if err := s.Validate(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReloadAll clears the cache and re-reads the environment overlay.
// Subsequent loads read from the source again.
func (s *Store) ReloadAll() {
	overlay := s.loadOverlay()

	s.mu.Lock()
	s.cache = make(map[string]*entry)
	s.overlay = overlay
	s.mu.Unlock()

	s.logger.Info("reloaded all configurations", "environment", s.environment)
}

// Cached returns the names of the documents currently cached, sorted.
func (s *Store) Cached() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.cache))
	for name := range s.cache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeatureFlag reports feature_flags.<environment>.<name> from the
// environments document. Absent flags, non-boolean values and load errors
// all read as false.
func (s *Store) FeatureFlag(name string) bool {
	doc, err := s.Load(DocEnvironments, false)
	if err != nil {
		s.logger.Debug("feature flag lookup failed", "flag", name, "error", err)
		return false
	}

	flags, _ := doc["feature_flags"].(map[string]any)
	envFlags, _ := flags[s.environment].(map[string]any)
	enabled, _ := envFlags[name].(bool)
	return enabled
}

func (s *Store) notifyLoaded(name string, cached bool) {
	if s.observer != nil {
		s.observer.ConfigLoaded(name, cached)
	}
}

func (s *Store) notifyFailed(name string, kind ErrorKind) {
	if s.observer != nil {
		s.observer.ConfigFailed(name, kind)
	}
}
