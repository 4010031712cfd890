package config

import (
	"fmt"
	"sort"
)

func typedAs[T any](s *Store, name string) (*T, error) {
	e, err := s.load(name, false)
	if err != nil {
		return nil, err
	}
	typed, ok := e.typed.(*T)
	if !ok {
		return nil, fmt.Errorf("document %s decoded to %T", name, e.typed)
	}
	return typed, nil
}

// AzureResources returns the typed azure_resources document.
func (s *Store) AzureResources() (*AzureResources, error) {
	return typedAs[AzureResources](s, DocAzureResources)
}

// NamingPatterns returns every VM naming pattern keyed by name.
func (s *Store) NamingPatterns() (map[string]NamingPattern, error) {
	cfg, err := s.AzureResources()
	if err != nil {
		return nil, err
	}
	return cfg.VMNamingPatterns, nil
}

// VMPattern returns one naming pattern. ok is false when it is not declared.
func (s *Store) VMPattern(name string) (NamingPattern, bool, error) {
	patterns, err := s.NamingPatterns()
	if err != nil {
		return NamingPattern{}, false, err
	}
	p, ok := patterns[name]
	return p, ok, nil
}

// VMCleanup returns the VM retention policy.
func (s *Store) VMCleanup() (VMCleanupConfig, error) {
	cfg, err := s.AzureResources()
	if err != nil {
		return VMCleanupConfig{}, err
	}
	return cfg.VMCleanup, nil
}

// StorageCleanup returns the typed storage_cleanup document.
func (s *Store) StorageCleanup() (*StorageCleanup, error) {
	return typedAs[StorageCleanup](s, DocStorageCleanup)
}

// BlobRetention returns the retention policy of one artifact type.
func (s *Store) BlobRetention(artifactType string) (BlobRetentionPolicy, bool, error) {
	cfg, err := s.StorageCleanup()
	if err != nil {
		return BlobRetentionPolicy{}, false, err
	}
	p, ok := cfg.BlobRetention[artifactType]
	return p, ok, nil
}

// BlobRetentionPolicies returns every blob retention policy sorted by artifact type.
func (s *Store) BlobRetentionPolicies() ([]BlobRetentionPolicy, error) {
	cfg, err := s.StorageCleanup()
	if err != nil {
		return nil, err
	}
	policies := make([]BlobRetentionPolicy, 0, len(cfg.BlobRetention))
	for _, p := range cfg.BlobRetention {
		policies = append(policies, p)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })
	return policies, nil
}

// StorageAccounts returns the configured storage accounts.
func (s *Store) StorageAccounts() ([]StorageAccount, error) {
	cfg, err := s.StorageCleanup()
	if err != nil {
		return nil, err
	}
	return cfg.StorageAccounts, nil
}

// StorageAccount returns the account called name, or the first configured
// account when name is empty.
func (s *Store) StorageAccount(name string) (StorageAccount, bool, error) {
	accounts, err := s.StorageAccounts()
	if err != nil {
		return StorageAccount{}, false, err
	}
	if len(accounts) == 0 {
		return StorageAccount{}, false, nil
	}
	if name == "" {
		return accounts[0], true, nil
	}
	for _, a := range accounts {
		if a.Name == name {
			return a, true, nil
		}
	}
	return StorageAccount{}, false, nil
}

// Safety returns the blob domain safety limits.
func (s *Store) Safety() (SafetyConfig, error) {
	cfg, err := s.StorageCleanup()
	if err != nil {
		return SafetyConfig{}, err
	}
	return cfg.Safety, nil
}

// BuildMonitoring returns the typed build_monitoring document.
func (s *Store) BuildMonitoring() (*BuildMonitoring, error) {
	return typedAs[BuildMonitoring](s, DocBuildMonitoring)
}

// PipelineMonitoring returns the pipeline_monitoring section.
func (s *Store) PipelineMonitoring() (map[string]any, error) {
	cfg, err := s.BuildMonitoring()
	if err != nil {
		return nil, err
	}
	return cfg.PipelineMonitoring, nil
}

// QualityGates returns the configured quality gates.
func (s *Store) QualityGates() ([]map[string]any, error) {
	cfg, err := s.BuildMonitoring()
	if err != nil {
		return nil, err
	}
	return cfg.QualityGates.Gates, nil
}

// Environments returns the typed environments document.
func (s *Store) Environments() (*Environments, error) {
	return typedAs[Environments](s, DocEnvironments)
}
