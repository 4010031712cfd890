package config

// Default values applied when a document omits a field.
const (
	DefaultEnvironment = "development"

	DefaultVMKeepLatestCount  = 5
	DefaultVMAgeThresholdDays = 30
	DefaultMaxDeleteBatchSize = 100

	DefaultMinimumVersionsToKeep = 2
	DefaultBlobPattern           = "*"
	DefaultStorageProvider       = "azure"
)

// EnvironmentVariable selects the environment when none is passed explicitly.
const EnvironmentVariable = "ENVIRONMENT"

// defaultAzureResources returns the record azure_resources is decoded onto.
func defaultAzureResources() AzureResources {
	return AzureResources{
		VMCleanup: VMCleanupConfig{
			KeepLatestCount:     DefaultVMKeepLatestCount,
			AgeThresholdDays:    DefaultVMAgeThresholdDays,
			RequireConfirmation: true,
			MaxDeleteBatchSize:  DefaultMaxDeleteBatchSize,
		},
	}
}

// defaultStorageCleanup returns the record storage_cleanup is decoded onto.
func defaultStorageCleanup() StorageCleanup {
	return StorageCleanup{
		Safety: SafetyConfig{
			MinimumVersionsToKeep: DefaultMinimumVersionsToKeep,
			MaxDeleteBatchSize:    DefaultMaxDeleteBatchSize,
		},
	}
}

// applyAzureDefaults fills per-entry values that YAML decoding cannot pre-seed.
func applyAzureDefaults(cfg *AzureResources) {
	for name, p := range cfg.VMNamingPatterns {
		p.Name = name
		cfg.VMNamingPatterns[name] = p
	}
}

// applyStorageDefaults fills per-entry values that YAML decoding cannot pre-seed.
func applyStorageDefaults(cfg *StorageCleanup) {
	for name, p := range cfg.BlobRetention {
		p.Name = name
		if p.Pattern == "" {
			p.Pattern = DefaultBlobPattern
		}
		cfg.BlobRetention[name] = p
	}
	for i := range cfg.StorageAccounts {
		if cfg.StorageAccounts[i].Provider == "" {
			cfg.StorageAccounts[i].Provider = DefaultStorageProvider
		}
	}
}
