package config

// Document names understood by the Store.
const (
	DocAzureResources  = "azure_resources"
	DocStorageCleanup  = "storage_cleanup"
	DocBuildMonitoring = "build_monitoring"
	DocEnvironments    = "environments"
)

// Documents lists every document name in validation order.
var Documents = []string{DocAzureResources, DocStorageCleanup, DocBuildMonitoring, DocEnvironments}

// Document is a loaded configuration document: the raw YAML mapping after
// overlay merge and variable expansion. Documents returned by the Store are
// shared with its cache and must be treated as read-only.
type Document map[string]any

// AzureResources is the typed form of the azure_resources document.
type AzureResources struct {
	// Azure holds subscription-level settings used by the compute collaborator.
	Azure AzureConfig `yaml:"azure"`

	// VMNamingPatterns maps a pattern name (e.g. "ci_templates") to its definition.
	VMNamingPatterns map[string]NamingPattern `yaml:"vm_naming_patterns"`

	// VMCleanup is the VM retention policy.
	VMCleanup VMCleanupConfig `yaml:"vm_cleanup"`
}

// AzureConfig identifies the Azure subscription to operate on.
type AzureConfig struct {
	// SubscriptionID is usually "${AZURE_SUBSCRIPTION_ID}".
	SubscriptionID string `yaml:"subscription_id"`

	// ResourceGroups optionally restricts VM listing to these groups.
	ResourceGroups []string `yaml:"resource_groups"`
}

// NamingPattern is a named regular expression for resource names.
type NamingPattern struct {
	// Name is the map key the pattern was declared under.
	Name string `yaml:"-"`

	// Pattern is the human-readable form, e.g. "vhds-ci-wat-template-{version}.{type}-{timestamp}".
	Pattern string `yaml:"pattern"`

	// Regex is matched against resource names, anchored at the start.
	Regex string `yaml:"regex"`

	// Description is free text.
	Description string `yaml:"description"`
}

// VMCleanupConfig controls VM retention. The VM domain has no minimum-keep floor.
type VMCleanupConfig struct {
	// KeepLatestCount is the number of newest matching VMs always kept.
	// Default: 5
	KeepLatestCount int `yaml:"keep_latest_count"`

	// AgeThresholdDays is the minimum age for deletion.
	// Default: 30
	AgeThresholdDays int `yaml:"age_threshold_days"`

	// ExcludeTags lists protected tag values.
	ExcludeTags []string `yaml:"exclude_tags"`

	// RequireConfirmation stops real deletions and reports them as pending.
	// Default: true
	RequireConfirmation bool `yaml:"require_confirmation"`

	// DryRun is used when the caller does not choose explicitly.
	// Default: false
	DryRun bool `yaml:"dry_run"`

	// MaxDeleteBatchSize caps deletions per run.
	// Default: 100
	MaxDeleteBatchSize int `yaml:"max_delete_batch_size"`

	// Schedule is a cron expression for scheduled runs. Empty disables them.
	Schedule string `yaml:"schedule"`

	// PatternTypes lists the patterns cleaned by scheduled runs.
	PatternTypes []string `yaml:"pattern_types"`
}

// StorageCleanup is the typed form of the storage_cleanup document.
type StorageCleanup struct {
	// BlobRetention maps an artifact type (e.g. "ci_artifacts") to its policy.
	BlobRetention map[string]BlobRetentionPolicy `yaml:"blob_retention"`

	// StorageAccounts lists the accounts that hold the containers.
	StorageAccounts []StorageAccount `yaml:"storage_accounts"`

	// Safety holds limits shared by every blob retention policy.
	Safety SafetyConfig `yaml:"safety"`

	// Schedule is a cron expression for scheduled runs. Empty disables them.
	Schedule string `yaml:"schedule"`

	// ArtifactTypes lists the artifact types cleaned by scheduled runs.
	// Empty means all of BlobRetention.
	ArtifactTypes []string `yaml:"artifact_types"`
}

// BlobRetentionPolicy is the retention policy for one artifact type.
type BlobRetentionPolicy struct {
	// Name is the artifact type the policy was declared under.
	Name string `yaml:"-"`

	KeepLatestCount  int `yaml:"keep_latest_count"`
	AgeThresholdDays int `yaml:"age_threshold_days"`

	// Pattern is a glob matched against blob names.
	// Default: "*"
	Pattern string `yaml:"pattern"`

	// SizeLimitGB is informational.
	SizeLimitGB float64 `yaml:"size_limit_gb"`

	// Containers are cleaned one at a time, each with its own batch cap.
	Containers []string `yaml:"containers"`

	// StorageAccount selects an entry of StorageAccounts. Empty means the first one.
	StorageAccount string `yaml:"storage_account"`
}

// StorageAccount describes one blob store.
type StorageAccount struct {
	Name string `yaml:"name"`

	// Provider is "azure" or "s3".
	// Default: "azure"
	Provider string `yaml:"provider"`

	// Region is used by the s3 provider.
	Region string `yaml:"region"`

	// Endpoint overrides the service URL (azurite, minio).
	Endpoint string `yaml:"endpoint"`

	Containers []string `yaml:"containers"`
}

// SafetyConfig holds the blob domain's safety limits.
type SafetyConfig struct {
	ExcludeTags []string `yaml:"exclude_tags"`

	// MinimumVersionsToKeep is a floor combined with keep_latest_count via max().
	// Default: 2
	MinimumVersionsToKeep int `yaml:"minimum_versions_to_keep"`

	// MaxDeleteBatchSize caps deletions per container per run.
	// Default: 100
	MaxDeleteBatchSize int `yaml:"max_delete_batch_size"`

	DryRun bool `yaml:"dry_run"`
}

// BuildMonitoring is the typed form of the build_monitoring document. Its
// sections are consumed by tooling outside this module and kept loosely typed.
type BuildMonitoring struct {
	PipelineMonitoring   map[string]any     `yaml:"pipeline_monitoring"`
	BuildFailureAnalysis map[string]any     `yaml:"build_failure_analysis"`
	QualityGates         QualityGatesConfig `yaml:"quality_gates"`
}

// QualityGatesConfig lists quality gate definitions.
type QualityGatesConfig struct {
	Gates []map[string]any `yaml:"gates"`
}

// Environments is the typed form of the environments document. Top-level keys
// other than feature_flags are per-environment overlays.
type Environments struct {
	FeatureFlags map[string]map[string]any `yaml:"feature_flags"`
}
