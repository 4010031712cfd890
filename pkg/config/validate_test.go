package config

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Validate(t *testing.T) {
	tests := []struct {
		name     string
		document string
		content  string
		section  string
		fields   []string
	}{
		{
			name:     "missing vm_cleanup",
			document: DocAzureResources,
			content:  "vm_naming_patterns:\n  ci_templates:\n    regex: '^x'\n",
			section:  "vm_cleanup",
			fields:   []string{"vm_cleanup"},
		},
		{
			name:     "pattern without regex",
			document: DocAzureResources,
			content:  "vm_naming_patterns:\n  b:\n    pattern: x\n  a:\n    description: y\nvm_cleanup: {}\n",
			section:  "vm_naming_patterns.a.regex",
			fields:   []string{"vm_naming_patterns.a.regex", "vm_naming_patterns.b.regex"},
		},
		{
			name:     "patterns section not a mapping",
			document: DocAzureResources,
			content:  "vm_naming_patterns: [a, b]\nvm_cleanup: {}\n",
			section:  "vm_naming_patterns",
			fields:   []string{"vm_naming_patterns"},
		},
		{
			name:     "retention entry missing fields",
			document: DocStorageCleanup,
			content:  "blob_retention:\n  ci_artifacts:\n    keep_latest_count: 3\nstorage_accounts: []\n",
			section:  "blob_retention.ci_artifacts.age_threshold_days",
			fields:   []string{"blob_retention.ci_artifacts.age_threshold_days"},
		},
		{
			name:     "missing both storage sections",
			document: DocStorageCleanup,
			content:  "safety: {}\n",
			section:  "blob_retention",
			fields:   []string{"blob_retention", "storage_accounts"},
		},
		{
			name:     "build monitoring missing analysis",
			document: DocBuildMonitoring,
			content:  "pipeline_monitoring: {}\n",
			section:  "build_failure_analysis",
			fields:   []string{"build_failure_analysis"},
		},
		{
			name:     "wrong field type",
			document: DocAzureResources,
			content:  "vm_naming_patterns: {}\nvm_cleanup:\n  keep_latest_count: many\n",
			section:  DocAzureResources,
			fields:   []string{DocAzureResources},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{tt.document + ".yaml": {Data: []byte(tt.content)}}
			store := newTestStore(t, fsys, "test")

			err := store.Validate(tt.document)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaViolation)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.section, cfgErr.Section)
			assert.Equal(t, tt.document, cfgErr.Document)

			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			got := make([]string, 0, len(verr.Errors))
			for _, fe := range verr.Errors {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestStore_ValidatePasses(t *testing.T) {
	store := newTestStore(t, testFS(), "development")

	for _, name := range []string{DocAzureResources, DocStorageCleanup, DocBuildMonitoring, DocEnvironments} {
		assert.NoError(t, store.Validate(name), name)
	}
	assert.NoError(t, store.ValidateAll())
}

func TestStore_ValidateUnknownDocumentHasNoSchema(t *testing.T) {
	fsys := fstest.MapFS{"custom.yaml": {Data: []byte("anything: 1\n")}}
	store := newTestStore(t, fsys, "test")

	assert.NoError(t, store.Validate("custom"))
}

func TestStore_ValidateForcesReload(t *testing.T) {
	fsys := testFS()
	store := newTestStore(t, fsys, "test")
	require.NoError(t, store.Validate(DocBuildMonitoring))

	fsys["build_monitoring.yaml"] = &fstest.MapFile{Data: []byte("pipeline_monitoring: {}\n")}
	assert.ErrorIs(t, store.Validate(DocBuildMonitoring), ErrSchemaViolation)
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "vm_cleanup", Message: "missing required section"}}}
	assert.Equal(t, "configuration validation failed: vm_cleanup: missing required section", single.Error())

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}
	assert.Contains(t, multi.Error(), "2 errors")
	assert.Contains(t, multi.Error(), "  - b: y")
}

func TestTypedAccessors(t *testing.T) {
	store := newTestStore(t, testFS(), "production")

	vm, err := store.VMCleanup()
	require.NoError(t, err)
	assert.Equal(t, 10, vm.KeepLatestCount)
	assert.Equal(t, 30, vm.AgeThresholdDays)
	assert.True(t, vm.RequireConfirmation, "defaults to true when omitted")
	assert.Equal(t, DefaultMaxDeleteBatchSize, vm.MaxDeleteBatchSize)

	p, ok, err := store.VMPattern("production")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `^vhds-prod-api-\d+\.\d+\.\d+`, p.Regex)

	_, ok, err = store.VMPattern("nope")
	require.NoError(t, err)
	assert.False(t, ok)

	ci, ok, err := store.BlobRetention("ci_artifacts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DefaultBlobPattern, ci.Pattern)
	assert.Equal(t, []string{"ci-builds"}, ci.Containers)

	policies, err := store.BlobRetentionPolicies()
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "ci_artifacts", policies[0].Name)
	assert.Equal(t, "release-*", policies[1].Pattern)

	safety, err := store.Safety()
	require.NoError(t, err)
	assert.Equal(t, 50, safety.MaxDeleteBatchSize)
	assert.Equal(t, DefaultMinimumVersionsToKeep, safety.MinimumVersionsToKeep)

	account, ok, err := store.StorageAccount("")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "buildartifacts", account.Name)
	assert.Equal(t, DefaultStorageProvider, account.Provider)

	_, ok, err = store.StorageAccount("other")
	require.NoError(t, err)
	assert.False(t, ok)

	gates, err := store.QualityGates()
	require.NoError(t, err)
	require.Len(t, gates, 1)
	assert.Equal(t, "coverage", gates[0]["name"])

	pm, err := store.PipelineMonitoring()
	require.NoError(t, err)
	assert.Equal(t, true, pm["enabled"])

	envs, err := store.Environments()
	require.NoError(t, err)
	assert.Equal(t, true, envs.FeatureFlags["development"]["scheduled_vm_cleanup"])
}
