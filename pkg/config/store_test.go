package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAzureResources = `
azure:
  subscription_id: ${AZURE_SUBSCRIPTION_ID}
vm_naming_patterns:
  ci_templates:
    pattern: "vhds-ci-wat-template-{version}.{type}-{timestamp}"
    regex: '^vhds-ci-wat-template-\d+-\d+-\d+\.\w+-\d{14}$'
    description: CI template VMs
  production:
    regex: '^vhds-prod-api-\d+\.\d+\.\d+'
vm_cleanup:
  keep_latest_count: 5
  age_threshold_days: 30
  exclude_tags: ["permanent", "production"]
  dry_run: false
`
	testStorageCleanup = `
blob_retention:
  ci_artifacts:
    keep_latest_count: 10
    age_threshold_days: 14
    containers: [ci-builds]
  release_artifacts:
    keep_latest_count: 1
    age_threshold_days: 90
    pattern: "release-*"
storage_accounts:
  - name: buildartifacts
    containers: [ci-builds, releases]
safety:
  exclude_tags: [keep]
  max_delete_batch_size: 50
`
	testBuildMonitoring = `
pipeline_monitoring:
  enabled: true
build_failure_analysis:
  window_days: 7
quality_gates:
  gates:
    - name: coverage
      threshold: 80
`
	testEnvironments = `
development:
  vm_cleanup:
    dry_run: true
    exclude_tags: ["dev-only"]
production:
  vm_cleanup:
    keep_latest_count: 10
broken: not-a-mapping
feature_flags:
  development:
    scheduled_vm_cleanup: true
    verbose: "yes"
  production:
    scheduled_vm_cleanup: false
`
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"azure_resources.yaml":  {Data: []byte(testAzureResources)},
		"storage_cleanup.yaml":  {Data: []byte(testStorageCleanup)},
		"build_monitoring.yaml": {Data: []byte(testBuildMonitoring)},
		"environments.yaml":     {Data: []byte(testEnvironments)},
	}
}

func newTestStore(t *testing.T, fsys fstest.MapFS, env string) *Store {
	t.Helper()

	store, err := NewStore(Options{
		Source:      &FSSource{FS: fsys},
		Environment: env,
		Lookup:      lookupFrom(map[string]string{"AZURE_SUBSCRIPTION_ID": "sub-123"}),
	})
	require.NoError(t, err)
	return store
}

type recordingObserver struct {
	mu     sync.Mutex
	loads  []bool
	failed []ErrorKind
}

func (o *recordingObserver) ConfigLoaded(_ string, cached bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, cached)
}

func (o *recordingObserver) ConfigFailed(_ string, kind ErrorKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, kind)
}

func TestNewStore_MissingDirectory(t *testing.T) {
	_, err := NewStore(Options{Dir: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestNewStore_EnvironmentSelection(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	store := newTestStore(t, testFS(), "")
	assert.Equal(t, DefaultEnvironment, store.Environment())

	t.Setenv(EnvironmentVariable, "staging")
	store = newTestStore(t, testFS(), "")
	assert.Equal(t, "staging", store.Environment())

	store = newTestStore(t, testFS(), "production")
	assert.Equal(t, "production", store.Environment())
}

func TestStore_LoadAppliesOverlayAndExpansion(t *testing.T) {
	store := newTestStore(t, testFS(), "development")

	doc, err := store.Load(DocAzureResources, false)
	require.NoError(t, err)

	vm := doc["vm_cleanup"].(map[string]any)
	assert.Equal(t, true, vm["dry_run"])
	assert.Equal(t, 5, vm["keep_latest_count"])
	assert.Equal(t, []any{"dev-only"}, vm["exclude_tags"], "sequences are replaced, not concatenated")

	azure := doc["azure"].(map[string]any)
	assert.Equal(t, "sub-123", azure["subscription_id"])
}

func TestStore_OverlayAppliesToEveryDocument(t *testing.T) {
	store := newTestStore(t, testFS(), "development")

	doc, err := store.Load(DocBuildMonitoring, false)
	require.NoError(t, err)
	assert.Contains(t, doc, "vm_cleanup")

	env, err := store.Load(DocEnvironments, false)
	require.NoError(t, err)
	assert.Contains(t, env, "vm_cleanup")
}

func TestStore_NonMappingOverlayIsIgnored(t *testing.T) {
	store := newTestStore(t, testFS(), "broken")

	vm, err := store.VMCleanup()
	require.NoError(t, err)
	assert.False(t, vm.DryRun)
}

func TestStore_MissingEnvironmentsFile(t *testing.T) {
	fsys := testFS()
	delete(fsys, "environments.yaml")
	store := newTestStore(t, fsys, "development")

	vm, err := store.VMCleanup()
	require.NoError(t, err)
	assert.False(t, vm.DryRun)
	assert.False(t, store.FeatureFlag("scheduled_vm_cleanup"))
}

func TestStore_CachingAndForceReload(t *testing.T) {
	fsys := testFS()
	obs := &recordingObserver{}
	store, err := NewStore(Options{Source: &FSSource{FS: fsys}, Environment: "production", Observer: obs})
	require.NoError(t, err)

	first, err := store.Load(DocAzureResources, false)
	require.NoError(t, err)

	fsys["azure_resources.yaml"] = &fstest.MapFile{Data: []byte(`
vm_naming_patterns: {}
vm_cleanup:
  keep_latest_count: 2
`)}

	second, err := store.Load(DocAzureResources, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 10, second["vm_cleanup"].(map[string]any)["keep_latest_count"])

	third, err := store.Load(DocAzureResources, true)
	require.NoError(t, err)
	assert.Equal(t, 10, third["vm_cleanup"].(map[string]any)["keep_latest_count"], "overlay still wins")
	assert.NotContains(t, third["vm_naming_patterns"], "ci_templates")

	assert.Equal(t, []bool{false, true, false}, obs.loads)
	assert.Equal(t, []string{DocAzureResources}, store.Cached())
}

func TestStore_ReloadAll(t *testing.T) {
	fsys := testFS()
	store := newTestStore(t, fsys, "development")

	_, err := store.Load(DocAzureResources, false)
	require.NoError(t, err)
	require.NotEmpty(t, store.Cached())

	fsys["environments.yaml"] = &fstest.MapFile{Data: []byte(`
development:
  vm_cleanup:
    dry_run: false
`)}
	store.ReloadAll()
	assert.Empty(t, store.Cached())

	vm, err := store.VMCleanup()
	require.NoError(t, err)
	assert.False(t, vm.DryRun)
}

func TestStore_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    ErrorKind
		target  error
	}{
		{"malformed yaml", "vm_cleanup: [unclosed", KindParseError, ErrParse},
		{"non-mapping root", "- a\n- b\n", KindParseError, ErrParse},
		{"empty file", "", KindEmpty, ErrEmpty},
		{"comments only", "# nothing here\n", KindEmpty, ErrEmpty},
		{"empty mapping", "{}\n", KindEmpty, ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"azure_resources.yaml": {Data: []byte(tt.content)}}
			obs := &recordingObserver{}
			store, err := NewStore(Options{Source: &FSSource{FS: fsys}, Environment: "test", Observer: obs})
			require.NoError(t, err)

			_, err = store.Load(DocAzureResources, false)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, []ErrorKind{tt.kind}, obs.failed)
			assert.Empty(t, store.Cached())
		})
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	store := newTestStore(t, fstest.MapFS{}, "test")

	_, err := store.Load("storage_cleanup", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "storage_cleanup", cfgErr.Document)
}

func TestStore_LoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "azure_resources.yaml"), []byte(testAzureResources), 0o644))

	store, err := NewStore(Options{Dir: dir, Environment: "test"})
	require.NoError(t, err)

	patterns, err := store.NamingPatterns()
	require.NoError(t, err)
	assert.Len(t, patterns, 2)
	assert.Equal(t, "ci_templates", patterns["ci_templates"].Name)
}

func TestStore_FeatureFlag(t *testing.T) {
	dev := newTestStore(t, testFS(), "development")
	assert.True(t, dev.FeatureFlag("scheduled_vm_cleanup"))
	assert.False(t, dev.FeatureFlag("verbose"), "non-boolean reads as false")
	assert.False(t, dev.FeatureFlag("missing"))

	prod := newTestStore(t, testFS(), "production")
	assert.False(t, prod.FeatureFlag("scheduled_vm_cleanup"))

	staging := newTestStore(t, testFS(), "staging")
	assert.False(t, staging.FeatureFlag("scheduled_vm_cleanup"))

	broken := fstest.MapFS{"environments.yaml": {Data: []byte("::: not yaml [")}}
	assert.False(t, newTestStore(t, broken, "development").FeatureFlag("scheduled_vm_cleanup"))
}

func TestStore_ConcurrentLoads(t *testing.T) {
	store := newTestStore(t, testFS(), "development")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				store.ReloadAll()
				return
			}
			_, err := store.Load(DocStorageCleanup, i%3 == 0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}
