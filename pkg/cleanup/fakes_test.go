package cleanup

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"azops-hq/sweeper/pkg/cleanup/history"
	"azops-hq/sweeper/pkg/config"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func daysAgo(d int) time.Time {
	return testNow.AddDate(0, 0, -d)
}

const (
	testAzureResources = `
vm_naming_patterns:
  ci_templates:
    pattern: "vhds-ci-wat-template-{version}.{type}-{timestamp}"
    regex: '^vhds-ci-wat-template-\d+-\d+-\d+\.\w+-\d{14}'
  staging:
    regex: '^vhds-staging-'
vm_cleanup:
  keep_latest_count: 2
  age_threshold_days: 30
  exclude_tags: ["permanent"]
  dry_run: false
`
	testStorageCleanup = `
blob_retention:
  ci_artifacts:
    keep_latest_count: 1
    age_threshold_days: 30
    pattern: "build-*.zip"
    containers: [ci-builds, nightly]
  release_artifacts:
    keep_latest_count: 3
    age_threshold_days: 90
  orphan:
    keep_latest_count: 1
    age_threshold_days: 1
    storage_account: missing
storage_accounts:
  - name: buildartifacts
    containers: [releases]
safety:
  exclude_tags: ["permanent"]
  minimum_versions_to_keep: 2
  max_delete_batch_size: 2
  dry_run: true
`
	testEnvironments = `
production:
  vm_cleanup:
    require_confirmation: false
feature_flags:
  development:
    scheduled_vm_cleanup: false
    scheduled_blob_cleanup: true
  production:
    scheduled_vm_cleanup: true
`
)

func newTestStore(t *testing.T, env string, overrides map[string]string) *config.Store {
	t.Helper()

	docs := map[string]string{
		"azure_resources": testAzureResources,
		"storage_cleanup": testStorageCleanup,
		"environments":    testEnvironments,
	}
	for k, v := range overrides {
		docs[k] = v
	}

	fsys := fstest.MapFS{}
	for name, data := range docs {
		fsys[name+".yaml"] = &fstest.MapFile{Data: []byte(data)}
	}

	store, err := config.NewStore(config.Options{
		Source:      &config.FSSource{FS: fsys},
		Environment: env,
		Lookup:      func(string) (string, bool) { return "", false },
	})
	require.NoError(t, err)
	return store
}

type fakeVMService struct {
	mu      sync.Mutex
	vms     []VM
	listErr error
	failOn  map[string]error
	deleted []string
	lists   int
}

func (f *fakeVMService) ListVMs(context.Context) ([]VM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]VM(nil), f.vms...), nil
}

func (f *fakeVMService) DeleteVM(_ context.Context, vm VM) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[vm.Name]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, vm.ResourceGroup+"/"+vm.Name)
	return nil
}

type fakeBlobService struct {
	mu       sync.Mutex
	blobs    map[string][]Blob
	listErr  map[string]error
	failOn   map[string]error
	deleted  []string
	prefixes []string
}

func (f *fakeBlobService) ListBlobs(_ context.Context, container, prefix string) ([]Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	if err := f.listErr[container]; err != nil {
		return nil, err
	}
	var out []Blob
	for _, b := range f.blobs[container] {
		if len(b.Name) >= len(prefix) && b.Name[:len(prefix)] == prefix {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBlobService) DeleteBlob(_ context.Context, container, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[name]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, container+"/"+name)
	return nil
}

type recordingHistory struct {
	mu   sync.Mutex
	runs []history.Run
}

func (r *recordingHistory) Record(_ context.Context, run history.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *recordingHistory) last() history.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[len(r.runs)-1]
}

type recordingRuns struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingRuns) RecordRun(domain, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, domain+":"+outcome)
}
