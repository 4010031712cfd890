package gitsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azops-hq/sweeper/pkg/config"
)

const azureDoc = `vm_naming_patterns:
  ci_templates:
    regex: '^vhds-ci-wat-template-'
vm_cleanup:
  keep_latest_count: %d
  age_threshold_days: 30
`

func commitFile(t *testing.T, repo *gogit.Repository, dir, rel, content string) {
	t.Helper()

	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(rel)
	require.NoError(t, err)
	_, err = wt.Commit("update "+rel, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Ops", Email: "ops@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func newOrigin(t *testing.T, keep int) (*gogit.Repository, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, repo, dir, "configs/azure_resources.yaml", sprintfDoc(keep))
	return repo, dir
}

func sprintfDoc(keep int) string {
	return fmt.Sprintf(azureDoc, keep)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestSource_ReadBeforeClone(t *testing.T) {
	s, err := New(Config{URL: "https://example.invalid/config.git"}, nil)
	require.NoError(t, err)

	_, err = s.Read(config.DocAzureResources)
	require.Error(t, err)

	_, err = s.Pull(context.Background())
	require.Error(t, err)
}

func TestSource_CloneReadAndPull(t *testing.T) {
	origin, originDir := newOrigin(t, 3)

	s, err := New(Config{
		URL:       originDir,
		Path:      "configs",
		LocalPath: filepath.Join(t.TempDir(), "checkout"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Clone(context.Background()))

	store, err := config.NewStore(config.Options{Source: s, Environment: "test"})
	require.NoError(t, err)

	vm, err := store.VMCleanup()
	require.NoError(t, err)
	assert.Equal(t, 3, vm.KeepLatestCount)

	changed, err := s.Pull(context.Background())
	require.NoError(t, err)
	assert.False(t, changed, "no new commits upstream")

	commitFile(t, origin, originDir, "configs/azure_resources.yaml", sprintfDoc(7))

	changed, err = s.Pull(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	store.ReloadAll()
	vm, err = store.VMCleanup()
	require.NoError(t, err)
	assert.Equal(t, 7, vm.KeepLatestCount)

	head, err := s.Head()
	require.NoError(t, err)
	assert.Len(t, head, 40)
}

func TestSource_CloneReopensExistingCheckout(t *testing.T) {
	_, originDir := newOrigin(t, 4)
	local := filepath.Join(t.TempDir(), "checkout")

	first, err := New(Config{URL: originDir, Path: "configs", LocalPath: local}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Clone(context.Background()))

	second, err := New(Config{URL: originDir, Path: "configs", LocalPath: local}, nil)
	require.NoError(t, err)
	require.NoError(t, second.Clone(context.Background()))

	data, err := second.Read(config.DocAzureResources)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keep_latest_count: 4")
}
