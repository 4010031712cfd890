package main

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })
	Version = "1.4.0-test"
	GitCommit = "abc123"

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "sweeper 1.4.0-test")
	assert.Contains(t, out.String(), "Git Commit: abc123")
	assert.Contains(t, out.String(), runtime.Version())
}

func TestRootCommandTree(t *testing.T) {
	cmd := newRootCmd()

	for _, path := range [][]string{
		{"validate"},
		{"vm", "cleanup"},
		{"vm", "list"},
		{"vm", "check"},
		{"vm", "patterns"},
		{"blob", "cleanup"},
		{"blob", "usage"},
		{"blob", "policies"},
		{"flag"},
		{"history"},
		{"history", "show"},
		{"history", "prune"},
		{"serve"},
		{"version"},
	} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}
