package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_RequiresDir(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{}, nil)
	require.Error(t, err)
}

func TestWatcher_Relevant(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"yaml write", fsnotify.Event{Name: "/c/azure_resources.yaml", Op: fsnotify.Write}, true},
		{"yml create", fsnotify.Event{Name: "/c/extra.yml", Op: fsnotify.Create}, true},
		{"upper-case extension", fsnotify.Event{Name: "/c/X.YAML", Op: fsnotify.Write}, true},
		{"chmod only", fsnotify.Event{Name: "/c/azure_resources.yaml", Op: fsnotify.Chmod}, false},
		{"hidden swap file", fsnotify.Event{Name: "/c/.azure_resources.yaml", Op: fsnotify.Write}, false},
		{"other extension", fsnotify.Event{Name: "/c/notes.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event))
		})
	}
}

func TestWatcher_ReloadsStoreOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "azure_resources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testAzureResources), 0o644))

	store, err := NewStore(Options{Dir: dir, Environment: "test"})
	require.NoError(t, err)
	_, err = store.Load(DocAzureResources, false)
	require.NoError(t, err)

	w, err := NewWatcher(WatcherConfig{Dir: dir, DebounceInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func() {
			store.ReloadAll()
			reloads.Add(1)
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(testAzureResources), 0o644))
	}

	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, store.Cached())

	require.NoError(t, w.Stop())
	require.NoError(t, <-done)
}

func TestWatcher_WatchTwice(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, func() {}) }()

	assert.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.running
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, w.Watch(ctx, func() {}), ErrWatcherRunning)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, w.Stop())
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.trigger(func() { calls.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.trigger(func() { calls.Add(1) })
	d.stop()
	d.trigger(func() { calls.Add(1) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
