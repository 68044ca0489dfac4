package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/watcher"
)

func start(t *testing.T, cfg watcher.Config) <-chan []string {
	t.Helper()
	w, err := watcher.New(cfg)
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	cfg := watcher.DefaultConfig(dir)
	cfg.DebounceDur = 50 * time.Millisecond
	onChange := start(t, cfg)

	// Rapid writes should coalesce into a single batch
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("v%d", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case paths := <-onChange:
		assert.Equal(t, []string{path}, paths)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_BatchesDistinctPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := watcher.DefaultConfig(dir)
	cfg.DebounceDur = 50 * time.Millisecond
	onChange := start(t, cfg)

	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yml")
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))

	select {
	case paths := <-onChange:
		assert.Equal(t, []string{a, b}, paths)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("initial"), 0o644))

	cfg := watcher.DefaultConfig(dir)
	cfg.DebounceDur = 50 * time.Millisecond
	onChange := start(t, cfg)

	require.NoError(t, os.WriteFile(other, []byte("changed"), 0o644))

	select {
	case <-onChange:
		t.Fatal("should not notify for unrelated files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_RecursiveSeesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := watcher.DefaultConfig(dir)
	cfg.Recursive = true
	cfg.DebounceDur = 50 * time.Millisecond
	onChange := start(t, cfg)

	sub := filepath.Join(dir, "tools")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(50 * time.Millisecond)
	manifest := filepath.Join(sub, "extension.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("name: tools"), 0o644))

	deadline := time.After(time.Second)
	for {
		select {
		case paths := <-onChange:
			if assert.NotEmpty(t, paths) && paths[len(paths)-1] == manifest {
				return
			}
		case <-deadline:
			t.Fatal("expected notification for manifest in new subdirectory")
		}
	}
}

func TestWatcher_Stop(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()
	_, err = w.Start()
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/test/entities")

	assert.Equal(t, "/test/entities", cfg.Dir)
	assert.Equal(t, []string{".yaml", ".yml"}, cfg.Extensions)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDur)
	assert.False(t, cfg.Recursive)
}
