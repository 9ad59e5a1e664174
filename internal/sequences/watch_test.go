package sequences

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jumpCatalog = "name: extra\nsteps: {jump: {kind: pose, pose: jump}}\ncommands: [{name: jump, steps: [jump]}]\n"

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	watcher, err := NewWatcher(dir)
	require.NoError(t, err)
	defer watcher.Close()

	path := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: extra\n"), 0644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(jumpCatalog), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	select {
	case name := <-watcher.Events:
		assert.Equal(t, path, name)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case name := <-watcher.Events:
		t.Fatalf("unexpected second change for %s", name)
	case <-time.After(3 * reloadDebounce):
	}
}

func TestWatchReloadsCatalog(t *testing.T) {
	dir := t.TempDir()
	initial, err := LoadCatalog(dir, t.TempDir(), testUnits())
	require.NoError(t, err)
	live := NewLive(initial)

	watcher, err := NewWatcher(dir)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reloadOnChange(ctx, watcher, dir, t.TempDir(), testUnits(), live, zerolog.Nop()) }()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(jumpCatalog), 0644))

	require.Eventually(t, func() bool {
		_, err := live.Build("jump")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchReloadsAfterSplitSave(t *testing.T) {
	dir := t.TempDir()
	initial, err := LoadCatalog(dir, t.TempDir(), testUnits())
	require.NoError(t, err)
	live := NewLive(initial)

	watcher, err := NewWatcher(dir)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reloadOnChange(ctx, watcher, dir, t.TempDir(), testUnits(), live, zerolog.Nop()) }()
	defer func() {
		cancel()
		<-done
	}()

	path := filepath.Join(dir, "extra.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString("name: extra\nsteps: {jump: {kind: pose")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	_, err = f.WriteString(", pose: jump}}\ncommands: [{name: jump, steps: [jump]}]\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		_, err := live.Build("jump")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, live.Load().Has("forward"))
}

func TestWatchKeepsCatalogOnBadFile(t *testing.T) {
	dir := t.TempDir()
	initial, err := LoadCatalog(dir, t.TempDir(), testUnits())
	require.NoError(t, err)
	live := NewLive(initial)

	watcher, err := NewWatcher(dir)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reloadOnChange(ctx, watcher, dir, t.TempDir(), testUnits(), live, zerolog.Nop()) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("steps: [unclosed"), 0644))
	time.Sleep(4 * reloadDebounce)

	cancel()
	require.NoError(t, <-done)
	assert.Same(t, initial, live.Load())
}
