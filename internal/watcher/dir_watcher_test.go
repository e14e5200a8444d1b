package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for DirWatcher:
// - Missing roots are skipped; the remaining roots are watched
// - Boundary directories are watched but their subtrees are not
// - Watch adds a root after Start
// - A created directory is reported after the debounce period
// - Rapid changes are coalesced into one callback
// - Nested directories created later are watched too
// - A removed directory is reported; file changes are not
// - Ignored directory names are neither watched nor reported
// - Pause accumulates events, Resume fires them
// - Stop is idempotent and safe without Start

const testDebounce = 50 * time.Millisecond

type dirRecorder struct {
	mu    sync.Mutex
	calls [][]string
	ch    chan struct{}
}

func newDirRecorder() *dirRecorder {
	return &dirRecorder{ch: make(chan struct{}, 16)}
}

func (r *dirRecorder) callback(dirs []string) {
	r.mu.Lock()
	r.calls = append(r.calls, dirs)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *dirRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(3 * time.Second):
		t.Fatal("callback not called after timeout")
	}
}

func (r *dirRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func startDirWatcher(t *testing.T, root string) (DirWatcher, *dirRecorder) {
	t.Helper()
	w, err := NewDirWatcher([]string{root}, fsenum.MustIgnoreMatcher(fsenum.DefaultIgnore), testDebounce)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	rec := newDirRecorder()
	require.NoError(t, w.Start(context.Background(), rec.callback))
	// Wait for watcher to initialize
	time.Sleep(50 * time.Millisecond)
	return w, rec
}

func TestNewDirWatcher_MissingRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing")
	w, err := NewDirWatcher([]string{missing, root}, nil, testDebounce)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	rec := newDirRecorder()
	require.NoError(t, w.Start(context.Background(), rec.callback))
	time.Sleep(50 * time.Millisecond)

	created := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(created, 0o755))

	rec.wait(t)
	assert.Equal(t, [][]string{{created}}, rec.snapshot())
}

func TestDirWatcher_DirectoryCreated(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startDirWatcher(t, root)

	created := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(created, 0o755))

	rec.wait(t)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{created}, calls[0])
}

func TestDirWatcher_Coalesces(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startDirWatcher(t, root)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
		time.Sleep(10 * time.Millisecond)
	}

	rec.wait(t)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "b"),
		filepath.Join(root, "c"),
	}, calls[0])
}

func TestDirWatcher_NestedDirectoriesWatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startDirWatcher(t, root)

	parent := filepath.Join(root, "parent")
	require.NoError(t, os.Mkdir(parent, 0o755))
	rec.wait(t)

	child := filepath.Join(parent, "child")
	require.NoError(t, os.Mkdir(child, 0o755))
	rec.wait(t)

	calls := rec.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{child}, calls[1])
}

func TestDirWatcher_RemovedDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	doomed := filepath.Join(root, "doomed")
	require.NoError(t, os.Mkdir(doomed, 0o755))
	file := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, rec := startDirWatcher(t, root)

	require.NoError(t, os.Remove(file))
	require.NoError(t, os.Remove(doomed))

	rec.wait(t)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{doomed}, calls[0])
}

func TestDirWatcher_IgnoredNames(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startDirWatcher(t, root)

	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	time.Sleep(2 * testDebounce)
	require.NoError(t, os.Mkdir(filepath.Join(root, "kept"), 0o755))

	rec.wait(t)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{filepath.Join(root, "kept")}, calls[0])
}

func TestDirWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, rec := startDirWatcher(t, root)

	w.Pause()
	require.NoError(t, os.Mkdir(filepath.Join(root, "during-pause"), 0o755))
	time.Sleep(3 * testDebounce)
	assert.Empty(t, rec.snapshot())

	w.Resume()
	rec.wait(t)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{filepath.Join(root, "during-pause")}, calls[0])
}

func TestDirWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	w, err := NewDirWatcher([]string{t.TempDir()}, nil, testDebounce)
	require.NoError(t, err)

	// Never started
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestDirWatcher_Boundary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	build := filepath.Join(root, "build")
	require.NoError(t, os.MkdirAll(filepath.Join(build, "out"), 0o755))

	w, err := NewDirWatcher([]string{root}, nil, testDebounce,
		WithBoundary(func(dir string) bool { return dir == build }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	dw := w.(*dirWatcher)
	dw.watchedMu.Lock()
	assert.True(t, dw.watched[build])
	assert.False(t, dw.watched[filepath.Join(build, "out")])
	dw.watchedMu.Unlock()

	rec := newDirRecorder()
	require.NoError(t, w.Start(context.Background(), rec.callback))
	time.Sleep(50 * time.Millisecond)

	// Inside the boundary nothing is reported.
	require.NoError(t, os.Mkdir(filepath.Join(build, "classes"), 0o755))
	time.Sleep(2 * testDebounce)
	assert.Empty(t, rec.snapshot())

	// Removing the boundary itself is.
	require.NoError(t, os.RemoveAll(build))
	rec.wait(t)
	calls := rec.snapshot()
	require.NotEmpty(t, calls)
	assert.Contains(t, calls[0], build)
}

func TestDirWatcher_WatchAfterStart(t *testing.T) {
	t.Parallel()

	w, rec := startDirWatcher(t, t.TempDir())

	added := t.TempDir()
	require.NoError(t, w.Watch(added))
	require.NoError(t, w.Watch(filepath.Join(added, "missing")))

	created := filepath.Join(added, "pkg")
	require.NoError(t, os.Mkdir(created, 0o755))

	rec.wait(t)
	assert.Equal(t, [][]string{{created}}, rec.snapshot())
}
