package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Singleton:
// - ForWorkspace places the lock under the config directory
// - Acquire creates the lock directory and wins when nobody holds the lock
// - A second instance on the same lock gets ErrAlreadyRunning
// - Release lets another instance acquire the lock
// - Release handles a lock that was never acquired

func TestForWorkspace(t *testing.T) {
	t.Parallel()

	s := ForWorkspace("watch", "/ws", ".dirindex")
	assert.Equal(t, filepath.Join("/ws", ".dirindex", "serve.lock"), s.LockPath())
	assert.Equal(t, "watch", s.name)
	assert.Nil(t, s.lock)
}

func TestSingleton_Acquire(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	first := ForWorkspace("watch", root, ".dirindex")
	require.NoError(t, first.Acquire())
	t.Cleanup(func() { _ = first.Release() })

	assert.FileExists(t, first.LockPath())

	second := ForWorkspace("mcp", root, ".dirindex")
	err := second.Acquire()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Contains(t, err.Error(), "mcp")
}

func TestSingleton_Release(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	first := ForWorkspace("watch", root, ".dirindex")
	require.NoError(t, first.Acquire())
	require.NoError(t, first.Release())

	second := ForWorkspace("watch", root, ".dirindex")
	require.NoError(t, second.Acquire())
	assert.NoError(t, second.Release())
}

func TestSingleton_Release_NotAcquired(t *testing.T) {
	t.Parallel()

	s := NewSingleton("test", filepath.Join(t.TempDir(), "x.lock"))
	assert.NoError(t, s.Release())
	assert.NoError(t, s.Release())
}
