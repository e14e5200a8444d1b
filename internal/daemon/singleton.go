package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the workspace lock.
var ErrAlreadyRunning = errors.New("another instance is already serving this workspace")

// Singleton ensures only one long-running process (watch or mcp) serves a
// workspace at a time. The lock lives under the workspace config directory.
type Singleton struct {
	name     string
	lockPath string
	lock     *flock.Flock
}

// NewSingleton creates a singleton manager for the given lock file.
// name identifies the holder in error messages (e.g., "watch", "mcp").
func NewSingleton(name, lockPath string) *Singleton {
	return &Singleton{
		name:     name,
		lockPath: lockPath,
	}
}

// ForWorkspace returns the singleton guarding workspaceRoot. Every command
// serving the same workspace shares one lock file.
func ForWorkspace(name, workspaceRoot, configDir string) *Singleton {
	return NewSingleton(name, filepath.Join(workspaceRoot, configDir, "serve.lock"))
}

// LockPath returns the lock file path.
func (s *Singleton) LockPath() string {
	return s.lockPath
}

// Acquire attempts to become the singleton instance.
// Returns ErrAlreadyRunning if another process holds the lock.
func (s *Singleton) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%s: %w (lock %s)", s.name, ErrAlreadyRunning, s.lockPath)
	}

	s.lock = lock
	return nil
}

// Release releases the file lock (called on shutdown).
func (s *Singleton) Release() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}
