package watcher

import (
	"context"

	"github.com/mvp-joe/dirindex/internal/tracker"
)

// DirWatcher reports structural changes (directories created, removed or
// renamed) below a set of roots, debounced, with pause/resume support.
type DirWatcher interface {
	// Start begins watching, calling callback with the debounced set of
	// changed directories.
	Start(ctx context.Context, callback func(dirs []string)) error

	// Watch adds root and its subdirectories to the watch set.
	Watch(root string) error

	// Stop stops the watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// CheckoutWatcher reports when the working tree is switched to another
// branch or commit.
type CheckoutWatcher interface {
	// Start begins monitoring, calling callback with the previous and new
	// head on every switch.
	Start(ctx context.Context, callback func(from, to string)) error

	// Stop stops the watcher and cleans up resources.
	Stop() error
}

// Invalidator schedules index rebuilds.
type Invalidator interface {
	Invalidate(scopes ...string) tracker.Ticket
	InvalidateAll() tracker.Ticket
}
