package watcher

import (
	"context"
	"log"
)

// Coordinator routes directory and checkout events to the rebuild tracker.
type Coordinator struct {
	checkout CheckoutWatcher // optional
	dirs     DirWatcher
	tracker  Invalidator
}

// NewCoordinator creates a coordinator. checkout may be nil when the
// workspace is not a git repository.
func NewCoordinator(checkout CheckoutWatcher, dirs DirWatcher, tracker Invalidator) *Coordinator {
	return &Coordinator{
		checkout: checkout,
		dirs:     dirs,
		tracker:  tracker,
	}
}

// Start begins routing events. Blocks until ctx is cancelled or a watcher
// fails to start.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.checkout != nil {
		if err := c.checkout.Start(ctx, c.handleCheckout); err != nil {
			c.cleanup()
			return err
		}
	}
	if err := c.dirs.Start(ctx, c.handleDirChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

// cleanup stops both watchers.
func (c *Coordinator) cleanup() {
	if c.checkout != nil {
		if err := c.checkout.Stop(); err != nil {
			log.Printf("Warning: checkout watcher stop failed: %v", err)
		}
	}
	if err := c.dirs.Stop(); err != nil {
		log.Printf("Warning: directory watcher stop failed: %v", err)
	}
}

// handleCheckout turns a checkout into one full rebuild. Directory events
// caused by the checkout itself are held back until the rebuild is queued.
func (c *Coordinator) handleCheckout(from, to string) {
	log.Printf("Checkout detected: %s → %s", from, to)

	c.dirs.Pause()
	defer c.dirs.Resume()

	ticket := c.tracker.InvalidateAll()
	log.Printf("Scheduled full rebuild (request %d)", ticket)
}

// handleDirChange schedules a rebuild scoped to the changed directories.
func (c *Coordinator) handleDirChange(dirs []string) {
	if len(dirs) == 0 {
		return
	}
	c.tracker.Invalidate(dirs...)
}
