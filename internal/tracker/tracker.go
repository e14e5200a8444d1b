package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/mvp-joe/dirindex/internal/index"
	"github.com/mvp-joe/dirindex/internal/roots"
)

// DefaultDebounce is the quiet period between the last invalidation and the
// rebuild it triggers.
const DefaultDebounce = 100 * time.Millisecond

// State is the scheduling state of the tracker.
type State int

const (
	StateIdle State = iota
	StateScheduled
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRebuilding:
		return "rebuilding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Ticket identifies an invalidation request. WaitFor blocks until a
// snapshot reflecting the request has been published.
type Ticket uint64

// Tracker turns declaration and directory change events into snapshot
// rebuilds. It is the only writer of the publisher it is given.
type Tracker struct {
	store     *roots.Store
	builder   *index.Builder
	publisher *index.Publisher
	debounce  time.Duration

	buildMu sync.Mutex // serializes rebuilds

	mu         sync.Mutex
	scheduled  bool
	rebuilding bool
	full       bool
	scopes     map[string]bool
	requested  uint64
	completed  uint64
	failed     uint64
	lastErr    error
	timer      *time.Timer
	changed    chan struct{} // closed and replaced after every rebuild attempt

	wake chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDebounce sets the quiet period before a scheduled rebuild runs.
func WithDebounce(d time.Duration) Option {
	return func(t *Tracker) { t.debounce = d }
}

// New creates a tracker and subscribes it to declaration changes in store.
// Call Run to start executing rebuilds.
func New(store *roots.Store, builder *index.Builder, publisher *index.Publisher, opts ...Option) *Tracker {
	t := &Tracker{
		store:     store,
		builder:   builder,
		publisher: publisher,
		debounce:  DefaultDebounce,
		scopes:    make(map[string]bool),
		changed:   make(chan struct{}),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	store.Subscribe(func(roots.Change) { t.InvalidateAll() })
	return t
}

// Invalidate schedules a rebuild limited to the given subtrees. Without
// scopes the whole index is rebuilt.
func (t *Tracker) Invalidate(scopes ...string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requested++
	if len(scopes) == 0 {
		t.full = true
	}
	for _, s := range scopes {
		t.scopes[s] = true
	}

	t.scheduled = true
	t.armLocked()
	return Ticket(t.requested)
}

// InvalidateAll schedules a full rebuild.
func (t *Tracker) InvalidateAll() Ticket {
	return t.Invalidate()
}

// armLocked restarts the debounce timer. While a rebuild runs the timer is
// left alone: the end of the rebuild picks up the pending work.
func (t *Tracker) armLocked() {
	if t.rebuilding {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, t.signal)
}

func (t *Tracker) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// State reports the scheduling state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.scheduled:
		return StateScheduled
	case t.rebuilding:
		return StateRebuilding
	default:
		return StateIdle
	}
}

// Generation returns the generation of the published snapshot.
func (t *Tracker) Generation() uint64 {
	return t.publisher.Generation()
}

// LastError returns the error of the most recent failed rebuild, or nil once
// a later rebuild succeeded.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Pending returns the ticket of the latest request.
func (t *Tracker) Pending() Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Ticket(t.requested)
}

// Run executes scheduled rebuilds until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	defer t.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.wake:
			t.rebuild(ctx)
		}
	}
}

// RebuildNow runs any scheduled work synchronously, skipping the debounce.
// It returns the rebuild error, if any.
func (t *Tracker) RebuildNow(ctx context.Context) error {
	t.mu.Lock()
	target := t.requested
	if t.full || len(t.scopes) > 0 {
		t.scheduled = true
	}
	t.mu.Unlock()

	t.rebuild(ctx)
	return t.outcome(Ticket(target))
}

// WaitFor blocks until a snapshot covering ticket is published, a rebuild
// covering it failed, or ctx is done.
func (t *Tracker) WaitFor(ctx context.Context, ticket Ticket) error {
	for {
		t.mu.Lock()
		changed := t.changed
		done := t.completed >= uint64(ticket) || t.failed >= uint64(ticket)
		t.mu.Unlock()

		if done {
			return t.outcome(ticket)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Sync waits until every request made so far is reflected.
func (t *Tracker) Sync(ctx context.Context) error {
	return t.WaitFor(ctx, t.Pending())
}

func (t *Tracker) outcome(ticket Ticket) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed >= uint64(ticket) {
		return nil
	}
	if t.lastErr != nil {
		return t.lastErr
	}
	return nil
}

func (t *Tracker) rebuild(ctx context.Context) {
	t.buildMu.Lock()
	defer t.buildMu.Unlock()

	t.mu.Lock()
	if !t.scheduled {
		t.mu.Unlock()
		return
	}
	full := t.full
	scopes := make([]string, 0, len(t.scopes))
	for s := range t.scopes {
		scopes = append(scopes, s)
	}
	slices.Sort(scopes)
	target := t.requested
	t.full = false
	t.scopes = make(map[string]bool)
	t.scheduled = false
	t.rebuilding = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()

	if full {
		scopes = nil
	}
	err := t.buildAndPublish(ctx, scopes)

	t.mu.Lock()
	t.rebuilding = false
	if err != nil {
		t.lastErr = err
		t.failed = target
		// Keep the work so the next trigger retries it.
		if full {
			t.full = true
		}
		for _, s := range scopes {
			t.scopes[s] = true
		}
	} else {
		t.lastErr = nil
		t.completed = target
	}
	rearm := t.scheduled
	close(t.changed)
	t.changed = make(chan struct{})
	t.mu.Unlock()

	switch {
	case errors.Is(err, index.ErrAborted):
		log.Printf("Warning: rebuild aborted, keeping generation %d: %v", t.publisher.Generation(), err)
	case err != nil:
		log.Printf("Error: rebuild failed: %v", err)
	}
	// Events that arrived mid-rebuild run right away.
	if rearm {
		t.signal()
	}
}

func (t *Tracker) buildAndPublish(ctx context.Context, scopes []string) error {
	table := t.store.Table()
	prev := t.publisher.Current()

	snap, err := t.builder.Rebuild(ctx, prev, table, scopes)
	if err != nil {
		return err
	}
	if _, err := t.publisher.Publish(snap); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

func (t *Tracker) stopTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
