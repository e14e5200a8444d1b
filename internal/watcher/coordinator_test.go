package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/dirindex/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Coordinator:
// - Directory changes schedule a scoped rebuild
// - A checkout pauses directory events and schedules a full rebuild
// - Works without a checkout watcher
// - Startup failures of either watcher are returned and both are stopped
// - Context cancellation stops both watchers

type mockDirWatcher struct {
	mu          sync.Mutex
	startErr    error
	callback    func(dirs []string)
	pauseCount  int
	resumeCount int
	stopped     bool
	started     chan struct{}
}

func newMockDirWatcher() *mockDirWatcher {
	return &mockDirWatcher{started: make(chan struct{})}
}

func (m *mockDirWatcher) Start(ctx context.Context, callback func(dirs []string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.callback = callback
	close(m.started)
	return nil
}

func (m *mockDirWatcher) Watch(string) error { return nil }

func (m *mockDirWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockDirWatcher) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCount++
}

func (m *mockDirWatcher) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeCount++
}

func (m *mockDirWatcher) trigger(dirs []string) {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	cb(dirs)
}

type mockCheckoutWatcher struct {
	mu       sync.Mutex
	startErr error
	callback func(from, to string)
	stopped  bool
}

func (m *mockCheckoutWatcher) Start(ctx context.Context, callback func(from, to string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.callback = callback
	return nil
}

func (m *mockCheckoutWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockCheckoutWatcher) trigger(from, to string) {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	cb(from, to)
}

type mockInvalidator struct {
	mu     sync.Mutex
	scopes [][]string
	full   int
}

func (m *mockInvalidator) Invalidate(scopes ...string) tracker.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(scopes) == 0 {
		m.full++
	} else {
		m.scopes = append(m.scopes, scopes)
	}
	return tracker.Ticket(len(m.scopes) + m.full)
}

func (m *mockInvalidator) InvalidateAll() tracker.Ticket {
	return m.Invalidate()
}

func runCoordinator(t *testing.T, c *Coordinator, dirs *mockDirWatcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	select {
	case <-dirs.started:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not start")
	}
	return cancel, errCh
}

func TestCoordinator_DirectoryChanges(t *testing.T) {
	t.Parallel()

	dirs := newMockDirWatcher()
	inv := &mockInvalidator{}
	c := NewCoordinator(nil, dirs, inv)

	cancel, errCh := runCoordinator(t, c, dirs)
	dirs.trigger([]string{"/proj/a", "/proj/b"})
	dirs.trigger(nil)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	assert.Equal(t, [][]string{{"/proj/a", "/proj/b"}}, inv.scopes)
	assert.Zero(t, inv.full)
	assert.True(t, dirs.stopped)
}

func TestCoordinator_Checkout(t *testing.T) {
	t.Parallel()

	checkout := &mockCheckoutWatcher{}
	dirs := newMockDirWatcher()
	inv := &mockInvalidator{}
	c := NewCoordinator(checkout, dirs, inv)

	cancel, errCh := runCoordinator(t, c, dirs)
	checkout.trigger("main", "feature")

	cancel()
	<-errCh

	inv.mu.Lock()
	assert.Equal(t, 1, inv.full)
	inv.mu.Unlock()

	dirs.mu.Lock()
	defer dirs.mu.Unlock()
	assert.Equal(t, 1, dirs.pauseCount)
	assert.Equal(t, 1, dirs.resumeCount)
	assert.True(t, checkout.stopped)
}

func TestCoordinator_StartupErrors(t *testing.T) {
	t.Parallel()

	t.Run("checkout watcher", func(t *testing.T) {
		checkout := &mockCheckoutWatcher{startErr: errors.New("no repo")}
		dirs := newMockDirWatcher()
		c := NewCoordinator(checkout, dirs, &mockInvalidator{})

		err := c.Start(context.Background())
		require.Error(t, err)
		assert.True(t, dirs.stopped)
		assert.True(t, checkout.stopped)
	})

	t.Run("directory watcher", func(t *testing.T) {
		dirs := newMockDirWatcher()
		dirs.startErr = errors.New("too many watches")
		c := NewCoordinator(nil, dirs, &mockInvalidator{})

		err := c.Start(context.Background())
		require.Error(t, err)
		assert.True(t, dirs.stopped)
	})
}
