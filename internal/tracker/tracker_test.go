package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/index"
	"github.com/mvp-joe/dirindex/internal/roots"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Tracker:
// - Pending declarations leave the tracker scheduled until a rebuild runs
// - RebuildNow publishes a new generation and returns to idle
// - Rapid invalidations collapse into a single rebuild
// - Store mutations schedule a rebuild on their own
// - Scoped invalidations pick up new directories
// - Events arriving during a rebuild re-arm a follow-up rebuild
// - An unavailable enumerator discards the rebuild and keeps the old snapshot
// - A later successful rebuild clears the error
// - WaitFor honors context cancellation

type gatedEnumerator struct {
	fsenum.Enumerator

	mu      sync.Mutex
	gateDir string
	entered chan struct{}
	release chan struct{}
	fail    error
}

func (g *gatedEnumerator) List(ctx context.Context, dir string) ([]fsenum.Entry, error) {
	g.mu.Lock()
	fail := g.fail
	gated := dir == g.gateDir
	if gated {
		g.gateDir = ""
	}
	g.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	if gated {
		close(g.entered)
		<-g.release
	}
	return g.Enumerator.List(ctx, dir)
}

func (g *gatedEnumerator) setFail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

func (g *gatedEnumerator) gate(dir string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gateDir = dir
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
}

type fixture struct {
	fs        afero.Fs
	enum      *gatedEnumerator
	store     *roots.Store
	publisher *index.Publisher
	tracker   *Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	for _, dir := range []string{"/proj/src/pkg", "/proj/build/out"} {
		require.NoError(t, fs.MkdirAll(dir, 0o755))
	}
	enum := &gatedEnumerator{Enumerator: fsenum.NewEnumerator(fs)}
	store := roots.NewStore()
	publisher := index.NewPublisher(nil)
	builder := index.NewBuilder(enum, fsenum.MustIgnoreMatcher(fsenum.DefaultIgnore))
	tr := New(store, builder, publisher, WithDebounce(20*time.Millisecond))

	require.NoError(t, store.ReplaceAllForModule("M1", []roots.Declaration{
		roots.ContentRoot("/proj", "M1"),
		roots.SourceRoot("/proj/src", "M1", roots.SourceProduction),
		roots.ExcludeRoot("/proj/build", "M1"),
	}))

	return &fixture{fs: fs, enum: enum, store: store, publisher: publisher, tracker: tr}
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.tracker.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestTracker_States(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// The initial declarations already scheduled a rebuild
	assert.Equal(t, StateScheduled, f.tracker.State())
	assert.Equal(t, uint64(1), f.tracker.Generation())

	require.NoError(t, f.tracker.RebuildNow(context.Background()))
	assert.Equal(t, StateIdle, f.tracker.State())
	assert.Equal(t, uint64(2), f.tracker.Generation())

	ok := f.publisher.Current().Get("/proj/src/pkg").IsInSource()
	assert.True(t, ok)

	// Nothing scheduled: no new generation
	require.NoError(t, f.tracker.RebuildNow(context.Background()))
	assert.Equal(t, uint64(2), f.tracker.Generation())

	assert.Equal(t, "rebuilding", StateRebuilding.String())
}

func TestTracker_CollapsesInvalidations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.tracker.RebuildNow(context.Background()))
	f.run(t)

	var last Ticket
	for range 10 {
		last = f.tracker.Invalidate("/proj/src")
	}
	require.NoError(t, f.tracker.WaitFor(waitCtx(t), last))

	assert.Equal(t, uint64(3), f.tracker.Generation())
	assert.Equal(t, StateIdle, f.tracker.State())
}

func TestTracker_StoreChangesTriggerRebuild(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.run(t)

	require.NoError(t, f.store.Add(roots.ExcludeRoot("/proj/src/pkg", "M1")))
	require.NoError(t, f.tracker.Sync(waitCtx(t)))

	snap := f.publisher.Current()
	assert.Equal(t, f.store.Revision(), snap.Revision())
	assert.True(t, snap.Get("/proj/src/pkg").Excluded)
}

func TestTracker_ScopedInvalidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.tracker.RebuildNow(context.Background()))
	f.run(t)

	require.NoError(t, f.fs.MkdirAll("/proj/src/added", 0o755))
	ticket := f.tracker.Invalidate("/proj/src/added")
	require.NoError(t, f.tracker.WaitFor(waitCtx(t), ticket))

	info, ok := f.publisher.Current().Lookup("/proj/src/added")
	require.True(t, ok)
	assert.True(t, info.IsInSource())
}

func TestTracker_RearmsDuringRebuild(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.tracker.RebuildNow(context.Background()))
	f.run(t)

	f.enum.gate("/proj/src")
	first := f.tracker.InvalidateAll()

	select {
	case <-f.enum.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild did not start")
	}
	assert.Equal(t, StateRebuilding, f.tracker.State())

	require.NoError(t, f.fs.MkdirAll("/proj/src/late", 0o755))
	second := f.tracker.Invalidate("/proj/src/late")
	assert.Equal(t, StateScheduled, f.tracker.State())
	close(f.enum.release)

	require.NoError(t, f.tracker.WaitFor(waitCtx(t), first))
	require.NoError(t, f.tracker.WaitFor(waitCtx(t), second))

	assert.Equal(t, uint64(4), f.tracker.Generation())
	_, ok := f.publisher.Current().Lookup("/proj/src/late")
	assert.True(t, ok)
}

func TestTracker_AbortKeepsSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.tracker.RebuildNow(context.Background()))
	before := f.publisher.Current()

	f.enum.setFail(fmt.Errorf("disconnected: %w", fsenum.ErrUnavailable))
	f.tracker.InvalidateAll()

	err := f.tracker.RebuildNow(context.Background())
	assert.ErrorIs(t, err, index.ErrAborted)
	assert.ErrorIs(t, f.tracker.LastError(), fsenum.ErrUnavailable)
	assert.Same(t, before, f.publisher.Current())

	// The failed work is retried on the next attempt
	f.enum.setFail(nil)
	require.NoError(t, f.tracker.RebuildNow(context.Background()))
	assert.NoError(t, f.tracker.LastError())
	assert.Equal(t, before.Generation()+1, f.tracker.Generation())
}

func TestTracker_WaitForCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.tracker.InvalidateAll()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := f.tracker.WaitFor(ctx, ticket)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
