// Package workspace wires a configured workspace into a live directory
// index: configuration, root store, snapshot builder, rebuild tracker and
// file system watchers.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/dirindex/internal/config"
	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/git"
	"github.com/mvp-joe/dirindex/internal/index"
	"github.com/mvp-joe/dirindex/internal/roots"
	"github.com/mvp-joe/dirindex/internal/tracker"
	"github.com/mvp-joe/dirindex/internal/watcher"
)

// ErrWatchUnsupported is returned by Start when watching was requested on a
// file system other than the OS one.
var ErrWatchUnsupported = errors.New("watching requires the OS file system")

// Workspace is an open workspace with a published index.
type Workspace struct {
	root     string
	fs       afero.Fs
	global   *config.GlobalConfig
	progress func(dirs int)
	verbose  bool

	store     *roots.Store
	publisher *index.Publisher
	index     *index.Index
	tracker   *tracker.Tracker
	ignore    *fsenum.IgnoreMatcher

	mu        sync.Mutex // guards cfg, dirs and the applied sets
	cfg       *config.Config
	libraries map[string]bool
	excludes  []roots.Declaration
	dirs      watcher.DirWatcher // set while Start watches
}

// Option configures Open.
type Option func(*Workspace)

// WithFs serves the workspace from fs instead of the OS file system.
func WithFs(fs afero.Fs) Option {
	return func(w *Workspace) { w.fs = fs }
}

// WithGlobalConfig uses cfg instead of loading ~/.dirindex/config.yml.
func WithGlobalConfig(cfg *config.GlobalConfig) Option {
	return func(w *Workspace) { w.global = cfg }
}

// WithProgress reports the number of scanned directories during builds.
func WithProgress(fn func(dirs int)) Option {
	return func(w *Workspace) { w.progress = fn }
}

// WithVerbose logs every scanned directory.
func WithVerbose(v bool) Option {
	return func(w *Workspace) { w.verbose = v }
}

// Open loads the configuration of the workspace rooted at root, declares
// its roots and publishes the first snapshot.
func Open(ctx context.Context, root string, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		fs:        afero.NewOsFs(),
		store:     roots.NewStore(),
		publisher: index.NewPublisher(index.EmptySnapshot()),
		libraries: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	canonical, err := w.canonicalRoot(root)
	if err != nil {
		return nil, err
	}
	w.root = canonical

	if w.global == nil {
		if w.global, err = config.LoadGlobalConfig(); err != nil {
			return nil, err
		}
	}

	cfg, err := w.loadConfig()
	if err != nil {
		return nil, err
	}

	w.ignore, err = fsenum.NewIgnoreMatcher(cfg.Ignore)
	if err != nil {
		return nil, err
	}

	enum := fsenum.NewEnumerator(w.fs)
	builderOpts := []index.BuilderOption{
		index.WithLookupCacheSize(cfg.Cache.LookupCacheSize),
		index.WithVerbose(w.verbose || w.global.Verbose),
	}
	if w.progress != nil {
		builderOpts = append(builderOpts, index.WithProgress(w.progress))
	}
	builder := index.NewBuilder(enum, w.ignore, builderOpts...)

	w.index = index.New(w.publisher, enum)
	w.tracker = tracker.New(w.store, builder, w.publisher,
		tracker.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond))

	if err := w.apply(cfg); err != nil {
		return nil, err
	}
	if err := w.tracker.RebuildNow(ctx); err != nil {
		return nil, fmt.Errorf("initial build failed: %w", err)
	}
	w.logAnomalies()

	return w, nil
}

// canonicalRoot returns root as an absolute path with symlinks resolved when
// it lives on the OS file system.
func (w *Workspace) canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if _, ok := w.fs.(*afero.OsFs); ok {
		if abs, err = filepath.EvalSymlinks(abs); err != nil {
			return "", fmt.Errorf("failed to resolve workspace root: %w", err)
		}
	}
	info, err := w.fs.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workspace root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return abs, nil
}

func (w *Workspace) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(w.root, config.WithFs(w.fs)).Load()
	if err != nil {
		return nil, err
	}
	cfg.Merge(w.global)
	return cfg, nil
}

// apply brings the store in line with cfg. Modules and libraries that are no
// longer configured are removed.
func (w *Workspace) apply(cfg *config.Config) error {
	decls, err := cfg.Declarations(w.root)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range decls.Modules {
		if err := w.store.ReplaceAllForModule(id, decls.Roots[id]); err != nil {
			return fmt.Errorf("module %s: %w", id, err)
		}
		if err := w.store.SetDependencies(id, decls.Dependencies[id]); err != nil {
			return fmt.Errorf("module %s: %w", id, err)
		}
	}
	for _, id := range w.store.Modules() {
		if !slices.Contains(decls.Modules, id) {
			w.store.RemoveModule(id)
		}
	}

	for name, libDecls := range decls.Libraries {
		if err := w.store.ReplaceAllForLibrary(name, libDecls); err != nil {
			return fmt.Errorf("library %s: %w", name, err)
		}
	}
	for name := range w.libraries {
		if _, ok := decls.Libraries[name]; !ok {
			if err := w.store.ReplaceAllForLibrary(name, nil); err != nil {
				return fmt.Errorf("library %s: %w", name, err)
			}
		}
	}
	w.libraries = make(map[string]bool, len(decls.Libraries))
	for name := range decls.Libraries {
		w.libraries[name] = true
	}

	for _, d := range w.excludes {
		if !slices.Contains(decls.ProjectExcludes, d) {
			w.store.Remove(d)
		}
	}
	for _, d := range decls.ProjectExcludes {
		if err := w.store.Add(d); err != nil {
			return fmt.Errorf("project exclude: %w", err)
		}
	}
	w.excludes = decls.ProjectExcludes

	if !slices.Equal(cfg.Ignore, w.ignore.Patterns()) {
		log.Printf("Warning: ignore patterns changed, reopen the workspace to apply them")
	}
	w.cfg = cfg
	return nil
}

func (w *Workspace) logAnomalies() {
	for _, a := range w.store.Anomalies() {
		log.Printf("Warning: content root %s is declared by modules %v, using %s", a.Path, a.Modules, a.Winner)
	}
}

// Reload re-reads the configuration, applies it and rebuilds the index.
// On a configuration error the current declarations stay in place.
func (w *Workspace) Reload(ctx context.Context) error {
	cfg, err := w.loadConfig()
	if err != nil {
		return err
	}
	if err := w.apply(cfg); err != nil {
		return err
	}
	if err := w.tracker.RebuildNow(ctx); err != nil {
		return err
	}
	w.logAnomalies()
	w.watchRoots()
	return nil
}

// watchRoots registers the current traversal roots with the running
// directory watcher.
func (w *Workspace) watchRoots() {
	w.mu.Lock()
	dirs := w.dirs
	w.mu.Unlock()
	if dirs == nil {
		return
	}
	for _, root := range outermost(w.store.Table().TraversalRoots()) {
		if err := dirs.Watch(root); err != nil {
			log.Printf("Warning: failed to watch %s: %v", root, err)
		}
	}
}

// Start runs the rebuild loop and, when enabled, the file system watchers.
// Blocks until ctx is cancelled or a watcher fails.
func (w *Workspace) Start(ctx context.Context) error {
	cfg := w.Config()

	var coordinator *watcher.Coordinator
	if cfg.Watch.Enabled {
		var dirs watcher.DirWatcher
		var err error
		if coordinator, dirs, err = w.newCoordinator(cfg); err != nil {
			return err
		}
		w.mu.Lock()
		w.dirs = dirs
		w.mu.Unlock()
		defer func() {
			w.mu.Lock()
			w.dirs = nil
			w.mu.Unlock()
		}()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.tracker.Run(ctx) })
	if coordinator != nil {
		g.Go(func() error { return coordinator.Start(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Workspace) newCoordinator(cfg *config.Config) (*watcher.Coordinator, watcher.DirWatcher, error) {
	if _, ok := w.fs.(*afero.OsFs); !ok {
		return nil, nil, ErrWatchUnsupported
	}

	debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
	dirs, err := watcher.NewDirWatcher(outermost(w.store.Table().TraversalRoots()), w.ignore, debounce,
		watcher.WithBoundary(w.isWatchBoundary))
	if err != nil {
		return nil, nil, err
	}

	var checkout watcher.CheckoutWatcher
	if cfg.Watch.Checkout {
		if gitDir := git.Default().GetGitDir(w.root); gitDir != "" {
			if checkout, err = watcher.NewCheckoutWatcher(gitDir); err != nil {
				log.Printf("Warning: checkout detection disabled: %v", err)
				checkout = nil
			}
		}
	}

	return watcher.NewCoordinator(checkout, dirs, w.tracker), dirs, nil
}

// isWatchBoundary reports whether dir is an excluded directory with no
// declared root at or below it. Changes inside it cannot affect the index.
func (w *Workspace) isWatchBoundary(dir string) bool {
	snap := w.index.Snapshot()
	if !snap.Get(dir).Excluded {
		return false
	}
	return !slices.ContainsFunc(snap.Table().TraversalRoots(), func(p string) bool {
		return roots.IsUnder(p, dir)
	})
}

// Root returns the canonical workspace root.
func (w *Workspace) Root() string { return w.root }

// Config returns the configuration applied last.
func (w *Workspace) Config() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Index returns the query facade.
func (w *Workspace) Index() *index.Index { return w.index }

// Tracker returns the rebuild tracker.
func (w *Workspace) Tracker() *tracker.Tracker { return w.tracker }

// Store returns the root declaration store.
func (w *Workspace) Store() *roots.Store { return w.store }

// Publisher returns the snapshot publisher.
func (w *Workspace) Publisher() *index.Publisher { return w.publisher }

// outermost drops paths nested below another path of the sorted input.
func outermost(sorted []string) []string {
	var out []string
	for _, p := range sorted {
		if slices.ContainsFunc(out, func(o string) bool { return roots.IsUnder(p, o) }) {
			continue
		}
		out = append(out, p)
	}
	return out
}
