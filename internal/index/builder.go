package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/roots"
)

// Builder produces snapshots by walking the directories below registered
// roots. It never touches the file system except through its Enumerator.
type Builder struct {
	enum      fsenum.Enumerator
	ignore    *fsenum.IgnoreMatcher
	cacheSize int
	progress  func(dirs int)
	verbose   bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithProgress registers a callback invoked after every enumerated directory
// with the running count.
func WithProgress(fn func(dirs int)) BuilderOption {
	return func(b *Builder) { b.progress = fn }
}

// WithLookupCacheSize bounds the per-snapshot lookup cache.
func WithLookupCacheSize(n int) BuilderOption {
	return func(b *Builder) { b.cacheSize = n }
}

// WithVerbose enables per-build timing logs.
func WithVerbose(v bool) BuilderOption {
	return func(b *Builder) { b.verbose = v }
}

// NewBuilder creates a Builder. ignore may be nil.
func NewBuilder(enum fsenum.Enumerator, ignore *fsenum.IgnoreMatcher, opts ...BuilderOption) *Builder {
	b := &Builder{
		enum:      enum,
		ignore:    ignore,
		cacheSize: DefaultLookupCacheSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// walkState accumulates one build.
type walkState struct {
	ctx        context.Context
	classifier *Classifier
	entries    map[string]*DirectoryInfo
	interned   map[DirectoryInfo]*DirectoryInfo
}

func (w *walkState) put(path string, info DirectoryInfo) {
	p, ok := w.interned[info]
	if !ok {
		p = &info
		w.interned[info] = p
	}
	w.entries[path] = p
}

// Build walks every traversal root of table and returns a new snapshot.
// Vanished roots are skipped. Cancellation and an unavailable enumerator
// abort the build with ErrAborted.
func (b *Builder) Build(ctx context.Context, table *roots.Table) (*Snapshot, error) {
	start := time.Now()
	w := b.newWalk(ctx, table, 0)

	for _, root := range table.TraversalRoots() {
		if err := b.walkRoot(w, root); err != nil {
			return nil, err
		}
	}

	snap := newSnapshot(w.classifier, w.entries, b.cacheSize)
	if b.verbose {
		log.Printf("Built snapshot %s: %d directories from %d roots in %v",
			snap.ID(), len(w.entries), len(table.TraversalRoots()), time.Since(start))
	}
	return snap, nil
}

// Rebuild re-enumerates only the given subtrees, reusing prev for the rest.
// It falls back to a full Build when the declarations changed since prev,
// when prev was classified with different ignore patterns, or when no scope
// is given.
func (b *Builder) Rebuild(ctx context.Context, prev *Snapshot, table *roots.Table, scopes []string) (*Snapshot, error) {
	if prev == nil || len(scopes) == 0 || prev.Revision() != table.Revision() || prev.Ignore() != b.ignore {
		return b.Build(ctx, table)
	}

	start := time.Now()
	scopes = outermost(scopes)
	w := b.newWalk(ctx, prev.Table(), len(prev.entries))

	for p, info := range prev.entries {
		if !underAny(p, scopes) {
			w.put(p, *info)
		}
	}

	for _, scope := range scopes {
		parent := roots.Parent(scope)
		if parentInfo, ok := w.entries[parent]; ok && !parentInfo.IsBoundary() {
			exists, err := b.enum.Exists(ctx, scope)
			if err != nil {
				if abortErr := abortCause(ctx, err); abortErr != nil {
					return nil, abortErr
				}
				log.Printf("Warning: cannot stat %s: %v", scope, err)
			}
			if exists {
				if err := b.walkFrom(w, scope, w.classifier.ClassifyChild(*parentInfo, scope)); err != nil {
					return nil, err
				}
			}
		}
		for _, root := range table.TraversalRoots() {
			if !roots.IsUnder(root, scope) {
				continue
			}
			if err := b.walkRoot(w, root); err != nil {
				return nil, err
			}
		}
	}

	snap := newSnapshot(w.classifier, w.entries, b.cacheSize)
	if b.verbose {
		log.Printf("Rebuilt snapshot %s: %d scope(s), %d directories in %v",
			snap.ID(), len(scopes), len(w.entries), time.Since(start))
	}
	return snap, nil
}

func (b *Builder) newWalk(ctx context.Context, table *roots.Table, sizeHint int) *walkState {
	return &walkState{
		ctx:        ctx,
		classifier: NewClassifier(table, b.ignore),
		entries:    make(map[string]*DirectoryInfo, sizeHint),
		interned:   make(map[DirectoryInfo]*DirectoryInfo),
	}
}

// walkRoot walks a declared root unless it was already reached from an
// enclosing root or no longer exists.
func (b *Builder) walkRoot(w *walkState, root string) error {
	if _, seen := w.entries[root]; seen {
		return nil
	}
	exists, err := b.enum.Exists(w.ctx, root)
	if err != nil {
		if abortErr := abortCause(w.ctx, err); abortErr != nil {
			return abortErr
		}
		log.Printf("Warning: cannot stat root %s: %v", root, err)
		return nil
	}
	if !exists {
		return nil
	}
	return b.walkFrom(w, root, w.classifier.Classify(root))
}

type frame struct {
	path string
	info DirectoryInfo
}

// walkFrom records dir and its descendants. Excluded and ignored directories
// are recorded but not expanded.
func (b *Builder) walkFrom(w *walkState, dir string, info DirectoryInfo) error {
	stack := []frame{{path: dir, info: info}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := w.entries[f.path]; seen {
			continue
		}
		if f.info == notUnderRoots {
			continue
		}
		w.put(f.path, f.info)
		if b.progress != nil {
			b.progress(len(w.entries))
		}
		if f.info.IsBoundary() {
			continue
		}

		children, err := b.enum.List(w.ctx, f.path)
		if err != nil {
			if abortErr := abortCause(w.ctx, err); abortErr != nil {
				return abortErr
			}
			if !errors.Is(err, fsenum.ErrNotExist) {
				log.Printf("Warning: skipping %s: %v", f.path, err)
			}
			continue
		}

		// Push in reverse so children are visited in name order.
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			if !child.IsDir {
				continue
			}
			stack = append(stack, frame{
				path: child.Path,
				info: w.classifier.ClassifyChild(f.info, child.Path),
			})
		}
	}
	return nil
}

// abortCause returns a wrapped ErrAborted when err means the whole build
// must be discarded.
func abortCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrAborted, ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	if errors.Is(err, fsenum.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return nil
}

// outermost drops scopes nested inside other scopes.
func outermost(scopes []string) []string {
	sorted := slices.Clone(scopes)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var out []string
	for _, s := range sorted {
		if !underAny(s, out) {
			out = append(out, s)
		}
	}
	return out
}

func underAny(p string, dirs []string) bool {
	for _, d := range dirs {
		if roots.IsUnder(p, d) {
			return true
		}
	}
	return false
}
