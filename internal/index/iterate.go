package index

import (
	"context"
	"errors"
	"log"

	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/roots"
)

// ContentVisitor receives every in-content directory and file. Returning
// false stops the iteration.
type ContentVisitor func(path string, isDir bool) bool

// IterateContent visits the content of every module depth-first. Each file
// is visited once even when content roots nest: a nested content root is
// walked on its own, never from its parent. The whole traversal answers from
// one pinned snapshot.
func (ix *Index) IterateContent(ctx context.Context, visitor ContentVisitor) error {
	snap := ix.publisher.Current()
	w := &contentWalker{ctx: ctx, snap: snap, enum: ix.enum, visitor: visitor, skipNested: true}

	for _, root := range snap.Table().ContentRoots() {
		cont, err := w.walk(root, snap.Get(root))
		if err != nil || !cont {
			return err
		}
	}
	return nil
}

// IterateContentUnder visits in-content directories and files below dir,
// including nested modules.
func (ix *Index) IterateContentUnder(ctx context.Context, dir string, visitor ContentVisitor) error {
	if err := roots.ValidatePath(dir); err != nil {
		return err
	}
	snap := ix.publisher.Current()
	w := &contentWalker{ctx: ctx, snap: snap, enum: ix.enum, visitor: visitor}
	_, err := w.walk(dir, snap.Get(dir))
	return err
}

type contentWalker struct {
	ctx        context.Context
	snap       *Snapshot
	enum       fsenum.Enumerator
	visitor    ContentVisitor
	skipNested bool
}

// walk returns false once the visitor asked to stop.
func (w *contentWalker) walk(dir string, info DirectoryInfo) (bool, error) {
	if err := w.ctx.Err(); err != nil {
		return false, err
	}

	table := w.snap.Table()
	if !info.IsInContent() {
		// Content below a directory outside the project can only come from
		// a root declared further down.
		for _, root := range table.InclusionRootsBelow(dir) {
			if w.skipNested && w.isContentRoot(root) {
				continue
			}
			cont, err := w.walk(root, w.snap.Get(root))
			if err != nil || !cont {
				return cont, err
			}
		}
		return true, nil
	}

	if !w.visitor(dir, true) {
		return false, nil
	}

	children, err := w.enum.List(w.ctx, dir)
	if err != nil {
		if w.ctx.Err() != nil || errors.Is(err, fsenum.ErrUnavailable) {
			return false, err
		}
		if !errors.Is(err, fsenum.ErrNotExist) {
			log.Printf("Warning: skipping %s: %v", dir, err)
		}
		return true, nil
	}

	classifier := w.snap.classifier
	for _, child := range children {
		if !child.IsDir {
			if classifier.ClassifyChild(info, child.Path).IsInContent() {
				if !w.visitor(child.Path, false) {
					return false, nil
				}
			}
			continue
		}
		if w.skipNested && w.isContentRoot(child.Path) {
			continue
		}
		childInfo, ok := w.snap.Lookup(child.Path)
		if !ok {
			childInfo = classifier.ClassifyChild(info, child.Path)
		}
		cont, err := w.walk(child.Path, childInfo)
		if err != nil || !cont {
			return cont, err
		}
	}
	return true, nil
}

func (w *contentWalker) isContentRoot(path string) bool {
	e, ok := w.snap.Table().Lookup(path)
	return ok && e.IsContentRoot()
}
