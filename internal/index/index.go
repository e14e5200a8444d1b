package index

import (
	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/roots"
)

// Index is the read API over the currently published snapshot. Every call
// captures the current snapshot once and answers from it; calls never block
// on a rebuild.
type Index struct {
	publisher *Publisher
	enum      fsenum.Enumerator
}

// New creates the query facade. enum is used only by content iteration.
func New(publisher *Publisher, enum fsenum.Enumerator) *Index {
	return &Index{publisher: publisher, enum: enum}
}

// Snapshot pins the current snapshot. Callers that need several answers to
// agree with each other should query the pinned snapshot directly.
func (ix *Index) Snapshot() *Snapshot {
	return ix.publisher.Current()
}

// Generation returns the generation of the current snapshot.
func (ix *Index) Generation() uint64 {
	return ix.publisher.Generation()
}

// Info returns the full classification of path.
func (ix *Index) Info(path string) (DirectoryInfo, error) {
	if err := roots.ValidatePath(path); err != nil {
		return DirectoryInfo{}, err
	}
	return ix.publisher.Current().Get(path), nil
}

// IsInContent reports whether path belongs to a module and is in the project.
func (ix *Index) IsInContent(path string) (bool, error) {
	info, err := ix.Info(path)
	return info.IsInContent(), err
}

// IsExcluded reports whether path is explicitly excluded.
func (ix *Index) IsExcluded(path string) (bool, error) {
	info, err := ix.Info(path)
	return info.Excluded, err
}

// IsIgnored reports whether path has an ignored name component.
func (ix *Index) IsIgnored(path string) (bool, error) {
	info, err := ix.Info(path)
	return info.Ignored, err
}

// ModuleFor returns the module owning path. With honorExclusion false the
// owner of an excluded path is still reported.
func (ix *Index) ModuleFor(path string, honorExclusion bool) (roots.ModuleID, bool, error) {
	info, err := ix.Info(path)
	if err != nil {
		return "", false, err
	}
	if info.OwningModule == "" || info.Ignored {
		return "", false, nil
	}
	if honorExclusion && info.Excluded {
		return "", false, nil
	}
	return info.OwningModule, true, nil
}

// ContentRootFor returns the nearest content root containing path.
func (ix *Index) ContentRootFor(path string) (string, bool, error) {
	info, err := ix.Info(path)
	if err != nil {
		return "", false, err
	}
	if !info.IsInContent() {
		return "", false, nil
	}
	return info.ContentRoot, true, nil
}

// SourceRootFor returns the nearest module source root containing path.
func (ix *Index) SourceRootFor(path string) (string, bool, error) {
	info, err := ix.Info(path)
	if err != nil {
		return "", false, err
	}
	if !info.IsInSource() {
		return "", false, nil
	}
	return info.SourceRoot, true, nil
}

// SourceKindFor returns the kind of the source root containing path.
func (ix *Index) SourceKindFor(path string) (roots.SourceKind, bool, error) {
	info, err := ix.Info(path)
	if err != nil {
		return "", false, err
	}
	if !info.IsInSource() {
		return "", false, nil
	}
	return info.SourceKind, true, nil
}

// IsInSource reports whether path lies in a module source root.
func (ix *Index) IsInSource(path string) (bool, error) {
	info, err := ix.Info(path)
	return info.IsInSource(), err
}

// IsInTestSource reports whether path lies in a test source root.
func (ix *Index) IsInTestSource(path string) (bool, error) {
	info, err := ix.Info(path)
	return info.IsInTestSource(), err
}

// IsInLibraryClasses reports whether path lies in a library classpath root,
// independent of module ownership.
func (ix *Index) IsInLibraryClasses(path string) (bool, error) {
	info, err := ix.Info(path)
	return info.IsInLibraryClasses(), err
}

// IsInLibrarySource reports whether path lies in a library source root.
func (ix *Index) IsInLibrarySource(path string) (bool, error) {
	info, err := ix.Info(path)
	return info.InLibrarySource, err
}

// Modules lists the modules of the current snapshot.
func (ix *Index) Modules() []roots.ModuleID {
	return ix.publisher.Current().Modules()
}
