package index

import (
	"path/filepath"

	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/roots"
)

// Classifier computes DirectoryInfo values from a frozen declaration table.
// It is a pure function of the table, the ignore patterns and the path.
type Classifier struct {
	table  *roots.Table
	ignore *fsenum.IgnoreMatcher
}

// NewClassifier creates a classifier over table. ignore may be nil.
func NewClassifier(table *roots.Table, ignore *fsenum.IgnoreMatcher) *Classifier {
	return &Classifier{table: table, ignore: ignore}
}

// Table returns the declaration table the classifier resolves against.
func (c *Classifier) Table() *roots.Table { return c.table }

// Classify resolves path by nearest-ancestor lookup. path must already be
// absolute and canonical.
func (c *Classifier) Classify(path string) DirectoryInfo {
	hierarchy := c.hierarchy(path)
	if len(hierarchy) == 0 {
		return notUnderRoots
	}

	content := nearestContentRoot(hierarchy)
	classRoot := c.libraryRoot(hierarchy, false)
	sourceLib := c.libraryRoot(hierarchy, true)

	if content == nil && classRoot == "" && sourceLib == "" {
		if isExcluded(hierarchy) {
			return DirectoryInfo{Excluded: true}
		}
		return notUnderRoots
	}

	info := DirectoryInfo{
		LibraryClassRoot:  classRoot,
		LibrarySourceRoot: sourceLib,
		InLibrarySource:   sourceLib != "",
	}
	if content != nil {
		info.ContentRoot = content.Path
		info.OwningModule = ownerOf(content)
	}

	// Exclusion wins over ignored names.
	if isExcluded(hierarchy) {
		info.Excluded = true
		return info
	}

	boundary := hierarchy[0].Path
	if content != nil {
		boundary = content.Path
	}
	if c.hasIgnoredComponent(path, boundary) {
		return ignoredInfo
	}

	if content != nil {
		for _, e := range hierarchy {
			if len(e.Path) < len(content.Path) {
				break
			}
			if kind, ok := e.SourceOf(info.OwningModule); ok {
				info.SourceRoot = e.Path
				info.SourceKind = kind
				break
			}
		}
	}

	info.InProject = true
	return info
}

// ClassifyChild derives the info of child from its parent's info. Only
// registered roots and ignored names force a full resolution.
func (c *Classifier) ClassifyChild(parent DirectoryInfo, child string) DirectoryInfo {
	if _, ok := c.table.Lookup(child); ok {
		return c.Classify(child)
	}
	if !parent.Ignored && parent.ContentRoot == "" && parent.LibraryClassRoot == "" && parent.LibrarySourceRoot == "" {
		return parent
	}
	if parent.Excluded {
		return parent
	}
	if parent.Ignored || c.ignore.IsIgnored(filepath.Base(child)) {
		return ignoredInfo
	}
	return parent
}

// hierarchy returns the declared entries at path and its ancestors, nearest
// first.
func (c *Classifier) hierarchy(path string) []*roots.Entry {
	var out []*roots.Entry
	for dir := path; dir != ""; dir = roots.Parent(dir) {
		if e, ok := c.table.Lookup(dir); ok {
			out = append(out, e)
		}
	}
	return out
}

// hasIgnoredComponent checks the path components strictly below boundary.
func (c *Classifier) hasIgnoredComponent(path, boundary string) bool {
	if c.ignore == nil {
		return false
	}
	for dir := path; dir != "" && dir != boundary; dir = roots.Parent(dir) {
		if c.ignore.IsIgnored(filepath.Base(dir)) {
			return true
		}
	}
	return false
}

// libraryRoot finds the nearest library class (or source) root that is not
// hidden by an exclusion of every library declaring it.
func (c *Classifier) libraryRoot(hierarchy []*roots.Entry, source bool) string {
	hidden := make(map[string]bool)
	for _, e := range hierarchy {
		for _, lib := range e.LibraryExcludes {
			hidden[lib] = true
		}
		libs := e.LibraryClasses
		if source {
			libs = e.LibrarySources
		}
		for _, lib := range libs {
			if !hidden[lib] {
				return e.Path
			}
		}
	}
	return ""
}

// isExcluded applies "most specific root wins": the nearest exclusion counts
// unless a nearer content or source root re-includes the path. At equal
// specificity the exclusion wins, except over a root of a module that does
// not itself exclude the path.
func isExcluded(hierarchy []*roots.Entry) bool {
	for _, e := range hierarchy {
		if e.IsExclusion() {
			return !reincludes(e)
		}
		if e.IsInclusion() {
			return false
		}
	}
	return false
}

func reincludes(e *roots.Entry) bool {
	if e.ExcludedByProject() {
		return false
	}
	for _, m := range e.ContentOwners {
		if !e.ExcludedByModule(m) {
			return true
		}
	}
	for _, s := range e.Sources {
		if !e.ExcludedByModule(s.Module) {
			return true
		}
	}
	return false
}

func nearestContentRoot(hierarchy []*roots.Entry) *roots.Entry {
	for _, e := range hierarchy {
		if e.IsContentRoot() {
			return e
		}
	}
	return nil
}

// ownerOf picks the owner of a content root entry: the smallest module id
// that does not exclude the root, falling back to the smallest overall.
func ownerOf(e *roots.Entry) roots.ModuleID {
	for _, m := range e.ContentOwners {
		if !e.ExcludedByModule(m) {
			return m
		}
	}
	return e.Owner()
}
