package index

import (
	"github.com/mvp-joe/dirindex/internal/roots"
)

// DirectoryInfo is the classification of one location. It is a plain value:
// two locations with the same declared ancestry compare equal with ==.
type DirectoryInfo struct {
	OwningModule      roots.ModuleID   `json:"owning_module,omitempty"`
	ContentRoot       string           `json:"content_root,omitempty"`
	SourceRoot        string           `json:"source_root,omitempty"`
	SourceKind        roots.SourceKind `json:"source_kind,omitempty"`
	LibraryClassRoot  string           `json:"library_class_root,omitempty"`
	LibrarySourceRoot string           `json:"library_source_root,omitempty"`
	InLibrarySource   bool             `json:"in_library_source"`
	Excluded          bool             `json:"excluded"`
	Ignored           bool             `json:"ignored"`
	InProject         bool             `json:"in_project"`
}

var (
	notUnderRoots = DirectoryInfo{}
	ignoredInfo   = DirectoryInfo{Ignored: true}
)

// IsInContent reports whether the location belongs to a module and is part
// of the project.
func (i DirectoryInfo) IsInContent() bool {
	return i.OwningModule != "" && i.InProject
}

// IsInSource reports whether the location is inside a module source root.
func (i DirectoryInfo) IsInSource() bool {
	return i.IsInContent() && i.SourceRoot != ""
}

// IsInTestSource reports whether the location is inside a test source root.
func (i DirectoryInfo) IsInTestSource() bool {
	return i.IsInSource() && i.SourceKind.IsTest()
}

// IsInLibraryClasses reports whether the location is inside a library
// classpath root.
func (i DirectoryInfo) IsInLibraryClasses() bool {
	return i.LibraryClassRoot != ""
}

// IsBoundary reports whether traversal stops at this location.
func (i DirectoryInfo) IsBoundary() bool {
	return i.Excluded || i.Ignored
}
