package roots

import (
	"fmt"
	"strings"
)

// ModuleID identifies a module (a named partition of the workspace).
type ModuleID string

// Kind is the role a declared root plays.
type Kind int

const (
	KindContent Kind = iota
	KindSource
	KindExclude
	KindLibraryClasses
	KindLibrarySources
	KindLibraryExclude
)

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindSource:
		return "source"
	case KindExclude:
		return "exclude"
	case KindLibraryClasses:
		return "library-classes"
	case KindLibrarySources:
		return "library-sources"
	case KindLibraryExclude:
		return "library-exclude"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsLibrary reports whether the kind belongs to a library rather than a module.
func (k Kind) IsLibrary() bool {
	return k == KindLibraryClasses || k == KindLibrarySources || k == KindLibraryExclude
}

// SourceKind tags a source root with its role. The set is open: unknown
// values are carried through unchanged.
type SourceKind string

const (
	SourceProduction         SourceKind = "production"
	SourceTest               SourceKind = "test"
	SourceProductionResource SourceKind = "production_resource"
	SourceTestResource       SourceKind = "test_resource"
	SourceGenerated          SourceKind = "generated"
	SourceTestGenerated      SourceKind = "test_generated"
)

// KnownSourceKinds lists the source kinds understood out of the box.
var KnownSourceKinds = []SourceKind{
	SourceProduction,
	SourceTest,
	SourceProductionResource,
	SourceTestResource,
	SourceGenerated,
	SourceTestGenerated,
}

// IsTest reports whether sources of this kind are test sources.
func (k SourceKind) IsTest() bool {
	return k == SourceTest || k == SourceTestResource || k == SourceTestGenerated ||
		strings.HasPrefix(string(k), "test_")
}

// IsResource reports whether the kind holds resources rather than code.
func (k SourceKind) IsResource() bool {
	return strings.HasSuffix(string(k), "_resource")
}

// Declaration is one declared root.
//
// Module is set for content, source and exclude roots. An exclude root with
// an empty Module applies project-wide. Library is an optional grouping name
// for library roots; library roots never have an owning module.
type Declaration struct {
	Kind       Kind       `json:"kind"`
	Path       string     `json:"path"`
	Module     ModuleID   `json:"module,omitempty"`
	Library    string     `json:"library,omitempty"`
	SourceKind SourceKind `json:"source_kind,omitempty"`
}

// ContentRoot declares dir as a content root of module.
func ContentRoot(dir string, module ModuleID) Declaration {
	return Declaration{Kind: KindContent, Path: dir, Module: module}
}

// SourceRoot declares dir as a source root of the given kind.
func SourceRoot(dir string, module ModuleID, kind SourceKind) Declaration {
	return Declaration{Kind: KindSource, Path: dir, Module: module, SourceKind: kind}
}

// ExcludeRoot declares dir as excluded. An empty module excludes project-wide.
func ExcludeRoot(dir string, module ModuleID) Declaration {
	return Declaration{Kind: KindExclude, Path: dir, Module: module}
}

// LibraryClassRoot declares a library classpath root.
func LibraryClassRoot(dir, library string) Declaration {
	return Declaration{Kind: KindLibraryClasses, Path: dir, Library: library}
}

// LibrarySourceRoot declares a library source root.
func LibrarySourceRoot(dir, library string) Declaration {
	return Declaration{Kind: KindLibrarySources, Path: dir, Library: library}
}

// LibraryExcludeRoot hides a subtree of a library's roots.
func LibraryExcludeRoot(dir, library string) Declaration {
	return Declaration{Kind: KindLibraryExclude, Path: dir, Library: library}
}

func (d Declaration) String() string {
	owner := string(d.Module)
	if d.Kind.IsLibrary() {
		owner = d.Library
	}
	if d.Kind == KindSource {
		return fmt.Sprintf("%s[%s](%s, %s)", d.Kind, d.SourceKind, d.Path, owner)
	}
	return fmt.Sprintf("%s(%s, %s)", d.Kind, d.Path, owner)
}

// validate checks the declaration is well formed.
func (d Declaration) validate() error {
	if err := ValidatePath(d.Path); err != nil {
		return err
	}
	switch d.Kind {
	case KindContent, KindSource:
		if d.Module == "" {
			return fmt.Errorf("%w: %s requires an owning module", ErrInvalidDeclaration, d.Kind)
		}
	case KindExclude:
	case KindLibraryClasses, KindLibrarySources, KindLibraryExclude:
		if d.Module != "" {
			return fmt.Errorf("%w: %s cannot have an owning module", ErrInvalidDeclaration, d.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidDeclaration, int(d.Kind))
	}
	if d.Kind == KindSource && d.SourceKind == "" {
		return fmt.Errorf("%w: source root %s has no kind", ErrInvalidDeclaration, d.Path)
	}
	return nil
}
