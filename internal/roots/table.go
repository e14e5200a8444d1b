package roots

import (
	"slices"
	"sort"
)

// SourceEntry is a source root declared at a path by one module.
type SourceEntry struct {
	Module ModuleID
	Kind   SourceKind
}

// Entry collects every declaration made at one path.
type Entry struct {
	Path            string
	ContentOwners   []ModuleID // sorted, unique
	Sources         []SourceEntry
	ExcludedBy      []ModuleID // "" means project-wide
	LibraryClasses  []string
	LibrarySources  []string
	LibraryExcludes []string
}

// IsContentRoot reports whether any module declares the path as a content root.
func (e *Entry) IsContentRoot() bool { return len(e.ContentOwners) > 0 }

// IsInclusion reports whether the path is a content or source root.
func (e *Entry) IsInclusion() bool { return len(e.ContentOwners) > 0 || len(e.Sources) > 0 }

// IsExclusion reports whether any module or the project excludes the path.
func (e *Entry) IsExclusion() bool { return len(e.ExcludedBy) > 0 }

// ExcludedByProject reports whether the path carries a project-wide exclusion.
func (e *Entry) ExcludedByProject() bool {
	return slices.Contains(e.ExcludedBy, "")
}

// ExcludedByModule reports whether module (or the project) excludes the path.
func (e *Entry) ExcludedByModule(module ModuleID) bool {
	return slices.Contains(e.ExcludedBy, module) || e.ExcludedByProject()
}

// SourceOf returns the source root kind declared at this path by module.
func (e *Entry) SourceOf(module ModuleID) (SourceKind, bool) {
	for _, s := range e.Sources {
		if s.Module == module {
			return s.Kind, true
		}
	}
	return "", false
}

// Owner resolves the owning module of a content root. When several modules
// declare the same content root the lexicographically smallest id wins.
func (e *Entry) Owner() ModuleID {
	if len(e.ContentOwners) == 0 {
		return ""
	}
	return e.ContentOwners[0]
}

// Anomaly describes a content root claimed by more than one module.
type Anomaly struct {
	Path    string
	Modules []ModuleID
	Winner  ModuleID
}

// Table is an immutable view of the store taken at one revision.
type Table struct {
	revision uint64
	entries  map[string]*Entry
	modules  map[ModuleID][]Declaration
	deps     map[ModuleID][]ModuleID
	known    map[ModuleID]struct{}
}

// NewTable freezes a set of declarations and dependency edges. Declarations
// are assumed valid.
func NewTable(revision uint64, decls []Declaration, deps map[ModuleID][]ModuleID) *Table {
	t := &Table{
		revision: revision,
		entries:  make(map[string]*Entry),
		modules:  make(map[ModuleID][]Declaration),
		deps:     make(map[ModuleID][]ModuleID, len(deps)),
		known:    make(map[ModuleID]struct{}),
	}

	for _, d := range decls {
		e := t.entries[d.Path]
		if e == nil {
			e = &Entry{Path: d.Path}
			t.entries[d.Path] = e
		}
		switch d.Kind {
		case KindContent:
			e.ContentOwners = appendUnique(e.ContentOwners, d.Module)
		case KindSource:
			e.Sources = append(e.Sources, SourceEntry{Module: d.Module, Kind: d.SourceKind})
		case KindExclude:
			e.ExcludedBy = appendUnique(e.ExcludedBy, d.Module)
		case KindLibraryClasses:
			e.LibraryClasses = appendUnique(e.LibraryClasses, d.Library)
		case KindLibrarySources:
			e.LibrarySources = appendUnique(e.LibrarySources, d.Library)
		case KindLibraryExclude:
			e.LibraryExcludes = appendUnique(e.LibraryExcludes, d.Library)
		}
		if d.Module != "" {
			t.modules[d.Module] = append(t.modules[d.Module], d)
			t.known[d.Module] = struct{}{}
		}
	}

	for _, e := range t.entries {
		slices.Sort(e.ContentOwners)
		slices.Sort(e.ExcludedBy)
		slices.Sort(e.LibraryClasses)
		slices.Sort(e.LibrarySources)
		slices.Sort(e.LibraryExcludes)
		sort.Slice(e.Sources, func(i, j int) bool {
			if e.Sources[i].Module != e.Sources[j].Module {
				return e.Sources[i].Module < e.Sources[j].Module
			}
			return e.Sources[i].Kind < e.Sources[j].Kind
		})
	}
	for m, ds := range t.modules {
		sortDeclarations(ds)
		t.modules[m] = ds
	}
	for m, targets := range deps {
		t.deps[m] = slices.Clone(targets)
		t.known[m] = struct{}{}
	}
	return t
}

func appendUnique[T comparable](s []T, v T) []T {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

func sortDeclarations(ds []Declaration) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Path != ds[j].Path {
			return ds[i].Path < ds[j].Path
		}
		if ds[i].Kind != ds[j].Kind {
			return ds[i].Kind < ds[j].Kind
		}
		if ds[i].Module != ds[j].Module {
			return ds[i].Module < ds[j].Module
		}
		if ds[i].Library != ds[j].Library {
			return ds[i].Library < ds[j].Library
		}
		return ds[i].SourceKind < ds[j].SourceKind
	})
}

// Revision is the store revision this table was taken at.
func (t *Table) Revision() uint64 { return t.revision }

// Lookup returns the declarations made exactly at path.
func (t *Table) Lookup(path string) (*Entry, bool) {
	e, ok := t.entries[path]
	return e, ok
}

// Len returns the number of distinct declared paths.
func (t *Table) Len() int { return len(t.entries) }

// Modules returns every known module, sorted.
func (t *Table) Modules() []ModuleID {
	out := make([]ModuleID, 0, len(t.known))
	for m := range t.known {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// HasModule reports whether the module is known to the table.
func (t *Table) HasModule(m ModuleID) bool {
	_, ok := t.known[m]
	return ok
}

// Declarations returns the declarations owned by module, sorted by path.
func (t *Table) Declarations(m ModuleID) []Declaration {
	return slices.Clone(t.modules[m])
}

// Dependencies returns the direct dependencies declared by module.
func (t *Table) Dependencies(m ModuleID) []ModuleID {
	return slices.Clone(t.deps[m])
}

// ContentRoots returns the distinct content root paths, sorted.
func (t *Table) ContentRoots() []string {
	var out []string
	for p, e := range t.entries {
		if e.IsContentRoot() {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// TraversalRoots returns every path a snapshot build starts from: content,
// source and library class/source roots, sorted.
func (t *Table) TraversalRoots() []string {
	var out []string
	for p, e := range t.entries {
		if e.IsInclusion() || len(e.LibraryClasses) > 0 || len(e.LibrarySources) > 0 {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// HasInclusionBelow reports whether a content or source root lies strictly
// below dir.
func (t *Table) HasInclusionBelow(dir string) bool {
	for p, e := range t.entries {
		if p != dir && e.IsInclusion() && IsUnder(p, dir) {
			return true
		}
	}
	return false
}

// InclusionRootsBelow returns the outermost content or source roots strictly
// below dir, sorted.
func (t *Table) InclusionRootsBelow(dir string) []string {
	var below []string
	for p, e := range t.entries {
		if p != dir && e.IsInclusion() && IsUnder(p, dir) {
			below = append(below, p)
		}
	}
	slices.Sort(below)

	var out []string
	for _, p := range below {
		nested := slices.ContainsFunc(out, func(top string) bool { return IsUnder(p, top) })
		if !nested {
			out = append(out, p)
		}
	}
	return out
}

// Anomalies lists content roots declared by more than one module.
func (t *Table) Anomalies() []Anomaly {
	var out []Anomaly
	for p, e := range t.entries {
		if len(e.ContentOwners) > 1 {
			out = append(out, Anomaly{
				Path:    p,
				Modules: slices.Clone(e.ContentOwners),
				Winner:  e.Owner(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
