package index

import (
	"slices"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
	"github.com/maypok86/otter"
	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/roots"
)

// DefaultLookupCacheSize bounds the per-snapshot cache of classifications for
// paths that were not enumerated during the build.
const DefaultLookupCacheSize = 10_000

type adjacency = map[roots.ModuleID]map[roots.ModuleID]graph.Edge[roots.ModuleID]

// Snapshot is an immutable classification of every directory reachable from
// the registered roots. It is never modified after publication.
type Snapshot struct {
	id         string
	generation uint64
	builtAt    time.Time

	classifier *Classifier
	entries    map[string]*DirectoryInfo

	deps         graph.Graph[roots.ModuleID, roots.ModuleID]
	dependencies adjacency
	dependents   adjacency

	lookups otter.Cache[string, DirectoryInfo]
}

func newSnapshot(classifier *Classifier, entries map[string]*DirectoryInfo, cacheSize int) *Snapshot {
	if cacheSize <= 0 {
		cacheSize = DefaultLookupCacheSize
	}
	lookups, err := otter.MustBuilder[string, DirectoryInfo](cacheSize).Build()
	if err != nil {
		// Only reachable with an invalid capacity, which is guarded above.
		panic(err)
	}

	s := &Snapshot{
		id:         uuid.NewString(),
		builtAt:    time.Now(),
		classifier: classifier,
		entries:    entries,
		lookups:    lookups,
	}
	s.buildDependencyGraph()
	return s
}

// EmptySnapshot returns a snapshot that classifies every path as outside the
// project. It is what a publisher serves before the first build.
func EmptySnapshot() *Snapshot {
	table := roots.NewTable(0, nil, nil)
	return newSnapshot(NewClassifier(table, nil), map[string]*DirectoryInfo{}, 1)
}

func (s *Snapshot) buildDependencyGraph() {
	table := s.classifier.Table()
	s.deps = graph.New(func(m roots.ModuleID) roots.ModuleID { return m }, graph.Directed())

	modules := table.Modules()
	for _, m := range modules {
		_ = s.deps.AddVertex(m)
	}
	for _, m := range modules {
		for _, dep := range table.Dependencies(m) {
			// Edges to unknown modules are dangling configuration and ignored.
			if !table.HasModule(dep) {
				continue
			}
			_ = s.deps.AddEdge(m, dep)
		}
	}

	s.dependencies, _ = s.deps.AdjacencyMap()
	s.dependents, _ = s.deps.PredecessorMap()
}

// ID uniquely identifies this snapshot in logs.
func (s *Snapshot) ID() string { return s.id }

// Generation is the publish counter assigned by the Publisher; 0 until
// published.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Revision is the store revision the snapshot was built from.
func (s *Snapshot) Revision() uint64 { return s.classifier.Table().Revision() }

// BuiltAt is when the snapshot was created.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Table returns the frozen declarations the snapshot was built from.
func (s *Snapshot) Table() *roots.Table { return s.classifier.Table() }

// Ignore returns the ignore patterns the snapshot was classified with.
func (s *Snapshot) Ignore() *fsenum.IgnoreMatcher { return s.classifier.ignore }

// Len returns the number of enumerated directories.
func (s *Snapshot) Len() int { return len(s.entries) }

// Get classifies path. Enumerated directories are answered from the
// snapshot map; anything else is resolved against the snapshot's frozen
// declarations and cached.
func (s *Snapshot) Get(path string) DirectoryInfo {
	if info, ok := s.entries[path]; ok {
		return *info
	}
	if info, ok := s.lookups.Get(path); ok {
		return info
	}
	info := s.classifier.Classify(path)
	s.lookups.Set(path, info)
	return info
}

// Lookup returns the info recorded for an enumerated directory.
func (s *Snapshot) Lookup(path string) (DirectoryInfo, bool) {
	info, ok := s.entries[path]
	if !ok {
		return DirectoryInfo{}, false
	}
	return *info, true
}

// Paths returns the enumerated directories, sorted.
func (s *Snapshot) Paths() []string {
	out := make([]string, 0, len(s.entries))
	for p := range s.entries {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Entries returns a copy of the enumerated classifications.
func (s *Snapshot) Entries() map[string]DirectoryInfo {
	out := make(map[string]DirectoryInfo, len(s.entries))
	for p, info := range s.entries {
		out[p] = *info
	}
	return out
}

// Modules returns every module known to the snapshot, sorted.
func (s *Snapshot) Modules() []roots.ModuleID {
	return s.Table().Modules()
}

// Declarations returns the declarations owned by module.
func (s *Snapshot) Declarations(m roots.ModuleID) []roots.Declaration {
	return s.Table().Declarations(m)
}

// Equal reports whether two snapshots hold the same classifications and
// module graph, ignoring identity and generation.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if other == nil || len(s.entries) != len(other.entries) {
		return false
	}
	for p, info := range s.entries {
		o, ok := other.entries[p]
		if !ok || *o != *info {
			return false
		}
	}
	if !slices.Equal(s.Modules(), other.Modules()) {
		return false
	}
	for _, m := range s.Modules() {
		if !slices.Equal(s.neighbors(s.dependencies, m), other.neighbors(other.dependencies, m)) {
			return false
		}
	}
	return true
}

// neighbors returns the sorted adjacency of m in adj.
func (s *Snapshot) neighbors(adj adjacency, m roots.ModuleID) []roots.ModuleID {
	out := make([]roots.ModuleID, 0, len(adj[m]))
	for n := range adj[m] {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
