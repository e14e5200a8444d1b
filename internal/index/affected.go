package index

import (
	"fmt"

	"github.com/mvp-joe/dirindex/internal/roots"
)

// AffectedModules returns module and every module it transitively depends
// on, breadth-first. With includeDependents the modules that transitively
// depend on module follow. Each module appears once, cycles included.
func (s *Snapshot) AffectedModules(module roots.ModuleID, includeDependents bool) ([]roots.ModuleID, error) {
	if !s.Table().HasModule(module) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, module)
	}

	visited := map[roots.ModuleID]bool{module: true}
	out := []roots.ModuleID{module}
	out = s.closure(s.dependencies, module, visited, out)
	if includeDependents {
		out = s.closure(s.dependents, module, visited, out)
	}
	return out, nil
}

// closure appends every module reachable from start in adj that is not yet
// visited. The visited set is the only cycle guard.
func (s *Snapshot) closure(adj adjacency, start roots.ModuleID, visited map[roots.ModuleID]bool, out []roots.ModuleID) []roots.ModuleID {
	queue := []roots.ModuleID{start}
	seen := map[roots.ModuleID]bool{start: true}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		for _, n := range s.neighbors(adj, m) {
			if seen[n] {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
			if !visited[n] {
				visited[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// AffectedModules answers from the current snapshot.
func (ix *Index) AffectedModules(module roots.ModuleID, includeDependents bool) ([]roots.ModuleID, error) {
	return ix.publisher.Current().AffectedModules(module, includeDependents)
}

// AffectedByPaths maps each path to its owning module, ignoring excluded,
// ignored and unowned paths, and merges the affected modules of every owner
// in order of first appearance. It also returns the owners themselves.
func (s *Snapshot) AffectedByPaths(paths []string, includeDependents bool) (owners, affected []roots.ModuleID, err error) {
	seen := make(map[roots.ModuleID]bool)
	for _, p := range paths {
		if err := roots.ValidatePath(p); err != nil {
			return nil, nil, err
		}
		info := s.Get(p)
		if info.OwningModule == "" || info.Excluded || info.Ignored || seen[info.OwningModule] {
			continue
		}
		seen[info.OwningModule] = true
		owners = append(owners, info.OwningModule)
	}

	inResult := make(map[roots.ModuleID]bool)
	for _, m := range owners {
		mods, err := s.AffectedModules(m, includeDependents)
		if err != nil {
			return nil, nil, err
		}
		for _, a := range mods {
			if !inResult[a] {
				inResult[a] = true
				affected = append(affected, a)
			}
		}
	}
	return owners, affected, nil
}

// AffectedByPaths answers from the current snapshot.
func (ix *Index) AffectedByPaths(paths []string, includeDependents bool) (owners, affected []roots.ModuleID, err error) {
	return ix.publisher.Current().AffectedByPaths(paths, includeDependents)
}
