package roots

import (
	"fmt"
	"slices"
	"sync"
)

// ChangeKind describes what a store mutation touched.
type ChangeKind int

const (
	ChangeDeclarations ChangeKind = iota
	ChangeDependencies
	ChangeModuleRemoved
)

// Change is delivered to subscribers after every effective mutation.
type Change struct {
	Revision uint64
	Kind     ChangeKind
	Module   ModuleID
	Library  string
}

// Store is the table of root declarations supplied by the configuration
// service. Mutations are synchronous and visible to the next Table call;
// they never touch a published snapshot.
type Store struct {
	mu          sync.Mutex
	revision    uint64
	decls       map[Declaration]struct{}
	deps        map[ModuleID][]ModuleID
	modules     map[ModuleID]struct{}
	subscribers []func(Change)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		decls:   make(map[Declaration]struct{}),
		deps:    make(map[ModuleID][]ModuleID),
		modules: make(map[ModuleID]struct{}),
	}
}

// Subscribe registers fn to be called after each mutation. fn runs on the
// mutating goroutine, outside the store lock.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Add records a declaration. Adding a declaration twice is a no-op.
func (s *Store) Add(d Declaration) error {
	if err := d.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.decls[d]; ok {
		s.mu.Unlock()
		return nil
	}
	s.decls[d] = struct{}{}
	if d.Module != "" {
		s.modules[d.Module] = struct{}{}
	}
	change := s.bumpLocked(ChangeDeclarations, d.Module, d.Library)
	s.mu.Unlock()

	s.notify(change)
	return nil
}

// Remove deletes a declaration and reports whether it was present.
func (s *Store) Remove(d Declaration) bool {
	s.mu.Lock()
	if _, ok := s.decls[d]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.decls, d)
	change := s.bumpLocked(ChangeDeclarations, d.Module, d.Library)
	s.mu.Unlock()

	s.notify(change)
	return true
}

// ReplaceAllForModule swaps every content, source and exclude declaration of
// module for decls. Each declaration must be owned by module.
func (s *Store) ReplaceAllForModule(module ModuleID, decls []Declaration) error {
	if module == "" {
		return fmt.Errorf("%w: empty module id", ErrInvalidDeclaration)
	}
	for _, d := range decls {
		if err := d.validate(); err != nil {
			return err
		}
		if d.Module != module {
			return fmt.Errorf("%w: %s is not owned by module %q", ErrInvalidDeclaration, d, module)
		}
	}

	s.mu.Lock()
	for d := range s.decls {
		if d.Module == module {
			delete(s.decls, d)
		}
	}
	for _, d := range decls {
		s.decls[d] = struct{}{}
	}
	s.modules[module] = struct{}{}
	change := s.bumpLocked(ChangeDeclarations, module, "")
	s.mu.Unlock()

	s.notify(change)
	return nil
}

// ReplaceAllForLibrary swaps every root of the named library for decls.
func (s *Store) ReplaceAllForLibrary(library string, decls []Declaration) error {
	for _, d := range decls {
		if err := d.validate(); err != nil {
			return err
		}
		if !d.Kind.IsLibrary() || d.Library != library {
			return fmt.Errorf("%w: %s does not belong to library %q", ErrInvalidDeclaration, d, library)
		}
	}

	s.mu.Lock()
	for d := range s.decls {
		if d.Kind.IsLibrary() && d.Library == library {
			delete(s.decls, d)
		}
	}
	for _, d := range decls {
		s.decls[d] = struct{}{}
	}
	change := s.bumpLocked(ChangeDeclarations, "", library)
	s.mu.Unlock()

	s.notify(change)
	return nil
}

// SetDependencies replaces the direct module dependencies of module.
func (s *Store) SetDependencies(module ModuleID, deps []ModuleID) error {
	if module == "" {
		return fmt.Errorf("%w: empty module id", ErrInvalidDeclaration)
	}

	s.mu.Lock()
	s.deps[module] = slices.Clone(deps)
	s.modules[module] = struct{}{}
	change := s.bumpLocked(ChangeDependencies, module, "")
	s.mu.Unlock()

	s.notify(change)
	return nil
}

// RemoveModule forgets a module together with its declarations and edges.
func (s *Store) RemoveModule(module ModuleID) bool {
	s.mu.Lock()
	if _, ok := s.modules[module]; !ok {
		s.mu.Unlock()
		return false
	}
	for d := range s.decls {
		if d.Module == module {
			delete(s.decls, d)
		}
	}
	delete(s.deps, module)
	delete(s.modules, module)
	change := s.bumpLocked(ChangeModuleRemoved, module, "")
	s.mu.Unlock()

	s.notify(change)
	return true
}

// Modules returns the known modules in no particular order.
func (s *Store) Modules() []ModuleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ModuleID, 0, len(s.modules))
	for m := range s.modules {
		out = append(out, m)
	}
	return out
}

// Revision returns the current mutation counter.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Table freezes the current state.
func (s *Store) Table() *Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	decls := make([]Declaration, 0, len(s.decls))
	for d := range s.decls {
		decls = append(decls, d)
	}
	deps := make(map[ModuleID][]ModuleID, len(s.modules))
	for m := range s.modules {
		deps[m] = s.deps[m]
	}
	return NewTable(s.revision, decls, deps)
}

// Anomalies reports content roots claimed by several modules.
func (s *Store) Anomalies() []Anomaly {
	return s.Table().Anomalies()
}

func (s *Store) bumpLocked(kind ChangeKind, module ModuleID, library string) Change {
	s.revision++
	return Change{Revision: s.revision, Kind: kind, Module: module, Library: library}
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(c)
	}
}
