package index

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/roots"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// makeTree creates paths in fs. Paths ending in "/" are directories,
// everything else is a small file.
func makeTree(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if strings.HasSuffix(p, "/") {
			require.NoError(t, fs.MkdirAll(strings.TrimSuffix(p, "/"), 0o755))
			continue
		}
		require.NoError(t, fs.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}
}

func defaultIgnore() *fsenum.IgnoreMatcher {
	return fsenum.MustIgnoreMatcher(fsenum.DefaultIgnore)
}

// buildIndex builds and publishes one snapshot over fs.
func buildIndex(t *testing.T, fs afero.Fs, decls []roots.Declaration, deps map[roots.ModuleID][]roots.ModuleID) *Index {
	t.Helper()
	enum := fsenum.NewEnumerator(fs)
	b := NewBuilder(enum, defaultIgnore())
	snap, err := b.Build(context.Background(), roots.NewTable(1, decls, deps))
	require.NoError(t, err)
	return New(NewPublisher(snap), enum)
}

// scenarioDecls is the single-module layout used across tests.
func scenarioDecls() []roots.Declaration {
	return []roots.Declaration{
		roots.ContentRoot("/proj", "M1"),
		roots.SourceRoot("/proj/src", "M1", roots.SourceProduction),
		roots.ExcludeRoot("/proj/build", "M1"),
	}
}

// scriptedEnumerator wraps an Enumerator and fails selected calls.
type scriptedEnumerator struct {
	fsenum.Enumerator

	mu      sync.Mutex
	listErr map[string]error
	lists   int
}

func newScriptedEnumerator(inner fsenum.Enumerator) *scriptedEnumerator {
	return &scriptedEnumerator{Enumerator: inner, listErr: make(map[string]error)}
}

func (s *scriptedEnumerator) failList(dir string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr[dir] = err
}

func (s *scriptedEnumerator) List(ctx context.Context, dir string) ([]fsenum.Entry, error) {
	s.mu.Lock()
	s.lists++
	err := s.listErr[dir]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Enumerator.List(ctx, dir)
}

func (s *scriptedEnumerator) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}
