package fsenum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Enumerator and IgnoreMatcher:
// - List returns sorted children with directory flags
// - List on a missing directory returns ErrNotExist
// - List honours a cancelled context
// - Exists reports presence
// - Backend-wide failures surface as ErrUnavailable; per-path ones do not
// - OS enumerator works against a real temp directory
// - IgnoreMatcher matches exact names and wildcards, nil matcher ignores nothing
// - NewIgnoreMatcher rejects malformed patterns

func TestEnumerator_List(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/proj/src", 0o755))
	require.NoError(t, fs.MkdirAll("/proj/build", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/proj/README.md", []byte("x"), 0o644))

	e := NewEnumerator(fs)
	entries, err := e.List(context.Background(), "/proj")
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Name: "README.md", Path: "/proj/README.md", IsDir: false}, entries[0])
	assert.Equal(t, Entry{Name: "build", Path: "/proj/build", IsDir: true}, entries[1])
	assert.Equal(t, Entry{Name: "src", Path: "/proj/src", IsDir: true}, entries[2])
}

func TestEnumerator_ListMissing(t *testing.T) {
	t.Parallel()

	e := NewEnumerator(afero.NewMemMapFs())
	_, err := e.List(context.Background(), "/nope")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestEnumerator_ListCancelled(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/proj", 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEnumerator(fs).List(ctx, "/proj")
	assert.ErrorIs(t, err, context.Canceled)
}

// failingFs fails every Open and Stat with err.
type failingFs struct {
	afero.Fs
	err error
}

func (f failingFs) Open(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "open", Path: name, Err: f.err}
}

func (f failingFs) Stat(name string) (os.FileInfo, error) {
	return nil, &os.PathError{Op: "stat", Path: name, Err: f.err}
}

func TestEnumerator_BackendFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"too many open files", syscall.EMFILE, true},
		{"io error", syscall.EIO, true},
		{"permission denied", syscall.EACCES, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnumerator(failingFs{Fs: afero.NewMemMapFs(), err: tt.err})

			_, err := e.List(context.Background(), "/proj")
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrUnavailable))
			assert.ErrorIs(t, err, tt.err)

			_, err = e.Exists(context.Background(), "/proj")
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrUnavailable))
		})
	}
}

func TestEnumerator_Exists(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/proj", 0o755))
	e := NewEnumerator(fs)

	ok, err := e.Exists(context.Background(), "/proj")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Exists(context.Background(), "/gone")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOSEnumerator(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))

	entries, err := NewOSEnumerator().List(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.True(t, entries[1].IsDir)
}

func TestIgnoreMatcher(t *testing.T) {
	t.Parallel()

	m, err := NewIgnoreMatcher(DefaultIgnore)
	require.NoError(t, err)

	assert.True(t, m.IsIgnored(".git"))
	assert.True(t, m.IsIgnored("module.pyc"))
	assert.True(t, m.IsIgnored("__pycache__"))
	assert.False(t, m.IsIgnored("src"))
	assert.False(t, m.IsIgnored("git"))
	assert.Equal(t, DefaultIgnore, m.Patterns())

	var none *IgnoreMatcher
	assert.False(t, none.IsIgnored(".git"))
}

func TestNewIgnoreMatcher_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewIgnoreMatcher([]string{"[unclosed"})
	assert.Error(t, err)
}
