package fsenum

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/afero"
)

var (
	// ErrNotExist indicates the listed directory no longer exists.
	ErrNotExist = errors.New("path does not exist")

	// ErrUnavailable indicates the enumeration backend itself cannot serve
	// requests. It is the only error that aborts a whole snapshot build.
	ErrUnavailable = errors.New("file enumeration unavailable")
)

// Entry is one child of a listed directory.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
}

// Enumerator lists directory children. The snapshot builder and content
// iteration only ever see the file system through this interface.
type Enumerator interface {
	// List returns the immediate children of dir sorted by name.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Exists reports whether path is present.
	Exists(ctx context.Context, path string) (bool, error)
}

// aferoEnumerator implements Enumerator over an afero file system.
type aferoEnumerator struct {
	fs afero.Fs
}

// NewEnumerator creates an Enumerator backed by fs.
func NewEnumerator(fs afero.Fs) Enumerator {
	return &aferoEnumerator{fs: fs}
}

// NewOSEnumerator creates an Enumerator over the real file system.
func NewOSEnumerator() Enumerator {
	return NewEnumerator(afero.NewOsFs())
}

// List returns the immediate children of dir.
func (e *aferoEnumerator) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(e.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, dir)
		}
		if isBackendFailure(err) {
			return nil, fmt.Errorf("%w: listing %s: %w", ErrUnavailable, dir, err)
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:  info.Name(),
			Path:  filepath.Join(dir, info.Name()),
			IsDir: info.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Exists reports whether path is present.
func (e *aferoEnumerator) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	exists, err := afero.Exists(e.fs, path)
	if err != nil && isBackendFailure(err) {
		return false, fmt.Errorf("%w: stat %s: %w", ErrUnavailable, path, err)
	}
	return exists, err
}

// isBackendFailure reports errors that concern the file system as a whole
// rather than one path. A permission error on a single directory is not one.
func isBackendFailure(err error) bool {
	for _, errno := range []syscall.Errno{syscall.EIO, syscall.EMFILE, syscall.ENFILE, syscall.ENOMEM, syscall.ENODEV} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
