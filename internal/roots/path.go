package roots

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidPath indicates a relative or non-canonical path.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidDeclaration indicates a malformed root declaration.
	ErrInvalidDeclaration = errors.New("invalid root declaration")
)

// ValidatePath checks that p is absolute and already in canonical form.
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if !filepath.IsAbs(p) {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, p)
	}
	if filepath.Clean(p) != p {
		return fmt.Errorf("%w: %q is not canonical", ErrInvalidPath, p)
	}
	return nil
}

// Parent returns the parent directory of p, or "" when p is a file system root.
func Parent(p string) string {
	parent := filepath.Dir(p)
	if parent == p {
		return ""
	}
	return parent
}

// IsUnder reports whether p equals dir or lies below it.
func IsUnder(p, dir string) bool {
	if p == dir {
		return true
	}
	if !strings.HasPrefix(p, dir) {
		return false
	}
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return true
	}
	return p[len(dir)] == filepath.Separator
}
