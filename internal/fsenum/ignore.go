package fsenum

import (
	"fmt"

	"github.com/gobwas/glob"
)

// DefaultIgnore are file and directory names never considered part of a
// project.
var DefaultIgnore = []string{
	".git",
	".svn",
	".hg",
	".idea",
	".dirindex",
	"__pycache__",
	"*.pyc",
	"*.orig",
	".DS_Store",
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// IgnoreMatcher decides whether a single file or directory name is ignored.
// Patterns match base names, not paths.
type IgnoreMatcher struct {
	patterns []compiledPattern
}

// NewIgnoreMatcher compiles name patterns such as ".git" or "*.pyc".
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, compiledPattern{pattern: pattern, glob: g})
	}
	return m, nil
}

// MustIgnoreMatcher is NewIgnoreMatcher for patterns known to be valid.
func MustIgnoreMatcher(patterns []string) *IgnoreMatcher {
	m, err := NewIgnoreMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

// IsIgnored reports whether name matches any pattern. A nil matcher ignores
// nothing.
func (m *IgnoreMatcher) IsIgnored(name string) bool {
	if m == nil {
		return false
	}
	for _, cp := range m.patterns {
		if cp.glob.Match(name) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (m *IgnoreMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, cp := range m.patterns {
		out[i] = cp.pattern
	}
	return out
}
