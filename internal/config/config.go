package config

import (
	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/index"
)

// Config describes one workspace: its modules, libraries and exclusions.
// It is loaded from .dirindex/workspace.yml with environment variable
// overrides for the scalar settings.
type Config struct {
	Modules   []ModuleConfig  `yaml:"modules" mapstructure:"modules"`
	Libraries []LibraryConfig `yaml:"libraries" mapstructure:"libraries"`
	Excludes  []string        `yaml:"excludes" mapstructure:"excludes"` // project-level exclusions, relative to the workspace root
	Ignore    []string        `yaml:"ignore" mapstructure:"ignore"`     // name globs never part of the project
	Watch     WatchConfig     `yaml:"watch" mapstructure:"watch"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
}

// ModuleConfig declares one module.
type ModuleConfig struct {
	Name         string              `yaml:"name" mapstructure:"name"`
	ContentRoots []ContentRootConfig `yaml:"content_roots" mapstructure:"content_roots"`
	Dependencies []string            `yaml:"dependencies" mapstructure:"dependencies"` // names of modules this one depends on
}

// ContentRootConfig is a content root with the source and excluded folders
// declared inside it. Sources and excludes are relative to the content root.
type ContentRootConfig struct {
	Path     string         `yaml:"path" mapstructure:"path"` // relative to the workspace root
	Sources  []SourceConfig `yaml:"sources" mapstructure:"sources"`
	Excludes []string       `yaml:"excludes" mapstructure:"excludes"`
}

// SourceConfig is one source folder. Kind defaults to "production".
type SourceConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	Kind string `yaml:"kind" mapstructure:"kind"`
}

// LibraryConfig declares a library: class roots, source roots and folders
// excluded from them. Paths are usually absolute.
type LibraryConfig struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Classes  []string `yaml:"classes" mapstructure:"classes"`
	Sources  []string `yaml:"sources" mapstructure:"sources"`
	Excludes []string `yaml:"excludes" mapstructure:"excludes"`
}

// WatchConfig configures change notification.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	DebounceMS int  `yaml:"debounce_ms" mapstructure:"debounce_ms"` // quiet period before a rebuild
	Checkout   bool `yaml:"checkout" mapstructure:"checkout"`       // full rebuild when git HEAD moves
}

// CacheConfig bounds per-snapshot caches.
type CacheConfig struct {
	LookupCacheSize int `yaml:"lookup_cache_size" mapstructure:"lookup_cache_size"`
}

// Default returns a configuration with sensible defaults. Without modules
// the workspace root becomes a single module's content root.
func Default() *Config {
	return &Config{
		Ignore: append([]string(nil), fsenum.DefaultIgnore...),
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMS: 300,
			Checkout:   true,
		},
		Cache: CacheConfig{
			LookupCacheSize: index.DefaultLookupCacheSize,
		},
	}
}

// Merge adds the machine-wide libraries and ignore patterns of global.
// Workspace libraries win over global ones with the same name.
func (c *Config) Merge(global *GlobalConfig) {
	if global == nil {
		return
	}
	names := make(map[string]bool, len(c.Libraries))
	for _, lib := range c.Libraries {
		names[lib.Name] = true
	}
	for _, lib := range global.Libraries {
		if !names[lib.Name] {
			c.Libraries = append(c.Libraries, lib)
		}
	}

	seen := make(map[string]bool, len(c.Ignore))
	for _, p := range c.Ignore {
		seen[p] = true
	}
	for _, p := range global.Ignore {
		if !seen[p] {
			c.Ignore = append(c.Ignore, p)
			seen[p] = true
		}
	}
}
