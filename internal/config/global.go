// Package config loads workspace and machine-wide configuration.
//
// It supports two configuration scopes:
//
// 1. Global Configuration (~/.dirindex/config.yml)
//   - Libraries shared by every workspace on the machine (SDKs, caches)
//   - Extra ignore patterns
//   - Loaded via LoadGlobalConfig()
//
// 2. Workspace Configuration (<root>/.dirindex/workspace.yml)
//   - Modules with their content, source and excluded roots
//   - Module dependencies, project exclusions, libraries
//   - Watch and cache settings
//   - Loaded via NewLoader(root).Load()
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (DIRINDEX_*)
//  2. Workspace config
//  3. Global config (libraries and ignore patterns are merged in)
//  4. Built-in defaults
//
// Example usage:
//
//	cfg, err := config.LoadConfigFromDir(root)
//	if err != nil {
//	    return err
//	}
//	global, err := config.LoadGlobalConfig()
//	if err != nil {
//	    return err
//	}
//	cfg.Merge(global)
//	decls, err := cfg.Declarations(root)
package config

// GlobalConfig holds machine-wide settings.
// Loaded from ~/.dirindex/config.yml (not the workspace .dirindex/workspace.yml).
type GlobalConfig struct {
	Libraries []LibraryConfig `yaml:"libraries" mapstructure:"libraries"`
	Ignore    []string        `yaml:"ignore" mapstructure:"ignore"`
	Verbose   bool            `yaml:"verbose" mapstructure:"verbose"` // log every scanned directory
}
