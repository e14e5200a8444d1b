package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidModule indicates a missing, duplicate or empty module
	ErrInvalidModule = errors.New("invalid module")

	// ErrInvalidRootPath indicates an empty root path
	ErrInvalidRootPath = errors.New("invalid root path")

	// ErrInvalidSourceKind indicates a malformed source kind
	ErrInvalidSourceKind = errors.New("invalid source kind")

	// ErrUnknownDependency indicates a dependency on an undeclared module
	ErrUnknownDependency = errors.New("unknown module dependency")

	// ErrInvalidLibrary indicates a missing, duplicate or empty library
	ErrInvalidLibrary = errors.New("invalid library")

	// ErrInvalidIgnorePattern indicates an ignore glob that does not compile
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")

	// ErrInvalidWatchSettings indicates invalid watch configuration
	ErrInvalidWatchSettings = errors.New("invalid watch settings")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
)

var sourceKindPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks that the configuration is valid and complete. Content
// roots shared by several modules are allowed; they are resolved when the
// index is built.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateModules(cfg.Modules); err != nil {
		errs = append(errs, err)
	}
	if err := validateLibraries(cfg.Libraries); err != nil {
		errs = append(errs, err)
	}
	for _, p := range cfg.Excludes {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%w: empty project exclude", ErrInvalidRootPath))
		}
	}
	for _, p := range cfg.Ignore {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidIgnorePattern, p, err))
		}
	}
	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidWatchSettings, cfg.Watch.DebounceMS))
	}
	if cfg.Cache.LookupCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: lookup_cache_size must be positive, got %d", ErrInvalidCacheSettings, cfg.Cache.LookupCacheSize))
	}

	return joinErrors(errs)
}

func validateModules(modules []ModuleConfig) error {
	var errs []error

	names := make(map[string]bool, len(modules))
	for _, m := range modules {
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, fmt.Errorf("%w: module name is required", ErrInvalidModule))
			continue
		}
		if names[m.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate module %q", ErrInvalidModule, m.Name))
		}
		names[m.Name] = true
	}

	for _, m := range modules {
		for _, cr := range m.ContentRoots {
			if strings.TrimSpace(cr.Path) == "" {
				errs = append(errs, fmt.Errorf("%w: module %q has a content root without path", ErrInvalidRootPath, m.Name))
			}
			for _, src := range cr.Sources {
				if strings.TrimSpace(src.Path) == "" {
					errs = append(errs, fmt.Errorf("%w: module %q has a source without path", ErrInvalidRootPath, m.Name))
				}
				if src.Kind != "" && !sourceKindPattern.MatchString(src.Kind) {
					errs = append(errs, fmt.Errorf("%w: module %q: %q", ErrInvalidSourceKind, m.Name, src.Kind))
				}
			}
			for _, ex := range cr.Excludes {
				if strings.TrimSpace(ex) == "" {
					errs = append(errs, fmt.Errorf("%w: module %q has an empty exclude", ErrInvalidRootPath, m.Name))
				}
			}
		}
		for _, dep := range m.Dependencies {
			if !names[dep] {
				errs = append(errs, fmt.Errorf("%w: module %q depends on %q", ErrUnknownDependency, m.Name, dep))
			}
		}
	}

	return joinErrors(errs)
}

func validateLibraries(libs []LibraryConfig) error {
	var errs []error

	names := make(map[string]bool, len(libs))
	for _, lib := range libs {
		if strings.TrimSpace(lib.Name) == "" {
			errs = append(errs, fmt.Errorf("%w: library name is required", ErrInvalidLibrary))
			continue
		}
		if names[lib.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate library %q", ErrInvalidLibrary, lib.Name))
		}
		names[lib.Name] = true

		if len(lib.Classes) == 0 && len(lib.Sources) == 0 {
			errs = append(errs, fmt.Errorf("%w: library %q declares no roots", ErrInvalidLibrary, lib.Name))
		}
		for _, group := range [][]string{lib.Classes, lib.Sources, lib.Excludes} {
			for _, p := range group {
				if strings.TrimSpace(p) == "" {
					errs = append(errs, fmt.Errorf("%w: library %q has an empty path", ErrInvalidRootPath, lib.Name))
				}
			}
		}
	}

	return joinErrors(errs)
}

// validationErrors keeps every cause reachable through errors.Is.
type validationErrors []error

func (e validationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e validationErrors) Unwrap() []error { return e }

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	// Flatten nested groups so the message stays one level deep.
	var flat validationErrors
	for _, err := range errs {
		var nested validationErrors
		if errors.As(err, &nested) {
			flat = append(flat, nested...)
			continue
		}
		flat = append(flat, err)
	}
	return flat
}
