package config

import (
	"fmt"
	"path/filepath"

	"github.com/mvp-joe/dirindex/internal/roots"
)

// Declarations is a configuration resolved against a workspace root.
type Declarations struct {
	Modules         []roots.ModuleID
	Roots           map[roots.ModuleID][]roots.Declaration
	Dependencies    map[roots.ModuleID][]roots.ModuleID
	Libraries       map[string][]roots.Declaration
	ProjectExcludes []roots.Declaration
}

// Declarations resolves every configured path against root, which must be
// absolute and canonical. A configuration without modules yields a single
// module named after root whose content root is root itself.
func (c *Config) Declarations(root string) (*Declarations, error) {
	if err := roots.ValidatePath(root); err != nil {
		return nil, err
	}

	d := &Declarations{
		Roots:        make(map[roots.ModuleID][]roots.Declaration),
		Dependencies: make(map[roots.ModuleID][]roots.ModuleID),
		Libraries:    make(map[string][]roots.Declaration),
	}

	modules := c.Modules
	if len(modules) == 0 {
		modules = []ModuleConfig{{
			Name:         filepath.Base(root),
			ContentRoots: []ContentRootConfig{{Path: "."}},
		}}
	}

	for _, m := range modules {
		id := roots.ModuleID(m.Name)
		d.Modules = append(d.Modules, id)

		var decls []roots.Declaration
		for _, cr := range m.ContentRoots {
			contentDir := resolve(root, cr.Path)
			decls = append(decls, roots.ContentRoot(contentDir, id))
			for _, src := range cr.Sources {
				kind := roots.SourceKind(src.Kind)
				if kind == "" {
					kind = roots.SourceProduction
				}
				decls = append(decls, roots.SourceRoot(resolve(contentDir, src.Path), id, kind))
			}
			for _, ex := range cr.Excludes {
				decls = append(decls, roots.ExcludeRoot(resolve(contentDir, ex), id))
			}
		}
		d.Roots[id] = decls

		deps := make([]roots.ModuleID, 0, len(m.Dependencies))
		for _, dep := range m.Dependencies {
			deps = append(deps, roots.ModuleID(dep))
		}
		d.Dependencies[id] = deps
	}

	for _, lib := range c.Libraries {
		if _, dup := d.Libraries[lib.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate library %q", ErrInvalidLibrary, lib.Name)
		}
		var decls []roots.Declaration
		for _, p := range lib.Classes {
			decls = append(decls, roots.LibraryClassRoot(resolve(root, p), lib.Name))
		}
		for _, p := range lib.Sources {
			decls = append(decls, roots.LibrarySourceRoot(resolve(root, p), lib.Name))
		}
		for _, p := range lib.Excludes {
			decls = append(decls, roots.LibraryExcludeRoot(resolve(root, p), lib.Name))
		}
		d.Libraries[lib.Name] = decls
	}

	for _, p := range c.Excludes {
		d.ProjectExcludes = append(d.ProjectExcludes, roots.ExcludeRoot(resolve(root, p), ""))
	}

	return d, nil
}

// resolve makes p absolute relative to base.
func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
