// Package workspace models the project and module layout checks run inside.
//
// The model is deliberately small: a [Project] with a base directory holds
// [Module]s, each with ordered content roots and an optional manifest. The
// suppression path rewriter walks these locations when a ruleset references
// a suppressions file by a path that does not exist.
package workspace

import (
	"path/filepath"
	"slices"
	"strings"
)

// Project is the workspace checks run inside.
type Project struct {
	baseDir string
	modules []*Module
}

// ModuleSpec describes one module of a [Project].
type ModuleSpec struct {
	// Name identifies the module in settings and logs.
	Name string
	// ManifestPath points at the module's build manifest, if it has one.
	ManifestPath string
	// ContentRoots are the module's source directories, in declared order.
	ContentRoots []string
	// TestRoots are content roots holding test sources.
	TestRoots []string
}

// NewProject creates a project rooted at baseDir.
func NewProject(baseDir string, modules ...ModuleSpec) *Project {
	p := &Project{baseDir: filepath.Clean(baseDir)}

	for _, spec := range modules {
		p.modules = append(p.modules, &Module{
			name:         spec.Name,
			manifestPath: spec.ManifestPath,
			contentRoots: slices.Clone(spec.ContentRoots),
			testRoots:    slices.Clone(spec.TestRoots),
			project:      p,
		})
	}

	return p
}

// BaseDir returns the project's base directory.
func (p *Project) BaseDir() string {
	if p == nil {
		return ""
	}

	return p.baseDir
}

// Modules returns the project's modules in declared order.
func (p *Project) Modules() []*Module {
	if p == nil {
		return nil
	}

	return slices.Clone(p.modules)
}

// ModuleFor returns the module whose content root most specifically contains
// path, or nil when no module claims it.
func (p *Project) ModuleFor(path string) *Module {
	if p == nil {
		return nil
	}

	path = filepath.Clean(path)

	var (
		best    *Module
		bestLen = -1
	)

	for _, m := range p.modules {
		for _, root := range m.contentRoots {
			root = filepath.Clean(root)
			if !within(root, path) {
				continue
			}

			if len(root) > bestLen {
				best, bestLen = m, len(root)
			}
		}
	}

	return best
}

// Module is one buildable unit inside a [Project].
type Module struct {
	project      *Project
	name         string
	manifestPath string
	contentRoots []string
	testRoots    []string
}

// Name returns the module's name.
func (m *Module) Name() string {
	return m.name
}

// ContentRoots returns the module's source directories in declared order.
func (m *Module) ContentRoots() []string {
	return slices.Clone(m.contentRoots)
}

// TestRoots returns the module's test source directories.
func (m *Module) TestRoots() []string {
	return slices.Clone(m.testRoots)
}

// ManifestPath returns the path of the module's build manifest, or "" when
// the module has none.
func (m *Module) ManifestPath() string {
	return m.manifestPath
}

// ManifestDir returns the directory holding the module's manifest, or ""
// when the module has none.
func (m *Module) ManifestDir() string {
	if m.manifestPath == "" {
		return ""
	}

	return filepath.Dir(m.manifestPath)
}

// Project returns the project the module belongs to.
func (m *Module) Project() *Project {
	return m.project
}

// InTestRoot reports whether path falls under one of the module's test
// roots.
func (m *Module) InTestRoot(path string) bool {
	path = filepath.Clean(path)

	for _, root := range m.testRoots {
		if within(filepath.Clean(root), path) {
			return true
		}
	}

	return false
}

// within reports whether path is dir itself or inside it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
