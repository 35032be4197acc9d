// Package configgraph builds the (package, configuration) graph over a
// resolved package set (spec §4.7): for a target platform, decide exactly
// one configuration for every package, honoring per-package configuration
// overrides and each package's own sub-configuration declarations for its
// dependencies.
//
// No pack example builds a structure like this one — gps's own SAT solver
// (solver.go) operates over versions, not over a package's declared build
// configurations, so this package is grounded directly on the algorithm
// description rather than on ported code; it keeps the surrounding
// codebase's general style (small, pointer-keyed graph types, explicit
// cycle errors) rather than reaching for a generic graph library the
// corpus never uses.
package configgraph

import (
	"sort"
	"strings"

	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/pkg/errors"
)

// Vertex is one node of the configuration graph: a package at one of its
// configurations.
type Vertex struct {
	Package string
	Config  string
}

// ConfigurationCycle reports a dependency cycle discovered while walking
// the configuration graph (spec §4.7 "Cycle detection during discovery").
type ConfigurationCycle struct {
	Path []string
}

func (e *ConfigurationCycle) Error() string {
	return "configuration cycle: " + strings.Join(e.Path, " -> ")
}

// NoViableConfiguration is raised when, while discovering vertex (Package,
// Config)'s dependency on Dependency, the set of candidate configurations
// for Dependency (after intersecting with whatever of it was already
// discovered from other parents) is empty (spec §4.7 step 3). This
// implementation treats it as fatal rather than attempting the cascading
// vertex-drop the spec's step 3 implies for a solitary offending vertex;
// see DESIGN.md for the reasoning.
type NoViableConfiguration struct {
	Package, Config, Dependency string
}

func (e *NoViableConfiguration) Error() string {
	return e.Package + " (config " + e.Config + ") has no viable configuration for dependency " + e.Dependency
}

// Builder constructs a configuration graph over packages for platform,
// honoring overrides (packName -> forced configName, applying to both the
// root and any dependency).
type Builder struct {
	packages  map[string]*pkg.Package
	platform  recipe.BuildPlatform
	overrides map[string]string
}

// New builds a Builder. packages must contain every package the resolver
// accepted (keyed by its base or "parent:sub" name); overrides may be nil.
func New(packages map[string]*pkg.Package, platform recipe.BuildPlatform, overrides map[string]string) *Builder {
	if overrides == nil {
		overrides = map[string]string{}
	}
	return &Builder{packages: packages, platform: platform, overrides: overrides}
}

// Build runs discovery and pruning rooted at rootName, returning the final
// packName -> configName assignment (spec §4.7 steps 1-5).
func (b *Builder) Build(rootName string) (map[string]string, error) {
	root, ok := b.packages[rootName]
	if !ok {
		return nil, errors.Errorf("root package %q not present in the resolved package set", rootName)
	}

	rootConfig := b.defaultConfig(root)
	if c, ok := b.overrides[rootName]; ok {
		rootConfig = c
	}

	discovered := map[string]map[string]bool{}
	edges := map[Vertex][]Vertex{}
	visited := map[Vertex]bool{}
	var order []string

	if err := b.discover(nil, rootName, rootConfig, discovered, edges, visited, &order); err != nil {
		return nil, err
	}

	return b.prune(rootName, discovered, edges, order), nil
}

func (b *Builder) defaultConfig(p *pkg.Package) string {
	if names := p.Recipe.MatchedConfigurations(b.platform); len(names) > 0 {
		return names[0]
	}
	if len(p.Recipe.Configurations) > 0 {
		return p.Recipe.Configurations[0].Name
	}
	return ""
}

// discover performs a depth-first walk from (name, config), recording every
// vertex reached and the edges between them. path is the chain of package
// names on the current walk; a name reappearing on it is a genuine
// dependency cycle, as distinct from two different parents both legitimately
// reaching the same (name, config) vertex (a diamond, not a cycle). visited
// gates re-expanding a vertex's own dependencies once that work has already
// been done, but every call still runs the cycle check first, so a cycle is
// caught even when the repeated vertex was already fully discovered through
// an unrelated earlier path. order records each package name the first time
// any of its vertices is discovered, giving a deterministic
// parents-before-children ordering for the pruning pass.
func (b *Builder) discover(path []string, name, config string, discovered map[string]map[string]bool, edges map[Vertex][]Vertex, visited map[Vertex]bool, order *[]string) error {
	for _, anc := range path {
		if anc == name {
			return &ConfigurationCycle{Path: append(append([]string{}, path...), name)}
		}
	}
	if !containsFirstSeen(*order, name) {
		*order = append(*order, name)
	}
	if discovered[name] == nil {
		discovered[name] = map[string]bool{}
	}
	discovered[name][config] = true

	self := Vertex{Package: name, Config: config}
	if visited[self] {
		return nil
	}
	visited[self] = true

	p := b.packages[name]
	if p == nil {
		return nil
	}
	nextPath := append(append([]string{}, path...), name)

	deps := append([]recipe.Dependency{}, p.Dependencies()...)
	sort.Slice(deps, func(i, j int) bool { return deps[i].FullName() < deps[j].FullName() })

	for _, dep := range deps {
		if dep.Path != "" || dep.Repository != "" {
			continue // materialized directly; not part of the configuration graph
		}
		// depName is the dependency's package-map key: "parent:sub" for a
		// sub-package reference, otherwise the bare name. Anvil loads
		// sub-packages as their own *pkg.Package with their own
		// Configurations, so they get their own vertices, keyed the same
		// way the resolver's sub-package cache keys them.
		depName := dep.FullName()
		if depName == name {
			continue
		}
		depPkg, ok := b.packages[depName]
		if !ok {
			continue // an optional dependency the resolver left unsatisfied
		}

		var allowed []string
		if override, ok := b.overrides[depName]; ok {
			allowed = []string{override}
		} else if sub := p.GetSubConfiguration(config, depName, b.platform); sub != "" {
			allowed = []string{sub}
		} else if sub := p.GetSubConfiguration(config, dep.Name, b.platform); sub != "" {
			allowed = []string{sub}
		} else {
			allowed = depPkg.Recipe.MatchedConfigurations(b.platform)
		}

		if prior, ok := discovered[depName]; ok && len(prior) > 0 {
			allowed = intersect(allowed, prior)
		}
		if len(allowed) == 0 {
			return &NoViableConfiguration{Package: name, Config: config, Dependency: depName}
		}

		for _, ac := range allowed {
			edges[self] = appendUniqueVertex(edges[self], Vertex{Package: depName, Config: ac})
			if err := b.discover(nextPath, depName, ac, discovered, edges, visited, order); err != nil {
				return err
			}
		}
	}
	return nil
}

func containsFirstSeen(order []string, name string) bool {
	for _, n := range order {
		if n == name {
			return true
		}
	}
	return false
}

func intersect(allowed []string, prior map[string]bool) []string {
	var out []string
	for _, a := range allowed {
		if prior[a] {
			out = append(out, a)
		}
	}
	return out
}

func appendUniqueVertex(vs []Vertex, v Vertex) []Vertex {
	for _, existing := range vs {
		if existing == v {
			return vs
		}
	}
	return append(vs, v)
}
