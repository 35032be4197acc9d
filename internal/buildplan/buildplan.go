// Package buildplan composes the final flat build settings for a resolved,
// configuration-assigned package set (spec §4.8): a topological walk that
// calls each package's own getBuildSettings, concatenates the additive
// fields, expands variable references, and applies the build-type overlay.
//
// Grounded on manifest.go's field-composition style (additive string-list
// accumulation across layers) and its TOML round-trip for the
// general idea of a small, self-contained settings table — there being no
// pack dependency that implements shell-style variable expansion with this
// exact variable-class set, the substitution table itself
// (subst.go) is standard library only (os, strings).
package buildplan

import (
	"sort"

	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/pkg/errors"
)

// Options controls a single composition run.
type Options struct {
	BuildType BuildType
}

// Plan is the result of composing a resolved package set: the final flat
// settings plus the composition order they were folded in (root-inclusive,
// dependencies before dependents).
type Plan struct {
	Settings recipe.BuildSettings
	Order    []string
}

// TargetTypeInvalid reports a target-type invariant violated during
// composition (spec §4.8 "Enforce").
type TargetTypeInvalid struct {
	Reason string
}

func (e *TargetTypeInvalid) Error() string { return e.Reason }

// Compose walks packages (keyed the same way the configuration graph keys
// them) in dependency order, honoring each package's chosen configuration
// in configs, and folds their build settings into one Plan for platform.
func Compose(packages map[string]*pkg.Package, configs map[string]string, platform recipe.BuildPlatform, rootName string, opts Options) (*Plan, error) {
	root, ok := packages[rootName]
	if !ok {
		return nil, errors.Errorf("root package %q not present in the resolved package set", rootName)
	}

	order := topoOrder(rootName, packages)
	dirs := packageDirVars(packages)

	var acc recipe.BuildSettings
	executables := map[string]bool{}

	for _, name := range order {
		p := packages[name]
		settings, err := p.GetBuildSettings(platform, configs[name])
		if err != nil {
			return nil, errors.Wrapf(err, "composing settings for %s", name)
		}
		settings = expandSettings(settings, substContext{
			self: p, root: root, platform: platform,
			buildType: opts.BuildType, packageDirs: dirs,
		})
		if settings.TargetType == "executable" {
			executables[name] = true
		}
		acc = acc.Merge(settings)
	}

	if !acc.NoDefaultFlags {
		acc = acc.Merge(overlayFor(opts.BuildType))
	}
	acc = subtractExcluded(acc)

	rootType, err := root.GetBuildSettings(platform, configs[rootName])
	if err != nil {
		return nil, errors.Wrapf(err, "reading root target type for %s", rootName)
	}
	if rootType.TargetType == "none" || rootType.TargetType == "source-library" {
		return nil, &TargetTypeInvalid{Reason: "root package " + rootName + " has target type " + rootType.TargetType + ", which cannot produce a build"}
	}
	if len(executables) > 1 {
		names := make([]string, 0, len(executables))
		for n := range executables {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, &TargetTypeInvalid{Reason: "more than one package declares an executable target: " + joinComma(names)}
	}

	return &Plan{Settings: acc, Order: order}, nil
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func subtractExcluded(s recipe.BuildSettings) recipe.BuildSettings {
	if len(s.ExcludedSourceFiles) == 0 {
		return s
	}
	excluded := make(map[string]bool, len(s.ExcludedSourceFiles))
	for _, f := range s.ExcludedSourceFiles {
		excluded[f] = true
	}
	kept := make([]string, 0, len(s.SourceFiles))
	for _, f := range s.SourceFiles {
		if !excluded[f] {
			kept = append(kept, f)
		}
	}
	s.SourceFiles = kept
	return s
}

// topoOrder returns a dependency-first (children before parents) ordering
// of every package reachable from rootName, via sorted-name depth-first
// postorder. A configuration graph having already been built over this same
// package set rules out cycles in practice; a repeat encountered mid-walk
// here is simply skipped rather than re-validated.
func topoOrder(rootName string, packages map[string]*pkg.Package) []string {
	visited := map[string]bool{}
	var order []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		p, ok := packages[name]
		if !ok {
			return
		}
		deps := append([]recipe.Dependency{}, p.Dependencies()...)
		sort.Slice(deps, func(i, j int) bool { return deps[i].FullName() < deps[j].FullName() })
		for _, dep := range deps {
			depName := dep.FullName()
			if _, ok := packages[depName]; ok && depName != name {
				visit(depName)
			}
		}
		order = append(order, name)
	}
	visit(rootName)
	return order
}
