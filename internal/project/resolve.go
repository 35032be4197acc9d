package project

import (
	"context"

	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/resolver"
	"github.com/pkg/errors"
)

// Resolve runs dependency resolution over the root package and returns the
// pin set, optionally persisting it to Selections (spec §4.6).
func (pr *Project) Resolve(ctx context.Context, opts resolver.Options) (*resolver.Result, error) {
	if err := pr.Cache.Refresh(); err != nil {
		return nil, errors.Wrap(err, "refreshing package cache")
	}
	r := resolver.New(pr.Config, pr.Log, pr.Tracer, pr.Cache, pr.Registry, pr.VCS, pr.Selections, opts)
	return r.Resolve(ctx, pr.Root)
}

// LoadResolvedPackages materializes every package a resolution result
// names into a map keyed the way configgraph and buildplan expect: base
// names as resolved, plus every sub-package transitively referenced from
// the root or any resolved package, keyed "parent:sub" (spec §4.6
// "Sub-packages", §4.7 vertex model). resolver.Result.Pins only carries
// base-package entries, so sub-packages are discovered and loaded here by
// walking dependency declarations to a fixed point.
func (pr *Project) LoadResolvedPackages(ctx context.Context, res *resolver.Result) (map[string]*pkg.Package, error) {
	packages := map[string]*pkg.Package{pr.RootName: pr.Root}
	for name, pin := range res.Pins {
		p, err := pr.loadPin(ctx, name, pin)
		if err != nil {
			return nil, errors.Wrapf(err, "loading resolved package %s", name)
		}
		packages[name] = p
	}
	if err := expandSubPackages(packages); err != nil {
		return nil, err
	}
	return packages, nil
}

// loadPin materializes the package a single resolved pin names, per its
// concrete kind (spec §4.6 "Result application").
func (pr *Project) loadPin(ctx context.Context, name string, pin resolver.Pin) (*pkg.Package, error) {
	switch {
	case pin.Path != "":
		return pkg.Load(pin.Path)
	case pin.Repository != "":
		return pr.VCS.Materialize(ctx, pin.Repository, pin.Version.String())
	default:
		return pr.Cache.GetPackage(name, pin.Version, nil)
	}
}

// expandSubPackages walks every currently-loaded package's dependency
// declarations and loads any "parent:sub" reference not yet present,
// repeating until a pass adds nothing new (a sub-package's own
// dependencies may in turn name further sub-packages). Each pass snapshots
// the current package set before mutating it, since Go forbids adding to a
// map while ranging over it.
func expandSubPackages(packages map[string]*pkg.Package) error {
	for {
		snapshot := make([]*pkg.Package, 0, len(packages))
		for _, p := range packages {
			snapshot = append(snapshot, p)
		}

		changed := false
		for _, p := range snapshot {
			for _, dep := range p.Dependencies() {
				if dep.SubPackage == "" {
					continue
				}
				full := dep.FullName()
				if _, ok := packages[full]; ok {
					continue
				}
				parent, ok := packages[dep.Name]
				if !ok {
					continue // parent itself unresolved (an unsatisfied optional dependency)
				}
				sub, err := parent.SubPackage(dep.SubPackage)
				if err != nil {
					return errors.Wrapf(err, "loading sub-package %s", full)
				}
				packages[full] = sub
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
}
