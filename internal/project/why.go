package project

import (
	"context"

	"github.com/anvil-build/anvil/internal/resolver"
	"github.com/pkg/errors"
)

// DependencyPath is one explanatory chain from the root package down to a
// queried package, root-first. Grounded on status.go's dependency-path
// reporting, generalized from its gps-specific import-path accounting to
// Anvil's flat package-name dependency model.
type DependencyPath struct {
	Chain []string
}

// Why resolves the project and reports the chain of dependency edges
// leading from the root package to name, if any. It is a read-only,
// resolve-only operation: it never touches Selections (spec §3's supplement
// over the distilled feature set; not present in the upstream tool's
// original command surface but directly useful given the graph this
// package already builds).
func (pr *Project) Why(ctx context.Context, name string) ([]DependencyPath, error) {
	res, err := pr.Resolve(ctx, resolver.Options{NoSaveSelections: true})
	if err != nil {
		return nil, err
	}
	packages, err := pr.LoadResolvedPackages(ctx, res)
	if err != nil {
		return nil, err
	}

	if _, ok := packages[name]; !ok {
		return nil, errors.Errorf("package %q is not present in the resolved dependency graph", name)
	}

	var paths []DependencyPath
	visited := map[string]bool{}

	var walk func(cur string, chain []string)
	walk = func(cur string, chain []string) {
		if cur == name {
			paths = append(paths, DependencyPath{Chain: append([]string{}, chain...)})
			return
		}
		if visited[cur] {
			return
		}
		visited[cur] = true

		p, ok := packages[cur]
		if !ok {
			return
		}
		for _, dep := range p.Dependencies() {
			depName := dep.FullName()
			if _, ok := packages[depName]; !ok || depName == cur {
				continue
			}
			walk(depName, append(chain, depName))
		}
	}
	walk(pr.RootName, []string{pr.RootName})

	if len(paths) == 0 {
		return nil, errors.Errorf("package %q is present but not reachable from the root package", name)
	}
	return paths, nil
}
