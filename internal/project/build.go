package project

import (
	"context"

	"github.com/anvil-build/anvil/internal/buildplan"
	"github.com/anvil-build/anvil/internal/configgraph"
	"github.com/anvil-build/anvil/internal/resolver"
	"github.com/pkg/errors"
)

// BuildOptions bundles every per-invocation choice Plan needs beyond the
// resolver's own Options: a forced configuration per package, and the
// build type to compose settings for.
type BuildOptions struct {
	Resolve   resolver.Options
	Configs   map[string]string // packName -> forced configName, may be nil
	BuildPlan buildplan.Options
}

// Plan resolves the project, assigns a configuration to every resolved
// package, and composes the final flat build settings, in that order
// (spec §4.6 -> §4.7 -> §4.8). It is the single end-to-end entry point
// cmd/anvil's build command drives.
func (pr *Project) Plan(ctx context.Context, opts BuildOptions) (*buildplan.Plan, error) {
	res, err := pr.Resolve(ctx, opts.Resolve)
	if err != nil {
		return nil, err
	}

	packages, err := pr.LoadResolvedPackages(ctx, res)
	if err != nil {
		return nil, err
	}

	platform := pr.buildPlatform()
	cb := configgraph.New(packages, platform, opts.Configs)
	configs, err := cb.Build(pr.RootName)
	if err != nil {
		return nil, errors.Wrap(err, "building configuration graph")
	}

	plan, err := buildplan.Compose(packages, configs, platform, pr.RootName, opts.BuildPlan)
	if err != nil {
		return nil, errors.Wrap(err, "composing build settings")
	}
	return plan, nil
}
