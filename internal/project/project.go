// Package project is Anvil's orchestrator: the object that ties a loaded
// root package to a Config, a package-cache Manager, a registry Supplier,
// and a Selections file, and drives them through resolve -> configuration
// -> build composition (spec §4.3 "Project", §4.6-§4.8).
//
// Grounded on the Ctx/Project split in context.go/project.go: Ctx carried
// ambient GOPATH state and built a *gps.SourceMgr on demand, while Project
// held the loaded manifest/lock and the methods that acted on them. Anvil
// collapses that into a single constructor-injected Project holding every
// collaborator it needs, per the same redesign direction already applied
// to internal/config.
package project

import (
	"github.com/anvil-build/anvil/internal/cache"
	"github.com/anvil-build/anvil/internal/config"
	"github.com/anvil-build/anvil/internal/diag"
	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/registry"
	"github.com/anvil-build/anvil/internal/selections"
	"github.com/pkg/errors"
)

// RootMarker is the highest-precedence recognized recipe filename,
// suitable as the marker config.FindProjectRoot walks upward looking for.
// Any of the three recognized filenames would do for existence-checking
// purposes; recipe.LoadDir is what actually dispatches on whichever one
// is present.
const RootMarker = "dub.json"

// Project bundles a loaded root package with every collaborator its
// operations need: the cache manager, registry client, VCS materializer,
// and persisted selections.
type Project struct {
	Config *config.Config
	Log    *diag.Logger
	Tracer *diag.Tracer

	Cache      *cache.Manager
	Registry   registry.Supplier
	VCS        *registry.VCSMaterializer
	Selections *selections.Selections

	Root     *pkg.Package
	RootName string
}

// Load builds a Project rooted at cfg.ProjectRoot: it loads the root
// package, opens (or creates) the cache manager, and loads (or creates) the
// project's selections file. reg and vcs are supplied by the caller since
// which registries are configured, and where VCS checkouts land, are
// concerns outside this package (spec §6 registry configuration is
// explicitly out of scope).
func Load(cfg *config.Config, log *diag.Logger, tracer *diag.Tracer, reg registry.Supplier, vcs *registry.VCSMaterializer) (*Project, error) {
	root, err := pkg.Load(cfg.ProjectRoot)
	if err != nil {
		return nil, errors.Wrap(err, "loading root package")
	}

	cm, err := cache.New(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, "opening package cache")
	}

	sel, err := selections.Load(cfg.ProjectRoot, log.Warn)
	if err != nil {
		return nil, errors.Wrap(err, "loading selections")
	}

	return &Project{
		Config:     cfg,
		Log:        log,
		Tracer:     tracer,
		Cache:      cm,
		Registry:   reg,
		VCS:        vcs,
		Selections: sel,
		Root:       root,
		RootName:   root.Recipe.Name,
	}, nil
}

// buildPlatform converts Config's OS/Arch pair into the recipe.BuildPlatform
// descriptor recipe matching, configgraph, and buildplan all key off.
// Config.BuildPlatform stays a plain {OS, Arch} pair since it is also the
// shape command-line flags and environment discovery populate; the richer
// multi-value form is only needed once build settings are actually being
// composed.
func (pr *Project) buildPlatform() recipe.BuildPlatform {
	return recipe.BuildPlatform{
		Platforms:     []string{pr.Config.BuildPlatform.OS},
		Architectures: []string{pr.Config.BuildPlatform.Arch},
	}
}
