package main

import (
	"os"
	"path/filepath"

	"github.com/anvil-build/anvil/internal/config"
	"github.com/anvil-build/anvil/internal/diag"
	"github.com/anvil-build/anvil/internal/project"
	"github.com/anvil-build/anvil/internal/registry"
	"github.com/pkg/errors"
)

// context holds the ambient collaborators every command needs: a logger, a
// tracer gated on -v, and the registry stack commands resolve a Project's
// registry.Supplier from. Grounded on context.go's Ctx, narrowed to what a
// thin shell actually needs once internal/project owns the orchestration
// Ctx used to do inline.
type context struct {
	log      *diag.Logger
	tracer   *diag.Tracer
	registry registry.Supplier
	vcs      *registry.VCSMaterializer
}

func newContext() (*context, error) {
	log := diag.New(os.Stdout, os.Stderr)
	log.Verbose = *verbose

	var tracer *diag.Tracer
	if *verbose {
		tracer = diag.NewTracer(os.Stderr)
	}

	registryURL := os.Getenv(envRegistry)
	if registryURL == "" {
		registryURL = defaultRegistryURL
	}

	cacheHome, err := os.UserCacheDir()
	if err != nil {
		return nil, errors.Wrap(err, "determining user cache directory")
	}
	archiveDir := filepath.Join(cacheHome, "anvil", "archives")
	vcsDir := filepath.Join(cacheHome, "anvil", "vcs")

	return &context{
		log:      log,
		tracer:   tracer,
		registry: registry.NewFallback(registry.NewHTTP(registryURL, archiveDir)),
		vcs:      registry.NewVCSMaterializer(vcsDir),
	}, nil
}

// loadProject finds the project root starting from the working directory
// and builds a Project over it.
func (c *context) loadProject() (*project.Project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "determining working directory")
	}

	root, err := config.FindProjectRoot(wd, project.RootMarker)
	if err != nil {
		return nil, err
	}

	cfg, err := config.New(root)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = *verbose

	return project.Load(cfg, c.log, c.tracer, c.registry, c.vcs)
}
