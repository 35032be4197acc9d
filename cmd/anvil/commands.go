package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/anvil-build/anvil/internal/buildplan"
	"github.com/anvil-build/anvil/internal/project"
	"github.com/anvil-build/anvil/internal/resolver"
)

// buildCommand resolves, assigns configurations, composes build settings,
// and reports the resulting plan (spec §4.6-§4.8 end to end). It stops
// short of invoking a compiler: driving the actual compiler/linker
// invocation from a composed Plan is compiler-specific flag mangling,
// explicitly out of scope.
type buildCommand struct {
	buildType string
}

func (c *buildCommand) Name() string      { return "build" }
func (c *buildCommand) Args() string      { return "" }
func (c *buildCommand) ShortHelp() string { return "Resolve dependencies and compose build settings" }
func (c *buildCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.buildType, "build", "debug", "build type (debug, release, unittest, ...)")
}

func (c *buildCommand) Run([]string) error {
	p, err := anvilCtx.loadProject()
	if err != nil {
		return err
	}

	plan, err := p.Plan(context.Background(), project.BuildOptions{
		Resolve:   resolver.Options{Select: true},
		BuildPlan: buildplan.Options{BuildType: buildplan.BuildType(c.buildType)},
	})
	if err != nil {
		return err
	}

	fmt.Printf("target: %s (%s)\n", plan.Settings.TargetType, orDefault(plan.Settings.TargetName, p.RootName))
	fmt.Printf("order:  %s\n", strings.Join(plan.Order, " -> "))
	fmt.Printf("source files: %d\n", len(plan.Settings.SourceFiles))
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// ensureCommand resolves the project's dependencies and persists the
// result to Selections, the way `dub upgrade`/`ensure` installs and pins a
// working dependency set without touching build settings.
type ensureCommand struct{}

func (c *ensureCommand) Name() string      { return "ensure" }
func (c *ensureCommand) Args() string      { return "" }
func (c *ensureCommand) ShortHelp() string { return "Resolve and persist the project's selected dependency versions" }
func (c *ensureCommand) Register(*flag.FlagSet) {}

func (c *ensureCommand) Run([]string) error {
	p, err := anvilCtx.loadProject()
	if err != nil {
		return err
	}
	res, err := p.Resolve(context.Background(), resolver.Options{Select: true})
	if err != nil {
		return err
	}
	fmt.Printf("resolved %d package(s)\n", len(res.Pins))
	return nil
}

// updateCommand re-resolves ignoring the currently persisted selections,
// preferring the newest version satisfying every constraint, and persists
// the new result.
type updateCommand struct {
	preRelease bool
}

func (c *updateCommand) Name() string      { return "update" }
func (c *updateCommand) Args() string      { return "" }
func (c *updateCommand) ShortHelp() string { return "Re-resolve dependencies, preferring the newest versions available" }
func (c *updateCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.preRelease, "prerelease", false, "allow pre-release versions")
}

func (c *updateCommand) Run([]string) error {
	p, err := anvilCtx.loadProject()
	if err != nil {
		return err
	}
	res, err := p.Resolve(context.Background(), resolver.Options{
		Upgrade:    true,
		PreRelease: c.preRelease,
		Select:     true,
	})
	if err != nil {
		return err
	}
	fmt.Printf("resolved %d package(s)\n", len(res.Pins))
	return nil
}

// whyCommand explains why a package is present in the resolved dependency
// graph (SPEC_FULL §3 supplement).
type whyCommand struct{}

func (c *whyCommand) Name() string      { return "why" }
func (c *whyCommand) Args() string      { return "<package>" }
func (c *whyCommand) ShortHelp() string { return "Show why a package is present in the dependency graph" }
func (c *whyCommand) Register(*flag.FlagSet) {}

func (c *whyCommand) Run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("why requires exactly one package name")
	}
	p, err := anvilCtx.loadProject()
	if err != nil {
		return err
	}
	paths, err := p.Why(context.Background(), args[0])
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Println(strings.Join(path.Chain, " -> "))
	}
	return nil
}

// searchCommand forwards a free-text query to the configured registry.
type searchCommand struct{}

func (c *searchCommand) Name() string      { return "search" }
func (c *searchCommand) Args() string      { return "<query>" }
func (c *searchCommand) ShortHelp() string { return "Search the registry for packages" }
func (c *searchCommand) Register(*flag.FlagSet) {}

func (c *searchCommand) Run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("search requires exactly one query")
	}
	p, err := anvilCtx.loadProject()
	if err != nil {
		return err
	}
	results, err := p.Search(context.Background(), args[0])
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%s %s\n", r.Name, r.Version)
	}
	return nil
}
