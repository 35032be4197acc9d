// Package resolver implements Anvil's backtracking dependency resolution
// (spec §4.6): given a root package, current selections, and a set of
// option bits, it computes a mapping from each transitively depended-upon
// package name to a concrete version, path, or repository pin.
//
// The search is grounded on solver.go's CDCL-style discipline — a stack of
// selections, a per-name queue of remaining candidates, and chronological
// backtracking when a candidate turns out unsatisfiable — generalized from
// that solver's bimodal project/Go-import-path model down to Anvil's flatter
// one: a dependency names a package (optionally a sub-package) directly,
// with no import-path reachability analysis standing between a recipe's
// dependency block and the name it names.
package resolver

import (
	"context"

	"github.com/anvil-build/anvil/internal/cache"
	"github.com/anvil-build/anvil/internal/config"
	"github.com/anvil-build/anvil/internal/diag"
	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/registry"
	"github.com/anvil-build/anvil/internal/selections"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/pkg/errors"
)

// Options are the resolver's option bits (spec §4.6 "Inputs").
type Options struct {
	Upgrade           bool
	PreRelease        bool
	UseCachedResult   bool
	PrintUpgradesOnly bool
	Select            bool
	NoSaveSelections  bool
}

// Pin is a resolved dependency target: a concrete version, or a path/
// repository override.
type Pin struct {
	Name       string
	Version    semver.Version
	Path       string
	Repository string
}

// UpgradeReport is one row of the summary PrintUpgradesOnly mode emits:
// what's currently selected for a name versus the best candidate available.
type UpgradeReport struct {
	Name      string
	Current   string
	Available string
}

// Result is the outcome of a successful Resolve.
type Result struct {
	// Pins holds one entry per resolved package, keyed by base name (not
	// including the root package itself).
	Pins map[string]Pin

	// Upgrades is populated only when Options.PrintUpgradesOnly is set.
	Upgrades []UpgradeReport
}

// ResolutionFailed reports an unresolvable non-optional dependency, with
// the chain of depender names from the root down to the failing package
// (spec §4.6 "Failure semantics").
type ResolutionFailed struct {
	Package string
	Reason  string
	Path    []string
}

func (e *ResolutionFailed) Error() string {
	return "cannot resolve " + e.Package + " (via " + joinPath(e.Path) + "): " + e.Reason
}

func joinPath(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	out := path[0]
	for _, p := range path[1:] {
		out += " -> " + p
	}
	return out
}

// Resolver drives one resolution session.
type Resolver struct {
	cfg    *config.Config
	log    *diag.Logger
	tracer *diag.Tracer
	cache  *cache.Manager
	reg    registry.Supplier
	vcs    *registry.VCSMaterializer
	sel    *selections.Selections
	opts   Options

	rootName string
	nodes    map[string]*node // base package name -> resolution node
	subcache map[string]*pkg.Package
}

// New builds a Resolver. sel may be nil if selections are not being
// consulted (e.g. a throwaway dry-run resolve).
func New(cfg *config.Config, log *diag.Logger, tracer *diag.Tracer, cm *cache.Manager, reg registry.Supplier, vcs *registry.VCSMaterializer, sel *selections.Selections, opts Options) *Resolver {
	return &Resolver{
		cfg:      cfg,
		log:      log,
		tracer:   tracer,
		cache:    cm,
		reg:      reg,
		vcs:      vcs,
		sel:      sel,
		opts:     opts,
		nodes:    map[string]*node{},
		subcache: map[string]*pkg.Package{},
	}
}

// node is the per-package-name resolver state: a point in the
// Unseen -> Candidates-fetched -> Trying(cand_k) -> Accepted(cand_k) |
// Exhausted(fail) state machine (spec §4.6).
type node struct {
	name  string
	state nodeState

	queue      *candidateQueue // nil for path/repository-pinned nodes
	constraint semver.Constraint
	pin        Pin
	p          *pkg.Package

	requiredByNonOptional bool // false until some non-optional edge reaches it
	fails                 []error
}

type nodeState int

const (
	stateUnseen nodeState = iota
	stateCandidatesFetched
	stateTrying
	stateAccepted
	stateExhausted
)

// Resolve runs the backtracking search rooted at root and returns the
// resulting pin set (spec §4.6).
func (r *Resolver) Resolve(ctx context.Context, root *pkg.Package) (*Result, error) {
	r.rootName = root.Recipe.Name

	for _, dep := range root.Dependencies() {
		if err := r.resolveEdge(ctx, dep, []string{}); err != nil {
			return nil, err
		}
	}

	res := &Result{Pins: map[string]Pin{}}
	for name, n := range r.nodes {
		if n.state != stateAccepted {
			continue
		}
		res.Pins[name] = n.pin
	}

	if r.opts.PrintUpgradesOnly {
		res.Upgrades = r.computeUpgradeReport(ctx)
		return res, nil
	}

	if err := r.applyResult(ctx, res); err != nil {
		return nil, err
	}

	if r.opts.Select && !r.opts.NoSaveSelections && r.sel != nil {
		for name, pin := range res.Pins {
			if name == r.rootName {
				continue
			}
			r.sel.Select(name, toSelectionsPin(pin))
		}
		if err := r.sel.Save(); err != nil {
			return nil, errors.Wrap(err, "saving selections")
		}
	}

	return res, nil
}

func toSelectionsPin(p Pin) selections.Pin {
	switch {
	case p.Path != "":
		return selections.Pin{Path: p.Path}
	case p.Repository != "":
		return selections.Pin{Repository: p.Repository, Version: p.Version.String()}
	default:
		return selections.Pin{Version: p.Version.String()}
	}
}
