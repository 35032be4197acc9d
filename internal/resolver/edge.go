package resolver

import (
	"context"

	"github.com/anvil-build/anvil/internal/cache"
	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/pkg/errors"
)

func (r *Resolver) resolveDeps(ctx context.Context, deps []recipe.Dependency, chain []string) error {
	for _, d := range deps {
		if err := r.resolveEdge(ctx, d, chain); err != nil {
			return err
		}
	}
	return nil
}

// resolveEdge dispatches one dependency edge to the plain-name, sub-package,
// or path/repository resolution path (spec §4.6).
func (r *Resolver) resolveEdge(ctx context.Context, dep recipe.Dependency, chain []string) error {
	if dep.Name == r.rootName {
		// A dependency back to the root is never recursed into; the
		// resolver keeps no edge list, so nothing is recorded for it.
		return nil
	}

	constraint := semver.Any()
	if dep.Constraint != "" {
		c, err := semver.ParseConstraint(dep.Constraint)
		if err != nil {
			return errors.Wrapf(err, "parsing constraint for %s", dep.FullName())
		}
		constraint = c
	}
	constraint.Path = dep.Path
	constraint.Repository = dep.Repository
	constraint.Optional = dep.Optional
	constraint.Default = dep.Default

	// optional ∧ default behaves as required only when no prior selection
	// exists for the name (spec §4.6 "Optional dependencies").
	_, alreadySeen := r.nodes[dep.Name]
	isRequired := !dep.Optional || (dep.Default && !alreadySeen)

	if dep.SubPackage != "" {
		return r.resolveSubPackage(ctx, dep, constraint, chain, isRequired)
	}
	if dep.Path != "" || dep.Repository != "" {
		return r.resolvePathOrRepo(ctx, dep, chain)
	}
	return r.resolveName(ctx, dep.Name, constraint, chain, isRequired)
}

// resolveName is the core per-name backtracking step.
func (r *Resolver) resolveName(ctx context.Context, name string, constraint semver.Constraint, chain []string, isRequired bool) error {
	if existing, ok := r.nodes[name]; ok {
		merged := existing.constraint.Merge(constraint)
		if !merged.Valid() {
			if !isRequired {
				return nil
			}
			return &ResolutionFailed{Package: name, Reason: "constraint conflicts with a prior selection", Path: chain}
		}
		existing.constraint = merged

		numeric := existing.pin.Path == "" && existing.pin.Repository == ""
		if existing.state == stateAccepted && numeric && !merged.Matches(existing.pin.Version) {
			if existing.queue == nil {
				if !isRequired {
					return nil
				}
				return &ResolutionFailed{Package: name, Reason: "a tighter constraint was declared, but no alternative versions are available", Path: chain}
			}
			existing.queue.advance(errors.New("superseded by a tighter constraint from a later dependency"))
			r.tracer.Tracef(len(chain), "re-trying %s under tightened constraint %s", name, merged)
			return r.tryNext(ctx, existing, chain, isRequired)
		}
		return nil
	}

	queue, err := r.buildCandidateQueue(ctx, name, constraint)
	if err != nil {
		if !isRequired {
			return nil
		}
		return errors.Wrapf(err, "enumerating candidates for %s", name)
	}

	n := &node{name: name, state: stateCandidatesFetched, constraint: constraint, queue: queue}
	r.nodes[name] = n
	r.tracer.Tracef(len(chain), "trying %s: %d candidate(s)", name, len(queue.vs))
	return r.tryNext(ctx, n, chain, isRequired)
}

// tryNext walks node's candidate queue, recursing into each candidate's own
// dependencies and rolling back any nodes created along the way before
// advancing to the next candidate on failure (spec §4.6 "Search": depth-
// first with chronological backtracking).
func (r *Resolver) tryNext(ctx context.Context, n *node, chain []string, isRequired bool) error {
	for {
		v, ok := n.queue.current()
		if !ok {
			n.state = stateExhausted
			if isRequired {
				return &ResolutionFailed{Package: n.name, Reason: "no candidate version satisfies every constraint", Path: chain}
			}
			return nil
		}

		n.state = stateTrying
		before := r.snapshotNodeNames()

		p, err := r.loadPackageForCandidate(ctx, n.name, v)
		if err == nil {
			n.pin = Pin{Name: n.name, Version: v}
			n.p = p
			n.state = stateAccepted
			newChain := append(append([]string{}, chain...), n.name)
			err = r.resolveDeps(ctx, p.Dependencies(), newChain)
		}

		if err == nil {
			return nil
		}

		r.tracer.Tracef(len(chain), "%s@%s failed: %v", n.name, v, err)
		r.rollbackNewNodes(before)
		n.queue.advance(err)
		n.state = stateCandidatesFetched
	}
}

func (r *Resolver) snapshotNodeNames() map[string]bool {
	seen := make(map[string]bool, len(r.nodes))
	for name := range r.nodes {
		seen[name] = true
	}
	return seen
}

func (r *Resolver) rollbackNewNodes(before map[string]bool) {
	for name := range r.nodes {
		if !before[name] {
			delete(r.nodes, name)
		}
	}
}

// loadPackageForCandidate materializes version v of name, preferring an
// already-cached copy before falling back to the registry supplier.
func (r *Resolver) loadPackageForCandidate(ctx context.Context, name string, v semver.Version) (*pkg.Package, error) {
	if p, err := r.cache.GetPackage(name, v, nil); err == nil {
		return p, nil
	}

	eq := semver.Constraint{CmpA: semver.EQ, VersA: v, CmpB: semver.EQ, VersB: v}
	zipPath, err := r.reg.FetchArchive(ctx, name, eq, v.IsPrerelease())
	if err != nil {
		return nil, errors.Wrapf(err, "fetching archive for %s@%s", name, v)
	}
	return r.cache.StoreFetchedPackage(cache.TierUser, name, v, zipPath)
}

// resolveSubPackage resolves dep.Name (the parent) first, then looks up
// dep.SubPackage on the resolved parent (spec §4.6 "Sub-packages").
func (r *Resolver) resolveSubPackage(ctx context.Context, dep recipe.Dependency, constraint semver.Constraint, chain []string, isRequired bool) error {
	if err := r.resolveName(ctx, dep.Name, constraint, chain, isRequired); err != nil {
		return err
	}

	parent, ok := r.nodes[dep.Name]
	if !ok || parent.state != stateAccepted {
		if isRequired {
			return &ResolutionFailed{Package: dep.FullName(), Reason: "parent package did not resolve", Path: chain}
		}
		return nil
	}

	full := dep.FullName()
	sub, cached := r.subcache[full]
	if !cached {
		var err error
		sub, err = parent.p.SubPackage(dep.SubPackage)
		if err != nil {
			if isRequired {
				return &ResolutionFailed{Package: full, Reason: err.Error(), Path: chain}
			}
			return nil
		}
		r.subcache[full] = sub
	}

	newChain := append(append([]string{}, chain...), full)
	return r.resolveDeps(ctx, sub.Dependencies(), newChain)
}

// resolvePathOrRepo loads a path- or repository-pinned dependency directly,
// skipping version search entirely (spec §4.6 "Path and repository
// dependencies").
func (r *Resolver) resolvePathOrRepo(ctx context.Context, dep recipe.Dependency, chain []string) error {
	name := dep.Name
	if existing, ok := r.nodes[name]; ok && existing.state == stateAccepted {
		return nil
	}

	var p *pkg.Package
	var pin Pin
	var err error
	switch {
	case dep.Path != "":
		p, err = pkg.Load(dep.Path)
		pin = Pin{Name: name, Path: dep.Path}
	default:
		p, err = r.vcs.Materialize(ctx, dep.Repository, dep.Constraint)
		pin = Pin{Name: name, Repository: dep.Repository, Version: semver.NewBranch(dep.Constraint)}
	}
	if err != nil {
		return &ResolutionFailed{Package: name, Reason: err.Error(), Path: chain}
	}

	if dep.Path != "" && dep.Constraint != "" {
		if c, cerr := semver.ParseConstraint(dep.Constraint); cerr == nil {
			if v, verr := semver.Parse(p.Recipe.Version); verr == nil && !c.Matches(v) {
				return &ResolutionFailed{Package: name, Reason: "path package's declared version does not satisfy the constraint", Path: chain}
			}
		}
	}

	n := &node{name: name, state: stateAccepted, pin: pin, p: p}
	r.nodes[name] = n
	newChain := append(append([]string{}, chain...), name)
	return r.resolveDeps(ctx, p.Dependencies(), newChain)
}
