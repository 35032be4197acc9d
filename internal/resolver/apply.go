package resolver

import (
	"context"
	"sort"

	"github.com/anvil-build/anvil/internal/cache"
	"github.com/pkg/errors"
)

// applyResult implements the non-Selections-writing half of spec §4.6
// "Result application": branch-based pins taken under Options.Upgrade have
// their existing cached copy discarded and refetched, since a branch name
// alone carries no guarantee the cached tip is still current.
func (r *Resolver) applyResult(ctx context.Context, res *Result) error {
	if !r.opts.Upgrade {
		return nil
	}
	for name, pin := range res.Pins {
		if pin.Path != "" || pin.Repository != "" || !pin.Version.IsBranch() {
			continue
		}
		if err := r.cache.Remove(cache.TierUser, name, pin.Version); err != nil && !errors.Is(err, cache.ErrLocalTierPackage) {
			r.log.Diag("could not discard stale branch copy of %s: %v", name, err)
		}
		if _, err := r.loadPackageForCandidate(ctx, name, pin.Version); err != nil {
			return errors.Wrapf(err, "refreshing branch pin for %s", name)
		}
	}
	return nil
}

// computeUpgradeReport builds the PrintUpgradesOnly summary: every resolved
// non-root package whose candidate version differs from what Selections
// currently pins.
func (r *Resolver) computeUpgradeReport(context.Context) []UpgradeReport {
	var out []UpgradeReport
	if r.sel == nil {
		return out
	}
	for name, n := range r.nodes {
		if n.state != stateAccepted || name == r.rootName || n.pin.Path != "" {
			continue
		}
		pin, err := r.sel.Get(name)
		if err != nil {
			continue
		}
		available := n.pin.Version.String()
		if pin.Version != available {
			out = append(out, UpgradeReport{Name: name, Current: pin.Version, Available: available})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
