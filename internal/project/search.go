package project

import (
	"context"
	"sort"
	"strings"

	"github.com/anvil-build/anvil/internal/registry"
	"github.com/anvil-build/anvil/internal/resolver"
)

// Search queries the configured registry and ranks results with exact and
// prefix matches against query first, falling back to alphabetical order
// otherwise (registry wire details are out of scope; ranking the results
// it returns is not).
func (pr *Project) Search(ctx context.Context, query string) ([]registry.PackageSummary, error) {
	results, err := pr.Registry.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	rank := func(name string) int {
		switch {
		case name == query:
			return 0
		case strings.HasPrefix(name, query):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := rank(results[i].Name), rank(results[j].Name)
		if ri != rj {
			return ri < rj
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

// Upgrades runs a dry-run resolve with PrintUpgradesOnly set and returns
// the resulting report, leaving Selections untouched (spec §4.6
// "PrintUpgradesOnly").
func (pr *Project) Upgrades(ctx context.Context, allowPreRelease bool) ([]resolver.UpgradeReport, error) {
	res, err := pr.Resolve(ctx, resolver.Options{
		Upgrade:           true,
		PreRelease:        allowPreRelease,
		PrintUpgradesOnly: true,
		NoSaveSelections:  true,
	})
	if err != nil {
		return nil, err
	}
	return res.Upgrades, nil
}
