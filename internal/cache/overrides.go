package cache

import (
	"encoding/json"
	"os"

	"github.com/anvil-build/anvil/internal/pathutil"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/armon/go-radix"
	"github.com/pkg/errors"
)

// overrideTarget is either a version redirect or a path redirect (spec
// §4.4 overrides.json: target is either a {version} or a {path} object).
type overrideTarget struct {
	Version string `json:"version,omitempty"`
	Path    string `json:"path,omitempty"`
}

type overrideEntry struct {
	Package      string         `json:"package"`
	VersionRange string         `json:"versionRange"`
	Target       overrideTarget `json:"target"`
}

// overrideTable indexes a tier's overrides.json by package name using a
// radix tree, grounded on solver.go's use of armon/go-radix for
// longest-prefix project-root matching — adapted here from prefix matching
// on import paths to exact-then-prefix matching on package names, since
// override package names may themselves name a namespace root that a
// dependency's full "root/sub" name falls under.
type overrideTable struct {
	tree *radix.Tree
}

func loadOverrides(t Tier) (*overrideTable, error) {
	path := t.overridesFile()
	ok, err := pathutil.IsRegular(path)
	if err != nil {
		return nil, err
	}
	tree := radix.New()
	if !ok {
		return &overrideTable{tree: tree}, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var entries []overrideEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	for _, e := range entries {
		list, _ := tree.Get(e.Package)
		entries, _ := list.([]overrideEntry)
		entries = append(entries, e)
		tree.Insert(e.Package, entries)
	}
	return &overrideTable{tree: tree}, nil
}

func saveOverrides(t Tier, entries []overrideEntry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return pathutil.WriteAtomic(t.overridesFile(), b)
}

// lookup returns the override that applies to (name, constraint), if any:
// the longest-prefix match on the package name whose versionRange overlaps
// constraint wins (spec §4.4).
func (o *overrideTable) lookup(name string, constraint semver.Constraint) (overrideTarget, bool) {
	_, v, ok := o.tree.LongestPrefix(name)
	if !ok {
		return overrideTarget{}, false
	}
	entries := v.([]overrideEntry)
	for _, e := range entries {
		rangeConstraint, err := semver.ParseConstraint(e.VersionRange)
		if err != nil {
			continue
		}
		merged := rangeConstraint.Merge(constraint)
		if merged.Valid() {
			return e.Target, true
		}
	}
	return overrideTarget{}, false
}
