// Package cache implements Anvil's package manager: the multi-tier,
// content-addressed on-disk package cache, its local registration and
// override tables, and the locked store/remove protocols (spec §4.4).
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anvil-build/anvil/internal/pathutil"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/pkg/errors"
)

// TierKind distinguishes the four cache locations a package may live in.
type TierKind int

const (
	TierSystem TierKind = iota
	TierUser
	TierProject
	TierTransient
)

func (k TierKind) String() string {
	switch k {
	case TierSystem:
		return "system"
	case TierUser:
		return "user"
	case TierProject:
		return "project"
	case TierTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Tier is one cache location: a root directory plus its kind. Tiers earlier
// in a Manager's tier list take precedence during lookup (spec §4.3 cache
// tiers: project overrides user overrides system).
type Tier struct {
	Root string
	Kind TierKind
}

func (t Tier) packagesDir() string { return filepath.Join(t.Root, "packages") }

func (t Tier) localPackagesFile() string { return filepath.Join(t.Root, "local-packages.json") }

func (t Tier) overridesFile() string { return filepath.Join(t.Root, "overrides.json") }

// SanitizeVersion strips a leading branch marker and replaces build-metadata
// '+' with '_', producing the directory-safe version fragment used in the
// cache filesystem layout (spec §6).
func SanitizeVersion(v semver.Version) string {
	s := v.String()
	s = strings.TrimPrefix(s, string(semver.BranchMarker))
	return strings.ReplaceAll(s, "+", "_")
}

func (t Tier) packageDir(name string, v semver.Version) string {
	return filepath.Join(t.packagesDir(), name+"-"+SanitizeVersion(v), name)
}

func (t Tier) lockFile(name string, v semver.Version) string {
	return filepath.Join(t.packagesDir(), name+"-"+SanitizeVersion(v)+".lock")
}

func (t Tier) journalFile(name string, v semver.Version) string {
	return filepath.Join(t.packagesDir(), name+"-"+SanitizeVersion(v)+".journal")
}

// localEntry is one row of a tier's local-packages.json: a package that has
// been fetched into, or manually registered against, this tier.
type localEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"`
}

func readLocalEntries(t Tier) ([]localEntry, error) {
	path := t.localPackagesFile()
	ok, err := pathutil.IsRegular(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var entries []localEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return entries, nil
}

func writeLocalEntries(t Tier, entries []localEntry) error {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version < entries[j].Version
	})
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.localPackagesFile()), 0o755); err != nil {
		return err
	}
	return pathutil.WriteAtomic(t.localPackagesFile(), b)
}
