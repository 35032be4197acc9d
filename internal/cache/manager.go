package cache

import (
	"sort"
	"sync"

	"github.com/anvil-build/anvil/internal/config"
	"github.com/anvil-build/anvil/internal/diag"
	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/pkg/errors"
)

// Manager is Anvil's package manager: the multi-tier cache index plus the
// locked store/remove protocols (spec §4.4). It holds one in-memory index
// per tier, replaced wholesale on refresh rather than mutated in place.
type Manager struct {
	cfg    *config.Config
	log    *diag.Logger
	tiers  []Tier
	mu     sync.RWMutex
	index  map[string]*tierIndex // keyed by Tier.Root
	ovr    map[string]*overrideTable
}

// New builds a Manager over cfg's cache tiers (project, user, system, in
// that precedence order) plus a transient tier, and performs an initial
// scan of each.
func New(cfg *config.Config, log *diag.Logger) (*Manager, error) {
	m := &Manager{
		cfg: cfg,
		log: log,
		tiers: []Tier{
			{Root: cfg.ProjectCacheRoot, Kind: TierProject},
			{Root: cfg.UserCacheRoot, Kind: TierUser},
			{Root: cfg.SystemCacheRoot, Kind: TierSystem},
			{Root: cfg.TransientCacheRoot, Kind: TierTransient},
		},
		index: map[string]*tierIndex{},
		ovr:   map[string]*overrideTable{},
	}
	if err := m.Refresh(); err != nil {
		return nil, err
	}
	return m, nil
}

// Refresh rescans every tier and replaces the in-memory index wholesale
// (spec §5 shared-resources rule for the in-memory index).
func (m *Manager) Refresh() error {
	newIndex := map[string]*tierIndex{}
	newOvr := map[string]*overrideTable{}
	for _, t := range m.tiers {
		idx, err := scanTier(t, m.warnf)
		if err != nil {
			return errors.Wrapf(err, "scanning tier %s", t.Root)
		}
		newIndex[t.Root] = idx

		ovr, err := loadOverrides(t)
		if err != nil {
			return errors.Wrapf(err, "loading overrides for tier %s", t.Root)
		}
		newOvr[t.Root] = ovr
	}

	m.mu.Lock()
	m.index = newIndex
	m.ovr = newOvr
	m.mu.Unlock()
	return nil
}

func (m *Manager) warnf(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Warn(format, args...)
	}
}

// Versions enumerates every version of name available across all tiers,
// descending.
func (m *Manager) Versions(name string) []semver.Version {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]bool{}
	var out []semver.Version
	for _, t := range m.tiers {
		idx := m.index[t.Root]
		for verStr := range idx.byName[name] {
			if seen[verStr] {
				continue
			}
			seen[verStr] = true
			if v, err := semver.Parse(verStr); err == nil {
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Less(out[i]) })
	return out
}

// GetPackage returns the loaded package for (name, ver), optionally scoped
// to a single tier. Tiers are searched in precedence order when tier is
// nil.
func (m *Manager) GetPackage(name string, ver semver.Version, tier *TierKind) (*pkg.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tiers {
		if tier != nil && t.Kind != *tier {
			continue
		}
		idx := m.index[t.Root]
		if path, ok := idx.byName[name][SanitizeVersion(ver)]; ok {
			return pkg.Load(path)
		}
		// SanitizeVersion keys the index; also check the raw String() form
		// for branch versions, which SanitizeVersion leaves unmodified
		// except for stripping the marker.
		if path, ok := idx.byName[name][ver.String()]; ok {
			return pkg.Load(path)
		}
	}
	return nil, errors.Errorf("package %s@%s not found in any tier", name, ver.String())
}

// GetBestPackage returns the package for the highest version matching
// constraint (numeric candidates preferred over branch candidates), or nil
// if none match. Overrides are consulted first, per tier, in precedence
// order (spec §4.4).
func (m *Manager) GetBestPackage(name string, constraint semver.Constraint) (*pkg.Package, error) {
	m.mu.RLock()
	for _, t := range m.tiers {
		ovr := m.ovr[t.Root]
		if ovr == nil {
			continue
		}
		if target, ok := ovr.lookup(name, constraint); ok {
			m.mu.RUnlock()
			return m.resolveOverrideTarget(name, target)
		}
	}
	m.mu.RUnlock()

	if constraint.IsBranch() {
		v := constraint.VersA
		pkg, err := m.GetPackage(name, v, nil)
		if err != nil {
			return nil, nil
		}
		return pkg, nil
	}

	var best *semver.Version
	for _, v := range m.Versions(name) {
		vv := v
		if !constraint.Matches(vv) {
			continue
		}
		if best == nil || best.Less(vv) {
			best = &vv
		}
	}
	if best == nil {
		return nil, nil
	}
	return m.GetPackage(name, *best, nil)
}

func (m *Manager) resolveOverrideTarget(name string, target overrideTarget) (*pkg.Package, error) {
	if target.Path != "" {
		return pkg.Load(target.Path)
	}
	v, err := semver.Parse(target.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "override version for %s", name)
	}
	return m.GetPackage(name, v, nil)
}

