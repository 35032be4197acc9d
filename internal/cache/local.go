package cache

import "github.com/pkg/errors"

// RegisterLocal records a manually-placed package directory (one not
// fetched via StoreFetchedPackage, e.g. `anvil add-local`) into tier's
// local-packages.json, then refreshes the index.
func (m *Manager) RegisterLocal(tierKind TierKind, name, version, path string) error {
	tier := m.tierByKind(tierKind)
	if tier == nil {
		return errors.Errorf("no tier of kind %s configured", tierKind)
	}

	entries, err := readLocalEntries(*tier)
	if err != nil {
		return err
	}
	filtered := entries[:0]
	for _, e := range entries {
		if e.Name == name && e.Version == version {
			continue
		}
		filtered = append(filtered, e)
	}
	filtered = append(filtered, localEntry{Name: name, Version: version, Path: path})

	if err := writeLocalEntries(*tier, filtered); err != nil {
		return err
	}
	return m.Refresh()
}

// UnregisterLocal removes a manually-registered package entry.
func (m *Manager) UnregisterLocal(tierKind TierKind, name, version string) error {
	tier := m.tierByKind(tierKind)
	if tier == nil {
		return errors.Errorf("no tier of kind %s configured", tierKind)
	}

	entries, err := readLocalEntries(*tier)
	if err != nil {
		return err
	}
	filtered := entries[:0]
	for _, e := range entries {
		if e.Name == name && e.Version == version {
			continue
		}
		filtered = append(filtered, e)
	}
	if err := writeLocalEntries(*tier, filtered); err != nil {
		return err
	}
	return m.Refresh()
}
