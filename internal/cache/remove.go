package cache

import (
	"os"
	"path/filepath"

	"github.com/anvil-build/anvil/internal/semver"
	"github.com/pkg/errors"
)

// ErrLocalTierPackage is returned by Remove for a package installed in the
// project-local tier: spec §9 leaves the precise definition of "local
// tier" deliberately ambiguous and directs implementations to refuse
// rather than guess, so Remove always refuses on TierProject.
var ErrLocalTierPackage = errors.New("cannot remove a project-local package installation")

// Remove deletes name@ver from tier, following the journal-driven protocol
// of spec §4.4: only files recorded in the install journal are deleted,
// then empty directories bottom-up, then the .dub/ working subtree, then
// the package root itself if it ends up empty.
func (m *Manager) Remove(tierKind TierKind, name string, ver semver.Version) error {
	if tierKind == TierProject {
		return errors.Wrapf(ErrLocalTierPackage, "%s@%s", name, ver.String())
	}

	tier := m.tierByKind(tierKind)
	if tier == nil {
		return errors.Errorf("no tier of kind %s configured", tierKind)
	}

	lock := newPackageLock(tier.lockFile(name, ver))
	if err := lock.acquire(); err != nil {
		return err
	}
	defer lock.release()

	journalPath := tier.journalFile(name, ver)
	entries, err := readJournal(journalPath)
	if err != nil {
		return err
	}

	for _, f := range entries {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", f)
		}
	}

	packageDir := tier.packageDir(name, ver)
	versionDir := filepath.Dir(packageDir)
	removeEmptyDirsBottomUp(packageDir, tier.packagesDir())

	dubWork := filepath.Join(versionDir, ".dub")
	os.RemoveAll(dubWork)

	removeEmptyDirsBottomUp(versionDir, tier.packagesDir())
	os.Remove(journalPath)
	os.Remove(tier.lockFile(name, ver))

	return m.Refresh()
}

// removeEmptyDirsBottomUp deletes dir and any of its ancestors (down to,
// but not including, stop, the tier's packages root) that are empty after
// dir's removal, walking from the deepest directory upward.
func removeEmptyDirsBottomUp(dir, stop string) {
	for d := dir; d != stop && d != "." && d != string(filepath.Separator); d = filepath.Dir(d) {
		entries, err := os.ReadDir(d)
		if err != nil || len(entries) > 0 {
			return
		}
		os.Remove(d)
	}
}
