package cache

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anvil-build/anvil/internal/pathutil"
	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/pkg/errors"
)

// ErrExtractFailed is raised when a zip archive cannot be fully extracted
// into a staging directory.
var ErrExtractFailed = errors.New("failed to extract package archive")

// ErrCacheCorrupt is raised by Remove when a package's store journal is
// missing (spec §7 CacheCorrupt).
var ErrCacheCorrupt = errors.New("package install journal missing")

// StoreFetchedPackage extracts zipPath into tier's cache under (name, ver),
// following the six-step protocol of spec §4.4: lock, stage, find the
// archive's real root, extract, journal, then overwrite the recipe's
// version field and refresh the index.
func (m *Manager) StoreFetchedPackage(tierKind TierKind, name string, ver semver.Version, zipPath string) (*pkg.Package, error) {
	tier := m.tierByKind(tierKind)
	if tier == nil {
		return nil, errors.Errorf("no tier of kind %s configured", tierKind)
	}

	dest := tier.packageDir(name, ver)
	lock := newPackageLock(tier.lockFile(name, ver))
	if err := lock.acquire(); err != nil {
		return nil, err
	}
	defer lock.release()

	if ok, _ := pathutil.IsDir(dest); ok {
		// Another process completed the install first; this is success,
		// not a conflict (spec §4.4 step 1 / §5 concurrency model).
		return pkg.Load(dest)
	}

	staging := dest + ".staging"
	os.RemoveAll(staging)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating staging directory %s", staging)
	}

	created, err := extractZip(zipPath, staging)
	if err != nil {
		os.RemoveAll(staging)
		return nil, errors.Wrap(ErrExtractFailed, err.Error())
	}

	// Journal the files at their final location under dest, where Remove
	// will look for them after the staging directory is renamed.
	installed := make([]string, len(created))
	for i, c := range created {
		rel, _ := filepath.Rel(staging, c)
		installed[i] = filepath.Join(dest, rel)
	}
	if err := writeJournal(tier.journalFile(name, ver), installed); err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		os.RemoveAll(staging)
		return nil, err
	}
	if err := os.Rename(staging, dest); err != nil {
		os.RemoveAll(staging)
		return nil, errors.Wrapf(err, "finalizing %s", dest)
	}

	if err := overwriteRecipeVersion(dest, ver); err != nil {
		m.warnf("could not stamp fetched version onto recipe at %s: %v", dest, err)
	}

	if err := m.Refresh(); err != nil {
		return nil, err
	}
	return pkg.Load(dest)
}

func (m *Manager) tierByKind(k TierKind) *Tier {
	for i := range m.tiers {
		if m.tiers[i].Kind == k {
			return &m.tiers[i]
		}
	}
	return nil
}

// extractZip extracts src into dest, first determining the archive's real
// root (spec §4.4 step 3): the longest path prefix common to every entry,
// or — if that yields nothing containing a recipe file — the prefix of
// whichever entry directory contains one. Paths outside that prefix are
// dropped (they're packaging artifacts, e.g. a VCS-export wrapper
// directory at a different depth than expected).
func extractZip(src, dest string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, errors.Wrapf(err, "opening archive %s", src)
	}
	defer r.Close()

	prefix := commonPrefix(r.File)
	if !archiveHasRecipeUnder(r.File, prefix) {
		if found, ok := findRecipePrefix(r.File); ok {
			prefix = found
		}
	}

	var created []string
	for _, f := range r.File {
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" || strings.HasPrefix(f.Name, "..") {
			continue
		}
		if !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		target := filepath.Join(dest, name)

		if strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		if err := extractOne(f, target); err != nil {
			return nil, err
		}
		created = append(created, target)
	}
	return created, nil
}

func extractOne(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

func commonPrefix(files []*zip.File) string {
	if len(files) == 0 {
		return ""
	}
	parts := strings.Split(files[0].Name, "/")
	for _, f := range files[1:] {
		fp := strings.Split(f.Name, "/")
		parts = commonParts(parts, fp)
		if len(parts) == 0 {
			break
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "/") + "/"
}

func commonParts(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

func archiveHasRecipeUnder(files []*zip.File, prefix string) bool {
	for _, f := range files {
		name := strings.TrimPrefix(f.Name, prefix)
		for _, rn := range recognizedNames() {
			if name == rn {
				return true
			}
		}
	}
	return false
}

func findRecipePrefix(files []*zip.File) (string, bool) {
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		base := name[strings.LastIndex(name, "/")+1:]
		for _, rn := range recognizedNames() {
			if base == rn {
				dir := name[:len(name)-len(base)]
				return dir, true
			}
		}
	}
	return "", false
}

func recognizedNames() []string { return []string{"dub.json", "dub.sdl", "package.json"} }

func writeJournal(path string, entries []string) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return pathutil.WriteAtomic(path, b)
}

func readJournal(path string) ([]string, error) {
	ok, err := pathutil.IsRegular(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrCacheCorrupt, "%s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []string
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// overwriteRecipeVersion rewrites the fetched recipe's version field with
// ver, so the on-disk recipe always reflects the concrete version it was
// fetched as (spec §4.4 step 6), even when the upstream recipe's own
// version field was absent or symbolic.
func overwriteRecipeVersion(packageDir string, ver semver.Version) error {
	path, err := recipe.Find(packageDir)
	if err != nil {
		return err
	}
	if filepath.Ext(path) != ".json" {
		// SDL recipes keep their declared version; rewriting a TOML-shaped
		// document losslessly in place is out of scope for this step.
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]json.RawValue
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	stamped, err := json.Marshal(ver.String())
	if err != nil {
		return err
	}
	raw["version"] = stamped

	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return pathutil.WriteAtomic(path, out)
}
