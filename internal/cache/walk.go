package cache

import (
	"path/filepath"
	"strings"

	"github.com/anvil-build/anvil/internal/pathutil"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// tierIndex is the in-memory, wholesale-replaced view of one tier's
// packages directory: name -> version -> on-disk path. refresh() rebuilds
// it from scratch rather than patching it incrementally (spec §5: "the
// in-memory index... refresh() replaces it wholesale rather than mutating
// in place").
type tierIndex struct {
	byName map[string]map[string]string // name -> version string -> package dir
}

// scanTier walks a tier's packages directory and builds its index. Each
// immediate child of packages/ is expected to be a "<name>-<version>"
// directory containing exactly one inner "<name>" directory (the package
// root); directories missing a loadable recipe are skipped with a warning
// rather than failing the whole scan, since a half-written store is a
// normal race outcome tolerated by readers (spec §5).
func scanTier(t Tier, warn func(format string, args ...interface{})) (*tierIndex, error) {
	idx := &tierIndex{byName: map[string]map[string]string{}}

	locals, err := readLocalEntries(t)
	if err != nil {
		return nil, err
	}
	for _, e := range locals {
		if idx.byName[e.Name] == nil {
			idx.byName[e.Name] = map[string]string{}
		}
		idx.byName[e.Name][e.Version] = e.Path
	}

	root := t.packagesDir()
	ok, err := dirExists(root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return idx, nil
	}

	err = godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if osPathname == root {
				return nil
			}
			if !de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}
			// Only the immediate children of packages/ name a package
			// version directory; everything below that is the package's
			// own tree and should not be descended into by this walk.
			if strings.Contains(rel, string(filepath.Separator)) {
				return filepath.SkipDir
			}

			name, ver, ok := splitPackageDirName(de.Name())
			if !ok {
				warn("skipping malformed cache directory %q", osPathname)
				return filepath.SkipDir
			}

			inner := filepath.Join(osPathname, name)
			if _, err := recipe.Find(inner); err != nil {
				warn("skipping incomplete package directory %q: %v", osPathname, err)
				return filepath.SkipDir
			}

			if idx.byName[name] == nil {
				idx.byName[name] = map[string]string{}
			}
			idx.byName[name][ver] = inner
			return filepath.SkipDir
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", root)
	}
	return idx, nil
}

// splitPackageDirName splits a "<name>-<sanitized-version>" directory name.
// Since names themselves may contain '-', this takes the last '-'-delimited
// segment that parses as a version as the version part.
func splitPackageDirName(dirName string) (name, version string, ok bool) {
	for i := len(dirName) - 1; i >= 0; i-- {
		if dirName[i] != '-' {
			continue
		}
		candidate := dirName[i+1:]
		if _, err := semver.Parse(candidate); err == nil {
			return dirName[:i], candidate, true
		}
	}
	return "", "", false
}

func dirExists(path string) (bool, error) {
	return pathutil.IsDir(path)
}
