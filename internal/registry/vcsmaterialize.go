package registry

import (
	"context"
	"path/filepath"
	"strings"

	vcslib "github.com/Masterminds/vcs"
	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/pkg/errors"
)

// sanitizer turns a repository URL into a filesystem-safe directory name,
// the same approach the source cache in gps uses for on-disk checkout
// paths.
var sanitizer = strings.NewReplacer(
	"://", "-",
	"/", "-",
	":", "-",
	"@", "-",
)

// VCSMaterializer checks out repository-based dependencies at a requested
// revision into a cache directory, then hands back a path-loaded package
// (spec §4.6 "Path and repository dependencies"). It is grounded on
// maybeGitSource, generalized to the three VCS kinds Masterminds/vcs
// supports that matter for package dependencies: git, mercurial, and
// bazaar. There is no svn support: a URL without an "hg+" or "bzr+" prefix
// is opened as a git repository.
type VCSMaterializer struct {
	CacheDir string
}

// NewVCSMaterializer builds a materializer that checks repositories out
// under cacheDir.
func NewVCSMaterializer(cacheDir string) *VCSMaterializer {
	return &VCSMaterializer{CacheDir: cacheDir}
}

// Materialize checks out repoURL at revision (a tag, branch, or bare
// revision string) into the cache directory and loads the package found
// there.
func (m *VCSMaterializer) Materialize(ctx context.Context, repoURL, revision string) (*pkg.Package, error) {
	local := filepath.Join(m.CacheDir, sanitizer.Replace(repoURL))

	repo, err := newRepo(repoURL, local)
	if err != nil {
		return nil, errors.Wrapf(err, "preparing repository %s", repoURL)
	}

	if !repo.CheckLocal() {
		if err := repo.Get(); err != nil {
			return nil, errors.Wrapf(err, "cloning %s", repoURL)
		}
	} else if err := repo.Update(); err != nil {
		return nil, errors.Wrapf(err, "updating %s", repoURL)
	}

	if revision != "" {
		if err := repo.UpdateVersion(revision); err != nil {
			return nil, errors.Wrapf(err, "checking out %s at %s", repoURL, revision)
		}
	}

	return pkg.Load(local)
}

// newRepo constructs the concrete Masterminds/vcs repository for repoURL,
// dispatching on its scheme prefix the way maybeGitSource/maybeBzrSource do,
// generalized to a scheme switch instead of one hardcoded type.
func newRepo(repoURL, local string) (vcslib.Repo, error) {
	switch {
	case strings.HasPrefix(repoURL, "git+") || strings.HasSuffix(repoURL, ".git"):
		return vcslib.NewGitRepo(strings.TrimPrefix(repoURL, "git+"), local)
	case strings.HasPrefix(repoURL, "hg+"):
		return vcslib.NewHgRepo(strings.TrimPrefix(repoURL, "hg+"), local)
	case strings.HasPrefix(repoURL, "bzr+"):
		return vcslib.NewBzrRepo(strings.TrimPrefix(repoURL, "bzr+"), local)
	default:
		return vcslib.NewGitRepo(repoURL, local)
	}
}
