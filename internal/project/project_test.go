package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/anvil-build/anvil/internal/cache"
	"github.com/anvil-build/anvil/internal/config"
	"github.com/anvil-build/anvil/internal/diag"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/registry"
	"github.com/anvil-build/anvil/internal/resolver"
	"github.com/anvil-build/anvil/internal/selections"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/stretchr/testify/require"
)

type emptySupplier struct{}

func (emptySupplier) ListVersions(context.Context, string) ([]semver.Version, error) {
	return nil, nil
}
func (emptySupplier) FetchRecipe(context.Context, string, semver.Constraint, bool) (*recipe.Recipe, error) {
	return nil, registry.ErrNotFound
}
func (emptySupplier) FetchArchive(context.Context, string, semver.Constraint, bool) (string, error) {
	return "", registry.ErrNotFound
}
func (emptySupplier) Search(context.Context, string) ([]registry.PackageSummary, error) {
	return []registry.PackageSummary{
		{Name: "zzz-unrelated"}, {Name: "widget"}, {Name: "widget-extra"},
	}, nil
}

func newTestProject(t *testing.T, rootBody string) *Project {
	t.Helper()
	projectRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectRoot, "dub.json"), []byte(rootBody), 0o644))

	cacheRoot := t.TempDir()
	cfg := &config.Config{
		ProjectRoot:        projectRoot,
		ProjectCacheRoot:   filepath.Join(cacheRoot, "project"),
		UserCacheRoot:      filepath.Join(cacheRoot, "user"),
		SystemCacheRoot:    filepath.Join(cacheRoot, "system"),
		TransientCacheRoot: filepath.Join(cacheRoot, "transient"),
		BuildPlatform:      config.Platform{OS: "linux", Arch: "x86_64"},
	}

	pr, err := Load(cfg, diag.Default(), nil, emptySupplier{}, registry.NewVCSMaterializer(cfg.TransientCacheRoot))
	require.NoError(t, err)
	return pr
}

func registerLocalPackage(t *testing.T, pr *Project, name, version, deps string) {
	t.Helper()
	dir := t.TempDir()
	body := `{"name": "` + name + `", "version": "` + version + `"`
	if deps != "" {
		body += `, "dependencies": {` + deps + `}`
	}
	body += `}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dub.json"), []byte(body), 0o644))
	require.NoError(t, pr.Cache.RegisterLocal(cache.TierUser, name, version, dir))
}

func TestPlanComposesSettingsAcrossResolvedDependencies(t *testing.T) {
	pr := newTestProject(t, `{"name": "app", "version": "1.0.0", "dependencies": {"lib": ">=1.0.0"},
		"targetType": "executable", "importPaths": ["source"]}`)
	registerLocalPackage(t, pr, "lib", "1.0.0", "")

	plan, err := pr.Plan(context.Background(), BuildOptions{Resolve: resolver.Options{NoSaveSelections: true}})
	require.NoError(t, err)
	require.Equal(t, []string{"lib", "app"}, plan.Order)
}

func TestWhyReportsDependencyChain(t *testing.T) {
	pr := newTestProject(t, `{"name": "app", "version": "1.0.0", "dependencies": {"mid": ">=1.0.0"}}`)
	registerLocalPackage(t, pr, "mid", "1.0.0", `"leaf": ">=1.0.0"`)
	registerLocalPackage(t, pr, "leaf", "1.0.0", "")

	paths, err := pr.Why(context.Background(), "leaf")
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	require.Equal(t, []string{"app", "mid", "leaf"}, paths[0].Chain)
}

func TestWhyFailsForAnAbsentPackage(t *testing.T) {
	pr := newTestProject(t, `{"name": "app", "version": "1.0.0"}`)

	_, err := pr.Why(context.Background(), "nonexistent")
	require.Error(t, err)
}

func TestSearchRanksExactAndPrefixMatchesFirst(t *testing.T) {
	pr := newTestProject(t, `{"name": "app", "version": "1.0.0"}`)

	results, err := pr.Search(context.Background(), "widget")
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "widget", results[0].Name)
	require.Equal(t, "widget-extra", results[1].Name)
	require.Equal(t, "zzz-unrelated", results[2].Name)
}
