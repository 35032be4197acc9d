package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/anvil-build/anvil/internal/cache"
	"github.com/anvil-build/anvil/internal/config"
	"github.com/anvil-build/anvil/internal/diag"
	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/registry"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/stretchr/testify/require"
)

// emptySupplier never has anything to offer; every test here resolves
// purely against packages pre-registered into the cache, the way an
// offline build with a warm cache would.
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
	return nil, nil
}

func newTestCache(t *testing.T) *cache.Manager {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		ProjectCacheRoot:   filepath.Join(root, "project"),
		UserCacheRoot:      filepath.Join(root, "user"),
		SystemCacheRoot:    filepath.Join(root, "system"),
		TransientCacheRoot: filepath.Join(root, "transient"),
	}
	m, err := cache.New(cfg, diag.Default())
	require.NoError(t, err)
	return m
}

func registerLocalPackage(t *testing.T, m *cache.Manager, name, version, deps string) {
	t.Helper()
	dir := t.TempDir()
	body := `{"name": "` + name + `", "version": "` + version + `"`
	if deps != "" {
		body += `, "dependencies": {` + deps + `}`
	}
	body += `}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dub.json"), []byte(body), 0o644))
	require.NoError(t, m.RegisterLocal(cache.TierUser, name, version, dir))
}

func loadRoot(t *testing.T, body string) *pkg.Package {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dub.json"), []byte(body), 0o644))
	p, err := pkg.Load(dir)
	require.NoError(t, err)
	return p
}

func TestResolveSelectsHighestMatchingVersion(t *testing.T) {
	m := newTestCache(t)
	registerLocalPackage(t, m, "foo", "1.0.0", "")
	registerLocalPackage(t, m, "foo", "2.0.0", "")

	root := loadRoot(t, `{"name": "app", "version": "1.0.0", "dependencies": {"foo": ">=1.0.0"}}`)

	r := New(nil, diag.Default(), nil, m, emptySupplier{}, nil, nil, Options{})
	res, err := r.Resolve(context.Background(), root)
	require.NoError(t, err)

	pin, ok := res.Pins["foo"]
	require.True(t, ok)
	require.Equal(t, "2.0.0", pin.Version.String())
}

func TestResolveTransitiveDependency(t *testing.T) {
	m := newTestCache(t)
	registerLocalPackage(t, m, "bar", "1.0.0", "")
	registerLocalPackage(t, m, "foo", "1.0.0", `"bar": ">=1.0.0"`)

	root := loadRoot(t, `{"name": "app", "version": "1.0.0", "dependencies": {"foo": ">=1.0.0"}}`)

	r := New(nil, diag.Default(), nil, m, emptySupplier{}, nil, nil, Options{})
	res, err := r.Resolve(context.Background(), root)
	require.NoError(t, err)

	require.Contains(t, res.Pins, "foo")
	require.Contains(t, res.Pins, "bar")
}

func TestResolveBacktracksOnConflict(t *testing.T) {
	m := newTestCache(t)
	registerLocalPackage(t, m, "foo", "1.0.0", "")
	registerLocalPackage(t, m, "foo", "2.0.0", "")
	registerLocalPackage(t, m, "needsold", "1.0.0", `"foo": "<2.0.0"`)

	root := loadRoot(t, `{"name": "app", "version": "1.0.0", "dependencies": {"foo": ">=1.0.0", "needsold": ">=1.0.0"}}`)

	r := New(nil, diag.Default(), nil, m, emptySupplier{}, nil, nil, Options{})
	res, err := r.Resolve(context.Background(), root)
	require.NoError(t, err)

	pin, ok := res.Pins["foo"]
	require.True(t, ok)
	require.Equal(t, "1.0.0", pin.Version.String(), "should backtrack off 2.0.0 to satisfy needsold's <2.0.0")
}

func TestResolveFailsWhenUnsatisfiable(t *testing.T) {
	m := newTestCache(t)
	registerLocalPackage(t, m, "foo", "1.0.0", "")

	root := loadRoot(t, `{"name": "app", "version": "1.0.0", "dependencies": {"foo": ">=5.0.0"}}`)

	r := New(nil, diag.Default(), nil, m, emptySupplier{}, nil, nil, Options{})
	_, err := r.Resolve(context.Background(), root)
	require.Error(t, err)

	var rf *ResolutionFailed
	require.ErrorAs(t, err, &rf)
	require.Equal(t, "foo", rf.Package)
}

func TestOptionalDependencyDoesNotFailResolution(t *testing.T) {
	m := newTestCache(t)
	root := loadRoot(t, `{"name": "app", "version": "1.0.0", "dependencies": {"missing": {"version": "*", "optional": true}}}`)

	r := New(nil, diag.Default(), nil, m, emptySupplier{}, nil, nil, Options{})
	res, err := r.Resolve(context.Background(), root)
	require.NoError(t, err)
	require.NotContains(t, res.Pins, "missing")
}
