package registry

import (
	"context"
	"testing"

	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/stretchr/testify/require"
)

type fakeSupplier struct {
	versions []string
	recipe   *recipe.Recipe
	err      error
}

func (f *fakeSupplier) ListVersions(ctx context.Context, name string) ([]semver.Version, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []semver.Version
	for _, s := range f.versions {
		v, err := semver.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeSupplier) FetchRecipe(ctx context.Context, name string, c semver.Constraint, allowPrerelease bool) (*recipe.Recipe, error) {
	if f.recipe == nil {
		return nil, ErrNotFound
	}
	return f.recipe, nil
}

func (f *fakeSupplier) FetchArchive(ctx context.Context, name string, c semver.Constraint, allowPrerelease bool) (string, error) {
	return "", ErrNotFound
}

func (f *fakeSupplier) Search(ctx context.Context, query string) ([]PackageSummary, error) {
	return nil, nil
}

func TestFallbackStopsAtFirstNonEmptyVersionList(t *testing.T) {
	empty := &fakeSupplier{}
	withVersions := &fakeSupplier{versions: []string{"1.0.0", "2.0.0"}}
	neverCalled := &fakeSupplier{versions: []string{"9.9.9"}}

	f := NewFallback(empty, withVersions, neverCalled)
	vs, err := f.ListVersions(context.Background(), "widget")
	require.NoError(t, err)
	require.Len(t, vs, 2)
}

func TestFallbackFetchRecipeTriesNext(t *testing.T) {
	r := &recipe.Recipe{Name: "widget"}
	f := NewFallback(&fakeSupplier{}, &fakeSupplier{recipe: r})
	got, err := f.FetchRecipe(context.Background(), "widget", semver.Any(), false)
	require.NoError(t, err)
	require.Equal(t, "widget", got.Name)
}

func TestFallbackAllSuppliersFail(t *testing.T) {
	f := NewFallback(&fakeSupplier{}, &fakeSupplier{})
	_, err := f.FetchRecipe(context.Background(), "widget", semver.Any(), false)
	require.Error(t, err)
}
