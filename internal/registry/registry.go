// Package registry implements the registry-supplier interface (spec §6):
// listing versions, fetching recipes and archives, and searching, plus the
// fallback-composition and VCS-materialization strategies layered over it.
package registry

import (
	"context"

	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/semver"
)

// PackageSummary is one search-result row.
type PackageSummary struct {
	Name        string
	Version     string
	Description string
}

// ErrNotFound is returned by FetchRecipe when the named package/constraint
// combination does not exist on a supplier.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "package not found" }

// Supplier is the four-operation registry interface the HTTP registry
// backend and the fallback composer implement. The VCS materializer is a
// separate type and does not implement it.
type Supplier interface {
	// ListVersions returns every version a package advertises. An empty
	// result (not an error) means the supplier simply has nothing to offer;
	// callers fall through to the next supplier.
	ListVersions(ctx context.Context, name string) ([]semver.Version, error)

	// FetchRecipe retrieves the recipe for the best version matching
	// constraint, honoring allowPrerelease.
	FetchRecipe(ctx context.Context, name string, constraint semver.Constraint, allowPrerelease bool) (*recipe.Recipe, error)

	// FetchArchive retrieves (or locates a cached copy of) the zip archive
	// for the best version matching constraint, returning a path to it.
	FetchArchive(ctx context.Context, name string, constraint semver.Constraint, allowPrerelease bool) (string, error)

	// Search looks up packages by free-text query.
	Search(ctx context.Context, query string) ([]PackageSummary, error)
}

// FallbackPackageSupplier composes N suppliers, trying each operation
// against them in order and stopping at the first success (spec §6). It is
// the go-to composition the resolver's candidate-enumeration step uses:
// "take the first supplier that returns a non-empty list and stop".
type FallbackPackageSupplier struct {
	Suppliers []Supplier
}

// NewFallback builds a FallbackPackageSupplier over suppliers, in query
// order.
func NewFallback(suppliers ...Supplier) *FallbackPackageSupplier {
	return &FallbackPackageSupplier{Suppliers: suppliers}
}

func (f *FallbackPackageSupplier) ListVersions(ctx context.Context, name string) ([]semver.Version, error) {
	var lastErr error
	for _, s := range f.Suppliers {
		vs, err := s.ListVersions(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}
		if len(vs) > 0 {
			return vs, nil
		}
	}
	return nil, lastErr
}

func (f *FallbackPackageSupplier) FetchRecipe(ctx context.Context, name string, c semver.Constraint, allowPrerelease bool) (*recipe.Recipe, error) {
	var lastErr error
	for _, s := range f.Suppliers {
		r, err := s.FetchRecipe(ctx, name, c, allowPrerelease)
		if err == nil {
			return r, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return nil, lastErr
}

func (f *FallbackPackageSupplier) FetchArchive(ctx context.Context, name string, c semver.Constraint, allowPrerelease bool) (string, error) {
	var lastErr error
	for _, s := range f.Suppliers {
		path, err := s.FetchArchive(ctx, name, c, allowPrerelease)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return "", lastErr
}

func (f *FallbackPackageSupplier) Search(ctx context.Context, query string) ([]PackageSummary, error) {
	var lastErr error
	for _, s := range f.Suppliers {
		res, err := s.Search(ctx, query)
		if err != nil {
			lastErr = err
			continue
		}
		return res, nil
	}
	return nil, lastErr
}
