package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/pkg/errors"
)

// HTTPSupplier is a registry backed by a remote HTTP package index. Its
// wire format is explicitly out of scope for this spec (§1 Non-goals); the
// shapes below are deliberately minimal, just enough to drive the four
// Supplier operations over plain JSON endpoints.
type HTTPSupplier struct {
	BaseURL    string
	Client     *http.Client
	ArchiveDir string // local directory archives are downloaded into
}

// NewHTTP builds an HTTPSupplier rooted at baseURL, downloading archives
// into archiveDir.
func NewHTTP(baseURL, archiveDir string) *HTTPSupplier {
	return &HTTPSupplier{BaseURL: baseURL, Client: http.DefaultClient, ArchiveDir: archiveDir}
}

func (h *HTTPSupplier) get(ctx context.Context, path string) (*http.Response, error) {
	u, err := url.Parse(h.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing registry base URL")
	}
	u.Path = filepath.Join(u.Path, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "requesting %s", u.String())
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, errors.Errorf("registry returned status %d for %s", resp.StatusCode, u.String())
	}
	return resp, nil
}

func (h *HTTPSupplier) ListVersions(ctx context.Context, name string) ([]semver.Version, error) {
	resp, err := h.get(ctx, "/packages/"+name+"/versions")
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	var raw []string
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decoding version list")
	}

	out := make([]semver.Version, 0, len(raw))
	for _, s := range raw {
		v, err := semver.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *HTTPSupplier) FetchRecipe(ctx context.Context, name string, c semver.Constraint, allowPrerelease bool) (*recipe.Recipe, error) {
	best, err := h.bestVersion(ctx, name, c, allowPrerelease)
	if err != nil {
		return nil, err
	}
	resp, err := h.get(ctx, "/packages/"+name+"/"+best.String()+"/recipe")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return recipe.ParseJSON(b)
}

func (h *HTTPSupplier) FetchArchive(ctx context.Context, name string, c semver.Constraint, allowPrerelease bool) (string, error) {
	best, err := h.bestVersion(ctx, name, c, allowPrerelease)
	if err != nil {
		return "", err
	}
	resp, err := h.get(ctx, "/packages/"+name+"/"+best.String()+"/archive")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(h.ArchiveDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating archive download directory")
	}
	dst := filepath.Join(h.ArchiveDir, name+"-"+best.String()+".zip")
	f, err := os.Create(dst)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", dst)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", errors.Wrapf(err, "writing %s", dst)
	}
	return dst, nil
}

func (h *HTTPSupplier) Search(ctx context.Context, query string) ([]PackageSummary, error) {
	resp, err := h.get(ctx, "/search?q="+url.QueryEscape(query))
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	var results []PackageSummary
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, errors.Wrap(err, "decoding search results")
	}
	return results, nil
}

func (h *HTTPSupplier) bestVersion(ctx context.Context, name string, c semver.Constraint, allowPrerelease bool) (semver.Version, error) {
	versions, err := h.ListVersions(ctx, name)
	if err != nil {
		return semver.Version{}, err
	}
	var best *semver.Version
	for i := range versions {
		v := versions[i]
		if !c.Matches(v) {
			continue
		}
		if !allowPrerelease && isPrerelease(v) {
			continue
		}
		if best == nil || best.Less(v) {
			best = &v
		}
	}
	if best == nil {
		return semver.Version{}, ErrNotFound
	}
	return *best, nil
}

func isPrerelease(v semver.Version) bool {
	// A version carrying pre-release identifiers stringifies with a "-"
	// before any "+" build metadata; branch versions are never prereleases.
	if v.IsBranch() {
		return false
	}
	s := v.String()
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '-':
			return true
		case '+':
			return false
		}
	}
	return false
}
