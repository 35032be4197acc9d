package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anvil-build/anvil/internal/config"
	"github.com/anvil-build/anvil/internal/semver"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		ProjectCacheRoot:   filepath.Join(root, "project"),
		UserCacheRoot:      filepath.Join(root, "user"),
		SystemCacheRoot:    filepath.Join(root, "system"),
		TransientCacheRoot: filepath.Join(root, "transient"),
	}
	m, err := New(cfg, nil)
	require.NoError(t, err)
	return m
}

func writeTestPackage(t *testing.T, tierRoot, name, version string) {
	t.Helper()
	dir := filepath.Join(tierRoot, "packages", name+"-"+version, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dub.json"),
		[]byte(`{"name": "`+name+`", "version": "`+version+`"}`), 0o644))
}

func TestSanitizeVersionStripsMarkerAndPlus(t *testing.T) {
	v, err := semver.Parse("1.2.3+build.5")
	require.NoError(t, err)
	require.Equal(t, "1.2.3_build.5", SanitizeVersion(v))

	b := semver.NewBranch("feature")
	require.Equal(t, "feature", SanitizeVersion(b))
}

func TestVersionsEnumeratesAcrossTiers(t *testing.T) {
	m := newTestManager(t)
	writeTestPackage(t, m.tiers[0].Root, "widget", "1.0.0")
	writeTestPackage(t, m.tiers[1].Root, "widget", "2.0.0")
	require.NoError(t, m.Refresh())

	vs := m.Versions("widget")
	require.Len(t, vs, 2)
	require.Equal(t, "2.0.0", vs[0].String())
}

func TestGetBestPackageSelectsHighestMatching(t *testing.T) {
	m := newTestManager(t)
	writeTestPackage(t, m.tiers[0].Root, "widget", "1.0.0")
	writeTestPackage(t, m.tiers[0].Root, "widget", "1.5.0")
	writeTestPackage(t, m.tiers[0].Root, "widget", "2.0.0")
	require.NoError(t, m.Refresh())

	c, err := semver.ParseConstraint(">=1.0.0 <2.0.0")
	require.NoError(t, err)
	p, err := m.GetBestPackage("widget", c)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "1.5.0", p.Recipe.Version)
}

func TestRemoveRefusesProjectTier(t *testing.T) {
	m := newTestManager(t)
	v, err := semver.Parse("1.0.0")
	require.NoError(t, err)
	err = m.Remove(TierProject, "widget", v)
	require.ErrorIs(t, err, ErrLocalTierPackage)
}

func TestRegisterLocalAddsEntry(t *testing.T) {
	m := newTestManager(t)
	localPath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(localPath, "dub.json"),
		[]byte(`{"name": "widget", "version": "9.9.9"}`), 0o644))

	require.NoError(t, m.RegisterLocal(TierUser, "widget", "9.9.9", localPath))
	vs := m.Versions("widget")
	require.Len(t, vs, 1)
	require.Equal(t, "9.9.9", vs[0].String())
}
