package pkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/stretchr/testify/require"
)

func writeRecipe(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dub.json"), []byte(content), 0o644))
}

func TestLoadDiscoversConventionalSourceDir(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, `{"name": "widget", "version": "1.0.0"}`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "source"), 0o755))

	p, err := Load(dir)
	require.NoError(t, err)

	settings, err := p.GetBuildSettings(recipe.BuildPlatform{}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"source"}, settings.ImportPaths)
}

func TestLoadRespectsExplicitImportPaths(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, `{"name": "widget", "version": "1.0.0", "importPaths": ["lib"]}`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "source"), 0o755))

	p, err := Load(dir)
	require.NoError(t, err)

	settings, err := p.GetBuildSettings(recipe.BuildPlatform{}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"lib"}, settings.ImportPaths)
}

func TestEnsureDefaultConfiguration(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, `{"name": "widget", "version": "1.0.0"}`)

	p, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, p.Recipe.Configurations, 1)
	require.Equal(t, "library", p.Recipe.Configurations[0].Name)
}

func TestBasePackageChain(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, `{"name": "widget", "version": "1.0.0"}`)

	p, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"widget"}, p.BasePackage)
}
