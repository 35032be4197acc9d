package buildplan

import (
	"testing"

	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/stretchr/testify/require"
)

func mustPkg(t *testing.T, r *recipe.Recipe) *pkg.Package {
	t.Helper()
	p, err := pkg.FromRecipe(t.TempDir(), r, nil)
	require.NoError(t, err)
	return p
}

func TestComposeConcatenatesDependencySettings(t *testing.T) {
	dep := mustPkg(t, &recipe.Recipe{
		Name: "lib",
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{ImportPaths: []string{"source"}, Libs: []string{"liblib"}}},
		},
	})
	root := mustPkg(t, &recipe.Recipe{
		Name:         "app",
		Dependencies: []recipe.Dependency{{Name: "lib", Constraint: "*"}},
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{ImportPaths: []string{"source"}, TargetType: "executable"}},
		},
	})

	plan, err := Compose(
		map[string]*pkg.Package{"app": root, "lib": dep},
		map[string]string{"app": "library", "lib": "library"},
		recipe.BuildPlatform{},
		"app",
		Options{BuildType: BuildTypePlain},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"lib", "app"}, plan.Order)
	require.Contains(t, plan.Settings.Libs, "liblib")
	require.Len(t, plan.Settings.ImportPaths, 2)
}

func TestComposeExpandsPackageDirVariable(t *testing.T) {
	root := mustPkg(t, &recipe.Recipe{
		Name: "app",
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{
				TargetType:       "executable",
				PostBuildCommands: []string{"echo $PACKAGE_DIR"},
			}},
		},
	})

	plan, err := Compose(
		map[string]*pkg.Package{"app": root},
		map[string]string{"app": "library"},
		recipe.BuildPlatform{},
		"app",
		Options{BuildType: BuildTypePlain},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"echo " + root.Root}, plan.Settings.PostBuildCommands)
}

func TestComposeAppliesBuildTypeOverlayUnlessNoDefaultFlags(t *testing.T) {
	root := mustPkg(t, &recipe.Recipe{
		Name: "app",
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{TargetType: "executable"}},
		},
	})

	plan, err := Compose(
		map[string]*pkg.Package{"app": root},
		map[string]string{"app": "library"},
		recipe.BuildPlatform{},
		"app",
		Options{BuildType: BuildTypeRelease},
	)
	require.NoError(t, err)
	require.Contains(t, plan.Settings.DFlags, "-release")
}

func TestComposeHonorsNoDefaultFlags(t *testing.T) {
	root := mustPkg(t, &recipe.Recipe{
		Name: "app",
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{TargetType: "executable", NoDefaultFlags: true}},
		},
	})

	plan, err := Compose(
		map[string]*pkg.Package{"app": root},
		map[string]string{"app": "library"},
		recipe.BuildPlatform{},
		"app",
		Options{BuildType: BuildTypeRelease},
	)
	require.NoError(t, err)
	require.NotContains(t, plan.Settings.DFlags, "-release")
}

func TestComposeRejectsSourceLibraryRoot(t *testing.T) {
	root := mustPkg(t, &recipe.Recipe{
		Name: "app",
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{TargetType: "source-library"}},
		},
	})

	_, err := Compose(
		map[string]*pkg.Package{"app": root},
		map[string]string{"app": "library"},
		recipe.BuildPlatform{},
		"app",
		Options{},
	)
	require.Error(t, err)
	var tt *TargetTypeInvalid
	require.ErrorAs(t, err, &tt)
}

func TestComposeRejectsMultipleExecutables(t *testing.T) {
	dep := mustPkg(t, &recipe.Recipe{
		Name: "tool",
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{TargetType: "executable"}},
		},
	})
	root := mustPkg(t, &recipe.Recipe{
		Name:         "app",
		Dependencies: []recipe.Dependency{{Name: "tool", Constraint: "*"}},
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{TargetType: "executable"}},
		},
	})

	_, err := Compose(
		map[string]*pkg.Package{"app": root, "tool": dep},
		map[string]string{"app": "library", "tool": "library"},
		recipe.BuildPlatform{},
		"app",
		Options{},
	)
	require.Error(t, err)
	var tt *TargetTypeInvalid
	require.ErrorAs(t, err, &tt)
}

func TestComposeExcludesSourceFiles(t *testing.T) {
	root := mustPkg(t, &recipe.Recipe{
		Name: "app",
		RootSettings: []recipe.SuffixedSettings{
			{Settings: recipe.BuildSettings{
				TargetType:          "executable",
				SourceFiles:         []string{"a.fg", "b.fg"},
				ExcludedSourceFiles: []string{"b.fg"},
			}},
		},
	})

	plan, err := Compose(
		map[string]*pkg.Package{"app": root},
		map[string]string{"app": "library"},
		recipe.BuildPlatform{},
		"app",
		Options{BuildType: BuildTypePlain},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"a.fg"}, plan.Settings.SourceFiles)
}
