package configgraph

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

func TestBuildSinglePackageNoConfigurationsGetsSynthesizedDefault(t *testing.T) {
	root := mustPkg(t, &recipe.Recipe{Name: "app"})
	b := New(map[string]*pkg.Package{"app": root}, recipe.BuildPlatform{}, nil)

	cfgs, err := b.Build("app")
	require.NoError(t, err)
	require.Equal(t, "library", cfgs["app"])
}

func TestBuildPropagatesDefaultConfigurationToDependency(t *testing.T) {
	dep := mustPkg(t, &recipe.Recipe{
		Name: "lib",
		Configurations: []recipe.Configuration{
			{Name: "library"},
			{Name: "unittest"},
		},
	})
	root := mustPkg(t, &recipe.Recipe{
		Name:         "app",
		Dependencies: []recipe.Dependency{{Name: "lib", Constraint: "*"}},
	})

	b := New(map[string]*pkg.Package{"app": root, "lib": dep}, recipe.BuildPlatform{}, nil)
	cfgs, err := b.Build("app")
	require.NoError(t, err)
	require.Equal(t, "library", cfgs["lib"])
}

func TestBuildHonorsSubConfigurationOverride(t *testing.T) {
	dep := mustPkg(t, &recipe.Recipe{
		Name: "lib",
		Configurations: []recipe.Configuration{
			{Name: "library"},
			{Name: "staticlib"},
		},
	})
	root := mustPkg(t, &recipe.Recipe{
		Name:         "app",
		Dependencies: []recipe.Dependency{{Name: "lib", Constraint: "*"}},
		Configurations: []recipe.Configuration{
			{
				Name:              "default",
				SubConfigurations: map[string]string{"lib": "staticlib"},
			},
		},
	})

	b := New(map[string]*pkg.Package{"app": root, "lib": dep}, recipe.BuildPlatform{}, nil)
	cfgs, err := b.Build("app")
	require.NoError(t, err)
	require.Equal(t, "staticlib", cfgs["lib"])
}

func TestBuildConvergesSharedDependencyToOneConfiguration(t *testing.T) {
	shared := mustPkg(t, &recipe.Recipe{
		Name: "shared",
		Configurations: []recipe.Configuration{
			{Name: "library"},
			{Name: "unittest"},
		},
	})
	mid := mustPkg(t, &recipe.Recipe{
		Name:         "mid",
		Dependencies: []recipe.Dependency{{Name: "shared", Constraint: "*"}},
	})
	root := mustPkg(t, &recipe.Recipe{
		Name: "app",
		Dependencies: []recipe.Dependency{
			{Name: "mid", Constraint: "*"},
			{Name: "shared", Constraint: "*"},
		},
	})

	b := New(map[string]*pkg.Package{"app": root, "mid": mid, "shared": shared}, recipe.BuildPlatform{}, nil)
	cfgs, err := b.Build("app")
	require.NoError(t, err)
	require.Equal(t, "library", cfgs["shared"])
}

func TestBuildDetectsCycle(t *testing.T) {
	a := mustPkg(t, &recipe.Recipe{
		Name:         "a",
		Dependencies: []recipe.Dependency{{Name: "b", Constraint: "*"}},
	})
	bpkg := mustPkg(t, &recipe.Recipe{
		Name:         "b",
		Dependencies: []recipe.Dependency{{Name: "a", Constraint: "*"}},
	})

	builder := New(map[string]*pkg.Package{"a": a, "b": bpkg}, recipe.BuildPlatform{}, nil)
	_, err := builder.Build("a")
	require.Error(t, err)

	var cyc *ConfigurationCycle
	require.ErrorAs(t, err, &cyc)
}

func TestBuildFallsBackToAllConfigurationsWhenPlatformMatchesNone(t *testing.T) {
	dep := mustPkg(t, &recipe.Recipe{
		Name: "lib",
		Configurations: []recipe.Configuration{
			{Name: "windows-only", Platforms: []string{"windows"}},
		},
	})
	root := mustPkg(t, &recipe.Recipe{
		Name:         "app",
		Dependencies: []recipe.Dependency{{Name: "lib", Constraint: "*"}},
	})

	platform := recipe.BuildPlatform{Platforms: []string{"linux"}}
	b := New(map[string]*pkg.Package{"app": root, "lib": dep}, platform, nil)
	cfgs, err := b.Build("app")
	require.NoError(t, err)
	require.Equal(t, "windows-only", cfgs["lib"])
}
