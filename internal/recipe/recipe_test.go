package recipe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJSONRootSettings(t *testing.T) {
	src := `{
		"name": "widget",
		"version": "1.0.0",
		"dflags": ["-g"],
		"dflags-linux": ["-fPIC"],
		"dflags-windows": ["-DWIN"],
		"sourceFiles": ["a.d", "b.d"],
		"excludedSourceFiles": ["b.d"],
		"dependencies": {
			"fmtlib": ">=2.0.0",
			"fmtlib:extra": "==2.0.0"
		}
	}`

	r, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	require.Equal(t, "widget", r.Name)
	require.Empty(t, r.UnknownFields)

	linux := BuildPlatform{Platforms: []string{"linux"}, Architectures: []string{"x86_64"}}
	settings, err := r.GetBuildSettings(linux, "")
	require.NoError(t, err)
	require.Equal(t, []string{"-g", "-fPIC"}, settings.DFlags)
	require.Equal(t, []string{"a.d"}, settings.SourceFiles)

	windows := BuildPlatform{Platforms: []string{"windows"}}
	wsettings, err := r.GetBuildSettings(windows, "")
	require.NoError(t, err)
	require.Equal(t, []string{"-g", "-DWIN"}, wsettings.DFlags)

	deps := r.AllDependencies()
	require.Len(t, deps, 2)
}

func TestUnknownFieldRecorded(t *testing.T) {
	src := `{"name": "widget", "totallyMadeUpKey": true}`
	r, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	require.Contains(t, r.UnknownFields, "totallyMadeUpKey")
}

func TestConfigurationSubConfiguration(t *testing.T) {
	src := `{
		"name": "app",
		"configurations": [
			{"name": "static", "subConfigurations": {"lib": "static-variant"}},
			{"name": "shared"}
		]
	}`
	r, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	require.Equal(t, "static-variant", r.GetSubConfiguration("static", "lib", BuildPlatform{}))
	require.Equal(t, "", r.GetSubConfiguration("shared", "lib", BuildPlatform{}))
}

func TestUnknownConfigurationErrors(t *testing.T) {
	r := &Recipe{Name: "x"}
	_, err := r.GetBuildSettings(BuildPlatform{}, "nope")
	require.Error(t, err)
}

func TestParseSDLMatchesJSONShape(t *testing.T) {
	src := `
name = "widget"
version = "1.0.0"
dflags = ["-g"]
`
	r, err := ParseSDL([]byte(src))
	require.NoError(t, err)
	require.Equal(t, "widget", r.Name)
	settings, err := r.GetBuildSettings(BuildPlatform{}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"-g"}, settings.DFlags)
}
