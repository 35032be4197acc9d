package buildplan

import "github.com/anvil-build/anvil/internal/recipe"

// BuildType selects the flag overlay composition applies last (spec
// §4.8 "build-type overlay"), mirroring the named presets a build driver
// would otherwise have to hardcode per invocation.
type BuildType string

const (
	BuildTypePlain        BuildType = "plain"
	BuildTypeDebug        BuildType = "debug"
	BuildTypeRelease      BuildType = "release"
	BuildTypeReleaseDebug BuildType = "release-debug"
	BuildTypeUnittest     BuildType = "unittest"
	BuildTypeProfile      BuildType = "profile"
	BuildTypeCov          BuildType = "cov"
	BuildTypeDocs         BuildType = "docs"
	BuildTypeSyntax       BuildType = "syntax"
)

// DefaultBuildType is used when Options.BuildType is the zero value.
const DefaultBuildType = BuildTypeDebug

var buildTypeOverlays = map[BuildType]recipe.BuildSettings{
	BuildTypePlain:        {},
	BuildTypeDebug:        {DFlags: []string{"-debug", "-g"}},
	BuildTypeRelease:      {DFlags: []string{"-release", "-O"}},
	BuildTypeReleaseDebug: {DFlags: []string{"-release", "-O", "-g"}},
	BuildTypeUnittest:     {DFlags: []string{"-unittest", "-g"}},
	BuildTypeProfile:      {DFlags: []string{"-profile", "-g"}},
	BuildTypeCov:          {DFlags: []string{"-cov"}},
	BuildTypeDocs:         {DFlags: []string{"-D"}},
	BuildTypeSyntax:       {DFlags: []string{"-o-"}},
}

func overlayFor(bt BuildType) recipe.BuildSettings {
	if bt == "" {
		bt = DefaultBuildType
	}
	return buildTypeOverlays[bt]
}
