// Package recipe implements Anvil's package-recipe intermediate
// representation: the surface-agnostic model a recipe file (JSON or SDL
// dialect) is parsed into, plus the platform-suffix build-settings matching
// and merge algebra described for the recipe model.
package recipe

import (
	"strings"

	"github.com/pkg/errors"
)

// Dependency is one entry of a dependency block: a bare package name, or
// "parent:sub" for a sub-package reference, with its constraint expression
// and the path/repository/optional/default attributes carried alongside it.
type Dependency struct {
	Name       string
	SubPackage string // "" unless this is "parent:sub"
	Constraint string // raw constraint expression, parsed by internal/semver
	Path       string
	Repository string
	Optional   bool
	Default    bool
}

// FullName renders the dependency target the way diagnostics and the
// resolver's graph display it.
func (d Dependency) FullName() string {
	if d.SubPackage == "" {
		return d.Name
	}
	return d.Name + ":" + d.SubPackage
}

// BuildSettings is the flat, already platform-merged settings bag produced
// by getBuildSettings. Every string-list field is additive across merges;
// order of accumulation follows declaration order across matching suffixes.
type BuildSettings struct {
	DFlags              []string
	LFlags              []string
	Libs                []string
	ImportPaths         []string
	StringImportPaths   []string
	Versions            []string
	SourceFiles         []string
	ExcludedSourceFiles []string
	CopyFiles           []string
	PreBuildCommands    []string
	PostBuildCommands   []string
	Environments        map[string]string
	MainSourceFile      string
	TargetType          string
	TargetName          string
	TargetPath          string
	NoDefaultFlags       bool
}

// Merge concatenates the additive fields of o onto s, and lets o's scalar
// fields (MainSourceFile, TargetType, ...) override s's when non-empty. It
// is exported for use by composition over a whole resolved package set, in
// addition to being the per-suffix accumulation step of getBuildSettings.
func (s BuildSettings) Merge(o BuildSettings) BuildSettings {
	return s.merge(o)
}

func (s BuildSettings) merge(o BuildSettings) BuildSettings {
	out := s
	out.DFlags = append(append([]string{}, s.DFlags...), o.DFlags...)
	out.LFlags = append(append([]string{}, s.LFlags...), o.LFlags...)
	out.Libs = append(append([]string{}, s.Libs...), o.Libs...)
	out.ImportPaths = append(append([]string{}, s.ImportPaths...), o.ImportPaths...)
	out.StringImportPaths = append(append([]string{}, s.StringImportPaths...), o.StringImportPaths...)
	out.Versions = append(append([]string{}, s.Versions...), o.Versions...)
	out.SourceFiles = append(append([]string{}, s.SourceFiles...), o.SourceFiles...)
	out.ExcludedSourceFiles = append(append([]string{}, s.ExcludedSourceFiles...), o.ExcludedSourceFiles...)
	out.CopyFiles = append(append([]string{}, s.CopyFiles...), o.CopyFiles...)
	out.PreBuildCommands = append(append([]string{}, s.PreBuildCommands...), o.PreBuildCommands...)
	out.PostBuildCommands = append(append([]string{}, s.PostBuildCommands...), o.PostBuildCommands...)

	out.Environments = map[string]string{}
	for k, v := range s.Environments {
		out.Environments[k] = v
	}
	for k, v := range o.Environments {
		out.Environments[k] = v
	}

	if o.MainSourceFile != "" {
		out.MainSourceFile = o.MainSourceFile
	}
	if o.TargetType != "" {
		out.TargetType = o.TargetType
	}
	if o.TargetName != "" {
		out.TargetName = o.TargetName
	}
	if o.TargetPath != "" {
		out.TargetPath = o.TargetPath
	}
	if o.NoDefaultFlags {
		out.NoDefaultFlags = true
	}
	return out
}

// applyExclusions set-subtracts ExcludedSourceFiles from SourceFiles, the
// final step of build composition (spec §4.8).
func (s BuildSettings) applyExclusions() BuildSettings {
	if len(s.ExcludedSourceFiles) == 0 {
		return s
	}
	excluded := make(map[string]bool, len(s.ExcludedSourceFiles))
	for _, f := range s.ExcludedSourceFiles {
		excluded[f] = true
	}
	kept := make([]string, 0, len(s.SourceFiles))
	for _, f := range s.SourceFiles {
		if !excluded[f] {
			kept = append(kept, f)
		}
	}
	s.SourceFiles = kept
	return s
}

// SuffixedSettings is one "<name>[-<suffix>]" key of a recipe's raw settings
// block, already split into its field name and platform suffix.
type SuffixedSettings struct {
	Suffix   string // "" for the unsuffixed (always-matching) entry
	Settings BuildSettings
}

// Configuration is a named build-setting profile (spec glossary:
// Configuration), filtered per platform from its own suffixed settings plus
// an optional sub-configuration map applied to specific dependencies.
type Configuration struct {
	Name             string
	Platforms        []string // non-empty restricts this config to matching platforms
	Settings         []SuffixedSettings
	SubConfigurations map[string]string // depName -> configName override
}

// SubPackageRef is either a path to a nested recipe, or an inline recipe
// embedded directly in the parent (the spec's "inline or by relative path"
// sub-package form).
type SubPackageRef struct {
	Path   string
	Inline *Recipe
}

// Recipe is the surface-agnostic parse result of a package's recipe file,
// shared identically by the JSON and SDL dialects (spec §4.2: "IR is
// surface-agnostic").
type Recipe struct {
	Name        string
	Version     string
	Description string
	Authors     []string
	License     string
	Homepage    string

	RootSettings   []SuffixedSettings
	Dependencies   []Dependency
	Configurations []Configuration
	SubPackages    []SubPackageRef

	UnknownFields []string // field names not recognized by this parser
}

// BuildPlatform is the descriptor a platform-suffixed build-setting key or
// Configuration.Platforms entry is matched against (spec §6).
type BuildPlatform struct {
	Platforms     []string
	Architectures []string
	Compiler      string
}

// candidateSuffixes returns every platform-suffix string that should be
// considered a match for p, generated as all non-empty subsequences of
// "[-os][-arch][-compiler]" in that fixed order, per spec §4.2.
func (p BuildPlatform) candidateSuffixes() map[string]bool {
	out := map[string]bool{"": true}
	components := [][]string{p.Platforms, p.Architectures, stringOrEmpty(p.Compiler)}

	var build func(idx int, acc string, started bool)
	build = func(idx int, acc string, started bool) {
		if idx == len(components) {
			if started {
				out[acc] = true
			}
			return
		}
		// Skip this component.
		build(idx+1, acc, started)
		// Include one of this component's values.
		for _, v := range components[idx] {
			if v == "" {
				continue
			}
			build(idx+1, acc+"-"+v, true)
		}
	}
	build(0, "", false)
	return out
}

func stringOrEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// matchesSuffix reports whether suffix is one of p's candidate suffixes.
func (p BuildPlatform) matchesSuffix(suffix string) bool {
	return p.candidateSuffixes()[suffix]
}

// platformMatches reports whether a Configuration restricted to the given
// platform name list applies to p. An empty list always matches.
func platformMatches(names []string, p BuildPlatform) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		for _, have := range p.Platforms {
			if strings.EqualFold(n, have) {
				return true
			}
		}
	}
	return false
}

// mergedSettings additively merges every SuffixedSettings entry whose
// suffix matches p, in the order of entries (the parsers emit them sorted
// by suffix, unsuffixed first), then applies source-file exclusions last.
func mergedSettings(entries []SuffixedSettings, p BuildPlatform) BuildSettings {
	var acc BuildSettings
	candidates := p.candidateSuffixes()
	for _, e := range entries {
		if candidates[e.Suffix] {
			acc = acc.merge(e.Settings)
		}
	}
	return acc.applyExclusions()
}

// ErrUnknownConfiguration is returned by GetBuildSettings when asked for a
// configuration name the recipe does not declare.
var ErrUnknownConfiguration = errors.New("unknown configuration")

// GetBuildSettings merges the recipe's root settings with the named
// configuration's settings, both filtered for platform p (spec §4.3
// getBuildSettings). An empty configName merges root settings alone.
func (r *Recipe) GetBuildSettings(p BuildPlatform, configName string) (BuildSettings, error) {
	merged := mergedSettings(r.RootSettings, p)
	if configName == "" {
		return merged, nil
	}
	cfg := r.findConfiguration(configName)
	if cfg == nil {
		return BuildSettings{}, errors.Wrapf(ErrUnknownConfiguration, "%q in package %q", configName, r.Name)
	}
	cfgSettings := mergedSettings(cfg.Settings, p)
	return merged.merge(cfgSettings).applyExclusions(), nil
}

func (r *Recipe) findConfiguration(name string) *Configuration {
	for i := range r.Configurations {
		if r.Configurations[i].Name == name {
			return &r.Configurations[i]
		}
	}
	return nil
}

// GetSubConfiguration returns the sub-configuration override that configName
// declares for dependency depName, or "" if none is declared.
func (r *Recipe) GetSubConfiguration(configName, depName string, p BuildPlatform) string {
	cfg := r.findConfiguration(configName)
	if cfg == nil || cfg.SubConfigurations == nil {
		return ""
	}
	return cfg.SubConfigurations[depName]
}

// MatchedConfigurations returns the names of every configuration applicable
// to p, in declaration order, or all configurations if platform filtering
// leaves none (recipes with only platform-specific configs should not end
// up configless on an unlisted platform).
func (r *Recipe) MatchedConfigurations(p BuildPlatform) []string {
	var names []string
	for _, c := range r.Configurations {
		if platformMatches(c.Platforms, p) {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 {
		for _, c := range r.Configurations {
			names = append(names, c.Name)
		}
	}
	return names
}

// AllDependencies returns the dependencies declared on the recipe's root
// block, in first-declaration order; a later entry for the same full name
// overwrites an earlier one. Configurations carry no dependency blocks, so
// nothing is collected from them.
func (r *Recipe) AllDependencies() []Dependency {
	byName := map[string]Dependency{}
	order := []string{}
	apply := func(deps []Dependency) {
		for _, d := range deps {
			key := d.FullName()
			if _, seen := byName[key]; !seen {
				order = append(order, key)
			}
			byName[key] = d
		}
	}
	apply(r.Dependencies)

	var all []Dependency
	for _, key := range order {
		all = append(all, byName[key])
	}

	// Configurations add no dependencies of their own.
	for _, cfg := range r.Configurations {
		_ = cfg // configuration dependency blocks are represented via the
		// same Dependencies slice on Recipe in this IR; sub-configurations
		// only override which config a dependency resolves to, not which
		// dependencies exist, so there is nothing further to union here.
	}
	return all
}

// Describe produces a read-only structured snapshot suitable for IDE
// consumption (spec §4.3 describe()).
type Describe struct {
	Name           string
	Version        string
	TargetType     string
	ImportPaths    []string
	SourceFiles    []string
	Dependencies   []string
	Configurations []string
}

// Describe builds the Describe snapshot for configName on platform p.
func (r *Recipe) Describe(p BuildPlatform, configName string) (Describe, error) {
	settings, err := r.GetBuildSettings(p, configName)
	if err != nil {
		return Describe{}, err
	}
	deps := make([]string, 0, len(r.Dependencies))
	for _, d := range r.AllDependencies() {
		deps = append(deps, d.FullName())
	}
	return Describe{
		Name:           r.Name,
		Version:        r.Version,
		TargetType:     settings.TargetType,
		ImportPaths:    settings.ImportPaths,
		SourceFiles:    settings.SourceFiles,
		Dependencies:   deps,
		Configurations: r.MatchedConfigurations(p),
	}, nil
}
