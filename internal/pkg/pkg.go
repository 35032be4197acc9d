// Package pkg wraps a loaded recipe together with the filesystem root it
// was loaded from and the values the loader derives when the recipe itself
// is silent about them (conventional source directories, auto-generated
// configurations).
package pkg

import (
	"os"
	"path/filepath"

	"github.com/anvil-build/anvil/internal/recipe"
	"github.com/pkg/errors"
)

// conventionalSourceDirs are probed, in order, when a recipe declares no
// explicit import paths (spec §4.3).
var conventionalSourceDirs = []string{"source", "src", "views"}

// Package is a loaded recipe plus its root directory and any values the
// loader derived rather than read verbatim off the recipe.
type Package struct {
	Root   string
	Recipe *recipe.Recipe

	// BasePackage is the name chain from this package up through the
	// package it is a sub-package of, root-first; for a non-sub-package it
	// is just {Recipe.Name}.
	BasePackage []string
}

// Load reads the recipe at root and fills in defaults the recipe omits.
func Load(root string) (*Package, error) {
	r, err := recipe.LoadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "loading package at %s", root)
	}
	return FromRecipe(root, r, nil)
}

// FromRecipe builds a Package from an already-parsed recipe (used for
// inline sub-packages, which never have their own recipe file). parentChain
// is the base-package chain of the enclosing package, or nil for a
// top-level package.
func FromRecipe(root string, r *recipe.Recipe, parentChain []string) (*Package, error) {
	p := &Package{Root: root, Recipe: r}

	p.BasePackage = append(append([]string{}, parentChain...), r.Name)

	if err := p.discoverSourceDirs(); err != nil {
		return nil, err
	}
	p.ensureDefaultConfiguration()
	return p, nil
}

// discoverSourceDirs fills in import paths from conventional directory
// names when the recipe declares none anywhere (root settings or any
// configuration).
func (p *Package) discoverSourceDirs() error {
	if p.hasAnyImportPaths() {
		return nil
	}
	for _, dir := range conventionalSourceDirs {
		full := filepath.Join(p.Root, dir)
		fi, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "probing conventional source dir %s", full)
		}
		if fi.IsDir() {
			p.Recipe.RootSettings = append(p.Recipe.RootSettings, recipe.SuffixedSettings{
				Settings: recipe.BuildSettings{ImportPaths: []string{dir}},
			})
			return nil
		}
	}
	return nil
}

func (p *Package) hasAnyImportPaths() bool {
	for _, s := range p.Recipe.RootSettings {
		if len(s.Settings.ImportPaths) > 0 {
			return true
		}
	}
	for _, c := range p.Recipe.Configurations {
		for _, s := range c.Settings {
			if len(s.Settings.ImportPaths) > 0 {
				return true
			}
		}
	}
	return false
}

// ensureDefaultConfiguration synthesizes a single unnamed-platform
// "library" configuration when the recipe declares none; no application or
// executable configuration is synthesized, even when a main source file
// exists. This way downstream layers (configuration graph, build composition) never have to
// special-case a configless package.
func (p *Package) ensureDefaultConfiguration() {
	if len(p.Recipe.Configurations) > 0 {
		return
	}
	p.Recipe.Configurations = []recipe.Configuration{{Name: "library"}}
}

// GetBuildSettings returns the merged, platform-filtered settings for
// configName (spec §4.3).
func (p *Package) GetBuildSettings(platform recipe.BuildPlatform, configName string) (recipe.BuildSettings, error) {
	return p.Recipe.GetBuildSettings(platform, configName)
}

// GetSubConfiguration returns configName's override for depName, if any.
func (p *Package) GetSubConfiguration(configName, depName string, platform recipe.BuildPlatform) string {
	return p.Recipe.GetSubConfiguration(configName, depName, platform)
}

// Describe produces the IDE-facing structured snapshot for configName.
func (p *Package) Describe(platform recipe.BuildPlatform, configName string) (recipe.Describe, error) {
	return p.Recipe.Describe(platform, configName)
}

// Dependencies returns the dependencies declared in the recipe's root
// block; configurations carry no dependency lists of their own.
func (p *Package) Dependencies() []recipe.Dependency {
	return p.Recipe.AllDependencies()
}

// SubPackage looks up a nested sub-package by name, loading it (from a
// relative path or an inline recipe) anew on each call.
func (p *Package) SubPackage(name string) (*Package, error) {
	for _, ref := range p.Recipe.SubPackages {
		switch {
		case ref.Inline != nil && ref.Inline.Name == name:
			return FromRecipe(p.Root, ref.Inline, p.BasePackage)
		case ref.Path != "":
			sub, err := Load(filepath.Join(p.Root, ref.Path))
			if err != nil {
				return nil, err
			}
			if sub.Recipe.Name == name {
				sub.BasePackage = append(append([]string{}, p.BasePackage...), name)
				return sub, nil
			}
		}
	}
	return nil, errors.Errorf("sub-package %q not found in %q", name, p.Recipe.Name)
}
