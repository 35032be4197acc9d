// Package config holds the Config object threaded through Anvil's
// constructors (recipe loading, cache, resolver, build-plan composition)
// instead of being read from package-level globals, per the explicit
// redesign away from an ambient *Ctx/GOPATH model.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// Platform identifies a build target by OS/architecture, the way Anvil's
// recipe platform-suffix filter and build-plan overlay key off it.
type Platform struct {
	OS   string
	Arch string
}

// String renders the platform as "os-arch", the suffix form used by recipe
// platform filtering.
func (p Platform) String() string {
	return p.OS + "-" + p.Arch
}

// HostPlatform is the platform Anvil itself is running on, used as the
// default build platform when none is given explicitly.
func HostPlatform() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// Env is a single DFLAGS-style environment override: a key assigned either
// from the process environment or from an explicit command-line binding.
// Build-settings substitution in internal/buildplan does not consult it; it
// reads the process environment directly.
type Env map[string]string

// Config is Anvil's single source of tier roots, host/target platform, and
// environment overrides. It is built once per invocation and passed by
// pointer into every layer that needs it, rather than read off a global.
type Config struct {
	// ProjectRoot is the absolute path to the directory containing the
	// root recipe file.
	ProjectRoot string

	// SystemCacheRoot is the machine-wide package cache tier, typically
	// shared across every project on the host.
	SystemCacheRoot string

	// UserCacheRoot is the per-user package cache tier.
	UserCacheRoot string

	// ProjectCacheRoot is the project-local cache tier, normally a
	// directory inside ProjectRoot.
	ProjectCacheRoot string

	// TransientCacheRoot holds packages materialized for a single build and
	// never promoted to a persistent tier.
	TransientCacheRoot string

	// BuildPlatform is the platform build settings are composed for.
	BuildPlatform Platform

	// HostPlatform is the platform Anvil itself runs on; it may differ from
	// BuildPlatform when cross-compiling.
	HostPlatform Platform

	// Env carries DFLAGS-style variable overrides, read by Lookup. Build
	// settings substitution ($NAME / ${NAME}) does not read them.
	Env Env

	// Verbose enables diagnostic-level logging.
	Verbose bool
}

const (
	envSystemCache = "ANVIL_SYSTEM_CACHE"
	envUserCache   = "ANVIL_USER_CACHE"
	dirName        = ".anvil"
)

// New builds a Config rooted at projectRoot, filling cache tier roots from
// environment overrides when present and from platform-conventional
// defaults otherwise. It mirrors NewContext's spirit (context.go) —
// deriving paths once, eagerly, rather than recomputing them ad hoc — but
// replaces the single GOPATH-relative root it derives with Anvil's
// multi-tier cache layout (spec §4.3).
func New(projectRoot string) (*Config, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, errors.Wrap(err, "resolving project root")
	}

	userCache := os.Getenv(envUserCache)
	if userCache == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "determining user home directory")
		}
		userCache = filepath.Join(home, dirName, "cache")
	}

	systemCache := os.Getenv(envSystemCache)
	if systemCache == "" {
		systemCache = defaultSystemCacheRoot()
	}

	host := HostPlatform()
	return &Config{
		ProjectRoot:        abs,
		SystemCacheRoot:    systemCache,
		UserCacheRoot:      userCache,
		ProjectCacheRoot:   filepath.Join(abs, dirName, "cache"),
		TransientCacheRoot: filepath.Join(os.TempDir(), "anvil-transient"),
		BuildPlatform:      host,
		HostPlatform:       host,
		Env:                Env{},
	}, nil
}

func defaultSystemCacheRoot() string {
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			return filepath.Join(pd, "Anvil", "cache")
		}
		return filepath.Join(`C:\ProgramData`, "Anvil", "cache")
	}
	return filepath.Join("/var", "lib", "anvil", "cache")
}

// CacheTiers returns the cache tier roots in descending precedence order:
// project-local overrides user, user overrides system. The transient root
// is not included; cache.Manager adds it as its own lowest-precedence tier.
func (c *Config) CacheTiers() []string {
	return []string{c.ProjectCacheRoot, c.UserCacheRoot, c.SystemCacheRoot}
}

// Lookup resolves a substitution variable by name against Env, falling back
// to the process environment. Build-settings composition does not call it:
// internal/buildplan resolves variables with os.LookupEnv.
func (c *Config) Lookup(name string) (string, bool) {
	if c.Env != nil {
		if v, ok := c.Env[name]; ok {
			return v, true
		}
	}
	return os.LookupEnv(name)
}

// FindProjectRoot searches upward from dir for a directory containing the
// named root-recipe marker file, the way findProjectRoot (context.go)
// walks up looking for a manifest.
func FindProjectRoot(dir, marker string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, "resolving search directory")
	}

	cur := abs
	for {
		candidate := filepath.Join(cur, marker)
		if _, err := os.Stat(candidate); err == nil {
			return cur, nil
		} else if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "checking for %s", candidate)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", errors.Errorf("no %s found in %q or any parent directory", marker, abs)
		}
		cur = parent
	}
}
