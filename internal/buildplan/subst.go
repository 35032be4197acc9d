package buildplan

import (
	"os"
	"strings"

	"github.com/anvil-build/anvil/internal/pkg"
	"github.com/anvil-build/anvil/internal/recipe"
)

// substContext carries everything a single package's variable substitution
// needs (spec §4.8 "$NAME / ${NAME} / $$"). dflags/lflags are the *current
// package's own* pre-substitution flag lists, so a command referencing
// $DFLAGS sees the flags declared alongside it rather than the whole
// composition's accumulated total.
type substContext struct {
	self        *pkg.Package
	root        *pkg.Package
	platform    recipe.BuildPlatform
	buildType   BuildType
	packageDirs map[string]string // normalized PKGNAME -> root dir, for every resolved package
	dflags      []string
	lflags      []string
}

var posixPlatforms = map[string]bool{
	"linux": true, "osx": true, "freebsd": true, "openbsd": true,
	"netbsd": true, "dragonflybsd": true, "solaris": true, "posix": true,
}

// expand performs the $NAME / ${NAME} / $$ substitution described in spec
// §4.8 over a single string. Relative paths are left as written: neither
// expand nor Compose anchors them to the owning package's root, so only
// values built from PACKAGE_DIR come out absolute.
func expand(s string, ctx substContext) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' {
			out.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			out.WriteByte(c)
			break
		}
		if s[i+1] == '$' {
			out.WriteByte('$')
			i++
			continue
		}
		if s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				out.WriteString(s[i:])
				break
			}
			name := s[i+2 : i+2+end]
			out.WriteString(resolveVar(name, ctx))
			i += 2 + end
			continue
		}
		j := i + 1
		for j < len(s) && isVarChar(s[j]) {
			j++
		}
		if j == i+1 {
			out.WriteByte('$')
			continue
		}
		out.WriteString(resolveVar(s[i+1:j], ctx))
		i = j - 1
	}
	return out.String()
}

func isVarChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func resolveVar(name string, ctx substContext) string {
	switch name {
	case "PACKAGE_DIR":
		if ctx.self != nil {
			return ctx.self.Root
		}
		return ""
	case "ROOT_PACKAGE_DIR":
		if ctx.root != nil {
			return ctx.root.Root
		}
		return ""
	case "ARCH":
		if len(ctx.platform.Architectures) > 0 {
			return ctx.platform.Architectures[0]
		}
		return ""
	case "PLATFORM":
		if len(ctx.platform.Platforms) > 0 {
			return ctx.platform.Platforms[0]
		}
		return ""
	case "PLATFORM_POSIX":
		for _, p := range ctx.platform.Platforms {
			if posixPlatforms[strings.ToLower(p)] {
				return "posix"
			}
		}
		return ""
	case "BUILD_TYPE":
		if ctx.buildType != "" {
			return string(ctx.buildType)
		}
		return string(DefaultBuildType)
	case "DFLAGS":
		return strings.Join(ctx.dflags, " ")
	case "LFLAGS":
		return strings.Join(ctx.lflags, " ")
	}
	if strings.HasSuffix(name, "_PACKAGE_DIR") {
		want := strings.TrimSuffix(name, "_PACKAGE_DIR")
		if dir, ok := ctx.packageDirs[want]; ok {
			return dir
		}
		return ""
	}
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return ""
}

// packageDirVars builds the normalized-name -> root-dir table used to
// resolve "<PKGNAME>_PACKAGE_DIR" references against any resolved package,
// not just the one currently being expanded.
func packageDirVars(packages map[string]*pkg.Package) map[string]string {
	out := make(map[string]string, len(packages))
	for name, p := range packages {
		out[normalizePackageVar(name)] = p.Root
	}
	return out
}

func normalizePackageVar(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// expandSettings applies expand to every string and string-list field of s.
func expandSettings(s recipe.BuildSettings, ctx substContext) recipe.BuildSettings {
	ctx.dflags, ctx.lflags = s.DFlags, s.LFlags

	expandAll := func(vs []string) []string {
		if vs == nil {
			return nil
		}
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = expand(v, ctx)
		}
		return out
	}

	s.DFlags = expandAll(s.DFlags)
	s.LFlags = expandAll(s.LFlags)
	s.Libs = expandAll(s.Libs)
	s.ImportPaths = expandAll(s.ImportPaths)
	s.StringImportPaths = expandAll(s.StringImportPaths)
	s.Versions = expandAll(s.Versions)
	s.SourceFiles = expandAll(s.SourceFiles)
	s.ExcludedSourceFiles = expandAll(s.ExcludedSourceFiles)
	s.CopyFiles = expandAll(s.CopyFiles)
	s.PreBuildCommands = expandAll(s.PreBuildCommands)
	s.PostBuildCommands = expandAll(s.PostBuildCommands)
	s.MainSourceFile = expand(s.MainSourceFile, ctx)
	s.TargetName = expand(s.TargetName, ctx)
	s.TargetPath = expand(s.TargetPath, ctx)

	if len(s.Environments) > 0 {
		env := make(map[string]string, len(s.Environments))
		for k, v := range s.Environments {
			env[k] = expand(v, ctx)
		}
		s.Environments = env
	}
	return s
}
