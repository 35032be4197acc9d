package recipe

import "strings"

// knownFieldNames lists the base build-setting field names a suffixed key
// may carry; anything else is recorded as an unrecognized field rather than
// guessed at.
var knownFieldNames = map[string]bool{
	"dflags": true, "lflags": true, "libs": true,
	"importPaths": true, "stringImportPaths": true, "versions": true,
	"sourceFiles": true, "excludedSourceFiles": true, "copyFiles": true,
	"preBuildCommands": true, "postBuildCommands": true, "environments": true,
	"mainSourceFile": true, "targetType": true, "targetName": true,
	"targetPath": true,
}

// splitSuffixedKey parses a "<name>[-<suffix>]" build-setting key into its
// base field name and platform suffix (spec §4.2). It scans key left to
// right, trying the prefix before each '-' in turn, and returns the first
// (shortest) prefix matching a known field name; the rest of key, leading
// '-' included, is the suffix (e.g. "dflags-linux-x86_64" gives "dflags"
// and "-linux-x86_64").
func splitSuffixedKey(key string) (name, suffix string) {
	if knownFieldNames[key] {
		return key, ""
	}
	idx := 0
	for {
		dash := strings.Index(key[idx:], "-")
		if dash < 0 {
			return key, ""
		}
		idx += dash
		candidate := key[:idx]
		if knownFieldNames[candidate] {
			return candidate, key[idx:]
		}
		idx++
	}
}
