package resolver

import "github.com/armon/go-radix"

// nameIndex supports longest-prefix lookup of a resolved pin from a raw
// reference that may carry a sub-package or relative-path suffix tacked
// onto a resolved package's base name (e.g. a build-driver diagnostic
// reporting against "mylib:sub" or "mylib/generated/thing.d"). Grounded on
// solver.go's intersectConstraintsWithImports, which builds the same kind
// of radix tree over declared dependency roots to match externally-reached
// import paths against them by longest prefix.
type nameIndex struct {
	tree *radix.Tree
}

func (r *Resolver) buildNameIndex() *nameIndex {
	t := radix.New()
	for name, n := range r.nodes {
		if n.state == stateAccepted {
			t.Insert(name, n.pin)
		}
	}
	return &nameIndex{tree: t}
}

// lookup returns the resolved pin whose name is the longest prefix of ref,
// guarding against false matches like "mylibextra" being attributed to a
// resolved package named "mylib": the match is only accepted when ref
// equals the package name exactly, or continues immediately with ':' or
// '/'.
func (idx *nameIndex) lookup(ref string) (Pin, bool) {
	k, v, ok := idx.tree.LongestPrefix(ref)
	if !ok {
		return Pin{}, false
	}
	if len(k) != len(ref) && ref[len(k)] != ':' && ref[len(k)] != '/' {
		return Pin{}, false
	}
	return v.(Pin), true
}

// Lookup resolves ref (a bare package name, or one suffixed with ":sub" or
// a relative path) back to its owning resolved Pin. Intended for callers
// building a "why is this here" report over a finished resolution.
func (r *Resolver) Lookup(ref string) (Pin, bool) {
	return r.buildNameIndex().lookup(ref)
}
