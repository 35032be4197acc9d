package configgraph

// prune repeatedly applies spec §4.7 steps 4-5 until every package has
// exactly one surviving vertex:
//
//  1. drop any vertex of a non-root package that some parent package
//     cannot reach at all (every surviving vertex of that parent fails to
//     have an edge to it);
//  2. once a pass finds nothing more to drop, break the first remaining
//     tie by keeping only the earliest-declared surviving configuration of
//     the first package (in discovery order) that still has more than one.
//
// order is the package-name discovery order produced by discover (parents
// before children), used as the "topological order" tie-break heuristic.
func (b *Builder) prune(rootName string, discovered map[string]map[string]bool, edges map[Vertex][]Vertex, order []string) map[string]string {
	for {
		if b.dropUnreachable(rootName, discovered, edges) {
			continue
		}
		if b.breakOneTie(discovered, edges, order) {
			continue
		}
		break
	}

	result := map[string]string{}
	for name, cfgs := range discovered {
		for cfg := range cfgs {
			result[name] = cfg
			break
		}
	}
	return result
}

// dropUnreachable removes every vertex of a non-root package that is not
// reachable from at least one surviving vertex of every package that
// depends on it. Returns whether anything was dropped.
func (b *Builder) dropUnreachable(rootName string, discovered map[string]map[string]bool, edges map[Vertex][]Vertex) bool {
	changed := false

	for name, cfgs := range discovered {
		if name == rootName {
			continue
		}
		parentPkgs := parentPackagesOf(name, discovered, edges)

		for cfg := range cfgs {
			v := Vertex{Package: name, Config: cfg}
			reachableFromAll := true
			for parentPkg := range parentPkgs {
				if !anySurvivingVertexHasEdgeTo(parentPkg, v, discovered, edges) {
					reachableFromAll = false
					break
				}
			}
			if !reachableFromAll {
				delete(cfgs, cfg)
				delete(edges, v)
				changed = true
			}
		}
	}
	return changed
}

// breakOneTie resolves the first package (in order) that still has more
// than one surviving configuration, keeping the first configuration the
// package declares among its survivors. Returns whether a tie was broken.
func (b *Builder) breakOneTie(discovered map[string]map[string]bool, edges map[Vertex][]Vertex, order []string) bool {
	for _, name := range order {
		cfgs := discovered[name]
		if len(cfgs) <= 1 {
			continue
		}
		keep := b.firstDeclaredSurvivor(name, cfgs)
		for cfg := range cfgs {
			if cfg == keep {
				continue
			}
			delete(cfgs, cfg)
			delete(edges, Vertex{Package: name, Config: cfg})
		}
		return true
	}
	return false
}

func (b *Builder) firstDeclaredSurvivor(name string, cfgs map[string]bool) string {
	if p, ok := b.packages[name]; ok {
		for _, c := range p.Recipe.Configurations {
			if cfgs[c.Name] {
				return c.Name
			}
		}
	}
	for cfg := range cfgs {
		return cfg
	}
	return ""
}

// parentPackagesOf returns the set of distinct package names with at least
// one surviving vertex that has an edge into any surviving vertex of
// childName.
func parentPackagesOf(childName string, discovered map[string]map[string]bool, edges map[Vertex][]Vertex) map[string]bool {
	out := map[string]bool{}
	for parentName, parentCfgs := range discovered {
		if parentName == childName {
			continue
		}
		for cfg := range parentCfgs {
			for _, tgt := range edges[Vertex{Package: parentName, Config: cfg}] {
				if tgt.Package == childName {
					out[parentName] = true
				}
			}
		}
	}
	return out
}

func anySurvivingVertexHasEdgeTo(parentPkg string, target Vertex, discovered map[string]map[string]bool, edges map[Vertex][]Vertex) bool {
	for cfg := range discovered[parentPkg] {
		for _, tgt := range edges[Vertex{Package: parentPkg, Config: cfg}] {
			if tgt == target {
				return true
			}
		}
	}
	return false
}
