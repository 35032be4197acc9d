package resolver

import (
	"context"
	"sort"

	"github.com/anvil-build/anvil/internal/semver"
)

// candidateQueue is the per-name ordered list of versions still worth
// trying, plus the failures recorded against versions already tried
// (spec §4.6 "State machine"; grounded on version_queue.go's versionQueue:
// current()/advance()/isExhausted()).
type candidateQueue struct {
	name   string
	vs     []semver.Version
	idx    int
	failed bool
	fails  []error
}

func (q *candidateQueue) current() (semver.Version, bool) {
	if q.idx >= len(q.vs) {
		return semver.Version{}, false
	}
	return q.vs[q.idx], true
}

// advance records fail against the current candidate and moves to the next
// one.
func (q *candidateQueue) advance(fail error) {
	q.fails = append(q.fails, fail)
	q.idx++
	q.failed = true
}

func (q *candidateQueue) exhausted() bool {
	return q.idx >= len(q.vs)
}

// buildCandidateQueue enumerates candidates for name under constraint,
// following spec §4.6 "Candidate enumeration per package".
func (r *Resolver) buildCandidateQueue(ctx context.Context, name string, constraint semver.Constraint) (*candidateQueue, error) {
	if !r.opts.Upgrade && r.sel != nil {
		if pin, err := r.sel.Get(name); err == nil && pin.Path == "" && pin.Repository == "" {
			v, perr := semver.Parse(pin.Version)
			if perr == nil {
				return &candidateQueue{name: name, vs: []semver.Version{v}}, nil
			}
		}
	}

	local := r.cache.Versions(name)

	remote, err := r.reg.ListVersions(ctx, name)
	if err != nil {
		r.log.Diag("listing versions of %s failed: %v", name, err)
		remote = nil
	}

	seen := map[string]bool{}
	var all []semver.Version
	for _, v := range append(append([]semver.Version{}, local...), remote...) {
		key := v.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		all = append(all, v)
	}

	var stable, pre, branch []semver.Version
	for _, v := range all {
		switch {
		case v.IsBranch():
			branch = append(branch, v)
		case v.IsPrerelease():
			pre = append(pre, v)
		default:
			stable = append(stable, v)
		}
	}
	sort.Slice(stable, func(i, j int) bool { return stable[j].Less(stable[i]) })
	sort.Slice(pre, func(i, j int) bool { return pre[j].Less(pre[i]) })

	var ordered []semver.Version
	if r.opts.PreRelease {
		ordered = append(ordered, mergeDescending(stable, pre)...)
	} else {
		ordered = append(append(ordered, stable...), pre...)
	}
	ordered = append(ordered, branch...)

	var filtered []semver.Version
	for _, v := range ordered {
		if constraint.Matches(v) {
			filtered = append(filtered, v)
		}
	}

	return &candidateQueue{name: name, vs: filtered}, nil
}

// mergeDescending merges two already-descending-sorted slices into one
// descending slice.
func mergeDescending(a, b []semver.Version) []semver.Version {
	out := make([]semver.Version, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j].Less(a[i]) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
