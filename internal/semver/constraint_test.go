package semver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParseConstraint(t *testing.T, s string) Constraint {
	t.Helper()
	c, err := ParseConstraint(s)
	require.NoError(t, err, "parsing constraint %q", s)
	return c
}

func TestParseConstraintForms(t *testing.T) {
	cases := map[string]struct {
		matches    []string
		notMatches []string
	}{
		"==1.2.3":       {matches: []string{"1.2.3"}, notMatches: []string{"1.2.4", "1.2.2"}},
		">=1.0.0":       {matches: []string{"1.0.0", "5.0.0"}, notMatches: []string{"0.9.9"}},
		">=1.0.0 <=2.0.0": {matches: []string{"1.0.0", "1.5.0", "2.0.0"}, notMatches: []string{"2.0.1", "0.9.0"}},
		"*":             {matches: []string{"0.0.0", "99.99.99"}},
		"~>1.2.3":       {matches: []string{"1.2.3", "1.2.9", "1.3.0-rc.1"}, notMatches: []string{"1.4.0", "1.2.2"}},
	}

	for expr, tc := range cases {
		c := mustParseConstraint(t, expr)
		require.True(t, c.Valid(), "constraint %q should be valid", expr)
		for _, m := range tc.matches {
			require.True(t, c.Matches(mustParse(t, m)), "%q should match %q", expr, m)
		}
		for _, m := range tc.notMatches {
			require.False(t, c.Matches(mustParse(t, m)), "%q should not match %q", expr, m)
		}
	}
}

func TestParseConstraintBranch(t *testing.T) {
	c := mustParseConstraint(t, "~master")
	require.True(t, c.IsBranch())
	require.True(t, c.Matches(NewBranch("master")))
	require.False(t, c.Matches(NewBranch("develop")))
	require.False(t, c.Matches(mustParse(t, "1.0.0")))
}

func TestMergeIntersection(t *testing.T) {
	a := mustParseConstraint(t, ">=1.0.0 <=2.0.0")
	b := mustParseConstraint(t, ">=1.5.0 <=3.0.0")
	m := a.Merge(b)
	require.True(t, m.Valid())
	require.True(t, m.Matches(mustParse(t, "1.5.0")))
	require.True(t, m.Matches(mustParse(t, "2.0.0")))
	require.False(t, m.Matches(mustParse(t, "1.0.0")))
	require.False(t, m.Matches(mustParse(t, "3.0.0")))
}

func TestMergeDisjointIsInvalid(t *testing.T) {
	a := mustParseConstraint(t, ">=2.0.0")
	b := mustParseConstraint(t, "<=1.0.0")
	m := a.Merge(b)
	require.False(t, m.Valid())
}

func TestMergeSelf(t *testing.T) {
	a := mustParseConstraint(t, ">=1.0.0 <=2.0.0")
	require.Equal(t, a, a.Merge(a))
}

func TestMergeCommutative(t *testing.T) {
	a := mustParseConstraint(t, ">=1.0.0 <=2.0.0")
	b := mustParseConstraint(t, ">=1.5.0 <2.5.0")
	ab := a.Merge(b)
	ba := b.Merge(a)
	require.Equal(t, ab.CmpA, ba.CmpA)
	require.Equal(t, ab.VersA, ba.VersA)
	require.Equal(t, ab.CmpB, ba.CmpB)
	require.Equal(t, ab.VersB, ba.VersB)
}

func TestMergeConflictingBranchesInvalid(t *testing.T) {
	a := mustParseConstraint(t, "~master")
	b := mustParseConstraint(t, "~develop")
	m := a.Merge(b)
	require.False(t, m.Valid())
}

func TestMergeSameBranchValid(t *testing.T) {
	a := mustParseConstraint(t, "~master")
	b := mustParseConstraint(t, "~master")
	m := a.Merge(b)
	require.True(t, m.Valid())
	require.True(t, m.Matches(NewBranch("master")))
}

func TestMergeIntersectionEquivalence(t *testing.T) {
	// merge(c1,c2).matches(v) <=> c1.matches(v) && c2.matches(v), when valid.
	a := mustParseConstraint(t, ">=1.0.0 <=3.0.0")
	b := mustParseConstraint(t, ">=2.0.0 <=4.0.0")
	m := a.Merge(b)
	require.True(t, m.Valid())

	probe := []string{"0.5.0", "1.0.0", "1.5.0", "2.0.0", "2.5.0", "3.0.0", "3.5.0", "4.0.0", "5.0.0"}
	for _, p := range probe {
		v := mustParse(t, p)
		want := a.Matches(v) && b.Matches(v)
		got := m.Matches(v)
		require.Equalf(t, want, got, "mismatch at %s", p)
	}
}

func TestMergePreservesOptionality(t *testing.T) {
	a := mustParseConstraint(t, ">=1.0.0")
	a.Optional = true
	b := mustParseConstraint(t, ">=1.0.0")
	b.Optional = true
	m := a.Merge(b)
	require.True(t, m.Optional)

	b.Optional = false
	m2 := a.Merge(b)
	require.False(t, m2.Optional)
}

func TestEqualityConstraintStoredAsInterval(t *testing.T) {
	c := mustParseConstraint(t, "==1.2.3")
	require.Equal(t, GE, c.CmpA)
	require.Equal(t, LE, c.CmpB)
	require.True(t, c.VersA.Equal(c.VersB))
}
