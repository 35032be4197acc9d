package semver

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	require.NoError(t, err, "parsing %q", s)
	return v
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{
		"0.0.0", "1.2.3", "1.2.3-rc.1", "1.2.3-rc.1+build.5", "20.0.5",
		"~master", "~feature/foo",
	} {
		v := mustParse(t, s)
		if v.IsBranch() {
			require.Equal(t, s, v.String())
		} else {
			// Build metadata round-trips; that's the only lossy-looking case
			// covered above and it's faithfully re-emitted by the semver lib.
			require.Equal(t, s, v.String())
		}
	}
}

func TestParseEmptyIsMalformed(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
	var merr *MalformedVersionError
	require.ErrorAs(t, err, &merr)
}

func TestParseMalformed(t *testing.T) {
	for _, s := range []string{"1.2.", "a.b.c", "1.2.3-", "1.2.3+", "~"} {
		_, err := Parse(s)
		require.Errorf(t, err, "expected error parsing %q", s)
	}
}

func TestPrereleaseOrdering(t *testing.T) {
	chain := []string{
		"1.0.0-alpha", "1.0.0-alpha.1", "1.0.0-beta.2", "1.0.0-beta.11",
		"1.0.0-rc.1", "1.0.0",
	}
	for i := 1; i < len(chain); i++ {
		a, b := mustParse(t, chain[i-1]), mustParse(t, chain[i])
		c, err := a.Compare(b)
		require.NoError(t, err)
		require.Truef(t, c < 0, "%s should be < %s", chain[i-1], chain[i])
	}

	chain2 := []string{"2.0.0-rc.2", "2.0.0-rc.3", "2.0.0-rc.10", "2.0.0"}
	for i := 1; i < len(chain2); i++ {
		a, b := mustParse(t, chain2[i-1]), mustParse(t, chain2[i])
		c, err := a.Compare(b)
		require.NoError(t, err)
		require.Truef(t, c < 0, "%s should be < %s", chain2[i-1], chain2[i])
	}
}

func TestBuildMetadataIgnoredForOrderAndEquality(t *testing.T) {
	a := mustParse(t, "2.0.0-rc.2+metadata")
	b := mustParse(t, "2.0.0-rc.2")
	require.True(t, a.Equal(b))
	c, err := a.Compare(b)
	require.NoError(t, err)
	require.Equal(t, 0, c)
}

func TestBranchVsNumericIncomparable(t *testing.T) {
	branch := NewBranch("master")
	num := mustParse(t, "1.0.0")
	_, err := branch.Compare(num)
	require.Error(t, err)
	var ierr *IncomparableVersionError
	require.ErrorAs(t, err, &ierr)

	require.False(t, branch.Equal(num))
}

func TestDifferentBranchesIncomparable(t *testing.T) {
	a, b := NewBranch("master"), NewBranch("develop")
	_, err := a.Compare(b)
	require.Error(t, err)
	require.False(t, a.Equal(b))
}

func TestMasterBranchEqualsItself(t *testing.T) {
	a, b := NewBranch("master"), NewBranch("master")
	c, err := a.Compare(b)
	require.NoError(t, err)
	require.Equal(t, 0, c)
	require.True(t, a.Equal(b))
	require.True(t, MasterBranch.Equal(a))
}

func TestSortStableOrdering(t *testing.T) {
	vs := []Version{
		mustParse(t, "1.2.3"),
		mustParse(t, "1.0.0"),
		mustParse(t, "2.0.0-rc.1"),
		mustParse(t, "2.0.0"),
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
	got := make([]string, len(vs))
	for i, v := range vs {
		got[i] = v.String()
	}
	require.Equal(t, []string{"1.0.0", "1.2.3", "2.0.0-rc.1", "2.0.0"}, got)
}
