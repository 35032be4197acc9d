// Package semver implements the version algebra Anvil uses to order and
// constrain package releases: a SemVer-shaped numeric version extended with
// branch pseudo-versions, plus an interval constraint algebra over both.
package semver

import (
	"strings"

	mmsemver "github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// Kind distinguishes the two shapes a Version can take.
type Kind int

const (
	// KindSemVer is a normal major.minor.patch[-pre][+build] version.
	KindSemVer Kind = iota
	// KindBranch is a branch pseudo-version ("~name").
	KindBranch
)

// BranchMarker is the leading character that introduces a branch
// pseudo-version, both in a bare Version string and in a Constraint's
// "~branch" parse form.
const BranchMarker = '~'

// MasterBranch is the distinguished branch value that compares equal only
// to itself; it is unordered with respect to every other branch and with
// respect to every numeric version.
var MasterBranch = Version{kind: KindBranch, branch: "master"}

// MalformedVersionError is returned when a version string cannot be parsed.
type MalformedVersionError struct {
	Input string
	Cause error
}

func (e *MalformedVersionError) Error() string {
	if e.Cause != nil {
		return "malformed version " + strconvQuote(e.Input) + ": " + e.Cause.Error()
	}
	return "malformed version " + strconvQuote(e.Input)
}

func (e *MalformedVersionError) Unwrap() error { return e.Cause }

// IncomparableVersionError is returned whenever two versions are ordered
// (not merely equality-tested) but at least one is a branch pseudo-version
// and they are not the identical branch.
type IncomparableVersionError struct {
	A, B Version
}

func (e *IncomparableVersionError) Error() string {
	return "cannot order " + e.A.String() + " against " + e.B.String()
}

// Version is either a numeric SemVer-shaped release or a branch
// pseudo-version. The zero Version is not valid; always obtain one via
// Parse, NewBranch, or the sentinel Zero/Infinity values.
type Version struct {
	kind     Kind
	sv       *mmsemver.Version
	branch   string
	infinite int // 0 normal, -1 "less than everything", +1 "greater than everything"
}

// Zero is the smallest representable numeric version, 0.0.0.
var Zero = mustNumeric("0.0.0")

// Infinity is a sentinel numeric version greater than every parseable
// numeric version. It is used internally to represent an unbounded upper
// constraint endpoint (">=x" normalizes to ">=x, <=Infinity") and is never
// itself a valid Parse() input.
var Infinity = Version{kind: KindSemVer, infinite: 1}

func mustNumeric(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// NewBranch constructs a branch pseudo-version with the given name. The
// name should not include the leading BranchMarker.
func NewBranch(name string) Version {
	return Version{kind: KindBranch, branch: name}
}

// Parse parses a version string. Numeric versions are validated by the
// five-state automaton described in the version grammar: states 1..3 accept
// numeric segments separated by '.', state 3 may transition to 4 on '-'
// (pre-release) or to 5 on '+' (build metadata); states 4..5 accept
// alphanumeric dot-separated identifiers, and state 4 may transition to 5 on
// '+'. Branch versions require a leading BranchMarker followed by a
// non-empty identifier.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, &MalformedVersionError{Input: s}
	}

	if s[0] == BranchMarker {
		name := s[1:]
		if name == "" {
			return Version{}, &MalformedVersionError{Input: s, Cause: errors.New("branch name is empty")}
		}
		if err := scanBranchName(name); err != nil {
			return Version{}, &MalformedVersionError{Input: s, Cause: err}
		}
		return Version{kind: KindBranch, branch: name}, nil
	}

	if err := scanNumeric(s); err != nil {
		return Version{}, &MalformedVersionError{Input: s, Cause: err}
	}

	sv, err := mmsemver.NewVersion(s)
	if err != nil {
		return Version{}, &MalformedVersionError{Input: s, Cause: err}
	}
	return Version{kind: KindSemVer, sv: sv}, nil
}

// scanNumeric runs the five-state version automaton over s purely for
// validation; the actual numeric value is subsequently parsed by the
// underlying semver library. State numbering follows the version grammar.
func scanNumeric(s string) error {
	const (
		stMajor = iota
		stMinor
		stPatch
		stPre
		stBuild
	)

	i := 0
	n := len(s)
	readSegment := func() (string, error) {
		start := i
		for i < n && isDigit(s[i]) {
			i++
		}
		if i == start {
			return "", errors.New("expected a numeric segment")
		}
		return s[start:i], nil
	}
	readIdent := func() (string, error) {
		start := i
		for i < n && isIdentChar(s[i]) {
			i++
		}
		if i == start {
			return "", errors.New("expected an identifier")
		}
		return s[start:i], nil
	}

	state := stMajor
	if _, err := readSegment(); err != nil {
		return err
	}
	for state < stPre {
		if i >= n {
			return nil
		}
		switch s[i] {
		case '.':
			i++
			if _, err := readSegment(); err != nil {
				return err
			}
			state++
		case '-':
			i++
			state = stPre
		case '+':
			i++
			state = stBuild
		default:
			return errors.Errorf("unexpected character %q at offset %d", s[i], i)
		}
	}

	for state == stPre || state == stBuild {
		if _, err := readIdent(); err != nil {
			return err
		}
		if i >= n {
			return nil
		}
		switch s[i] {
		case '.':
			i++
		case '+':
			if state == stBuild {
				return errors.Errorf("unexpected character %q at offset %d", s[i], i)
			}
			i++
			state = stBuild
		default:
			return errors.Errorf("unexpected character %q at offset %d", s[i], i)
		}
	}
	return nil
}

func scanBranchName(name string) error {
	for i := 0; i < len(name); i++ {
		if !isIdentChar(name[i]) && name[i] != '/' {
			return errors.Errorf("unexpected character %q in branch name", name[i])
		}
	}
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isIdentChar(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '-'
}

// IsBranch reports whether v is a branch pseudo-version.
func (v Version) IsBranch() bool { return v.kind == KindBranch }

// IsZeroValue reports whether v is the Version zero value (never produced
// by Parse/NewBranch; useful for detecting uninitialized fields).
func (v Version) IsZeroValue() bool {
	return v.kind == KindSemVer && v.sv == nil && v.infinite == 0
}

// String renders v back to its canonical textual form.
func (v Version) String() string {
	switch {
	case v.infinite > 0:
		return "infinity"
	case v.infinite < 0:
		return "-infinity"
	case v.kind == KindBranch:
		return string(BranchMarker) + v.branch
	default:
		return v.sv.String()
	}
}

// IsPrerelease reports whether v carries a pre-release component. Branch
// versions and the Infinity/Zero sentinels are never pre-release.
func (v Version) IsPrerelease() bool {
	if v.kind != KindSemVer || v.sv == nil {
		return false
	}
	return v.sv.Prerelease() != ""
}

// BranchName returns the branch name, or "" if v is not a branch version.
func (v Version) BranchName() string {
	if v.kind != KindBranch {
		return ""
	}
	return v.branch
}

// Equal reports whether v and o denote the same version. Unlike Compare,
// Equal never errors: values of incomparable kinds are simply unequal.
func (v Version) Equal(o Version) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindBranch {
		return v.branch == o.branch
	}
	if v.infinite != 0 || o.infinite != 0 {
		return v.infinite == o.infinite
	}
	return v.sv.Equal(o.sv)
}

// Compare orders v against o. Two numeric versions are always comparable.
// Two branch versions are comparable only if they are the same branch (in
// which case the result is always 0); any other combination involving a
// branch version returns IncomparableVersionError, including the
// MasterBranch sentinel compared against anything but itself.
func (v Version) Compare(o Version) (int, error) {
	if v.kind == KindBranch || o.kind == KindBranch {
		if v.kind == o.kind && v.branch == o.branch {
			return 0, nil
		}
		return 0, &IncomparableVersionError{A: v, B: o}
	}

	switch {
	case v.infinite != 0 || o.infinite != 0:
		vi, oi := v.infinite, o.infinite
		if vi == oi {
			return 0, nil
		}
		if vi < oi {
			return -1, nil
		}
		return 1, nil
	default:
		return v.sv.Compare(o.sv), nil
	}
}

// Less reports v < o, treating any IncomparableVersionError as false. Use
// Compare directly when the distinction between "false" and "incomparable"
// matters.
func (v Version) Less(o Version) bool {
	c, err := v.Compare(o)
	return err == nil && c < 0
}

func strconvQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(s)
	b.WriteByte('"')
	return b.String()
}
