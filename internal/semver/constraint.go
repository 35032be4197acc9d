package semver

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Comparator is one of the five interval-endpoint operators.
type Comparator int

const (
	LT Comparator = iota // <
	LE                   // <=
	EQ                   // ==
	GE                   // >=
	GT                   // >
)

func (c Comparator) String() string {
	switch c {
	case LT:
		return "<"
	case LE:
		return "<="
	case EQ:
		return "=="
	case GE:
		return ">="
	case GT:
		return ">"
	default:
		return "?"
	}
}

func (c Comparator) permitsEqual() bool { return c == LE || c == EQ || c == GE }
func (c Comparator) isLower() bool      { return c == GE || c == GT || c == EQ }
func (c Comparator) isUpper() bool      { return c == LE || c == LT || c == EQ }

// MalformedConstraintError is returned when a constraint string cannot be
// parsed.
type MalformedConstraintError struct {
	Input string
	Cause error
}

func (e *MalformedConstraintError) Error() string {
	if e.Cause != nil {
		return "malformed constraint \"" + e.Input + "\": " + e.Cause.Error()
	}
	return "malformed constraint \"" + e.Input + "\""
}

func (e *MalformedConstraintError) Unwrap() error { return e.Cause }

// Constraint is a dependency spec: an interval [CmpA VersA, CmpB VersB] plus
// a set of orthogonal attributes (path/repository overrides, an optional
// sub-configuration override, and the optional/default flags).
//
// A branch constraint is represented by CmpA == CmpB == EQ and
// VersA == VersB == the branch version; per the invariant in spec §3, a
// branch constraint can never carry a numeric bound.
type Constraint struct {
	CmpA, CmpB   Comparator
	VersA, VersB Version

	Path       string
	Repository string
	SubConfig  string
	Optional   bool
	Default    bool
}

// invalidSentinel is the explicitly-invalid constraint produced by merging
// two disjoint branch constraints (spec §4.1).
var invalidSentinel = Constraint{
	CmpA: GE, VersA: mustNumeric("1.0.0"),
	CmpB: LE, VersB: Zero,
}

// Any is the unbounded constraint ("*"): matches every numeric version.
func Any() Constraint {
	return Constraint{CmpA: GE, VersA: Zero, CmpB: LE, VersB: Infinity}
}

// IsAny reports whether c is (equivalent to) the unbounded constraint.
func IsAny(c Constraint) bool {
	return c.CmpA == GE && c.VersA.Equal(Zero) && c.CmpB == LE && c.VersB.Equal(Infinity) && !c.IsBranch()
}

// IsBranch reports whether c pins a branch pseudo-version.
func (c Constraint) IsBranch() bool {
	return c.VersA.IsBranch()
}

// BranchConstraint builds a constraint equal to the given branch version.
func BranchConstraint(v Version) Constraint {
	return Constraint{CmpA: EQ, VersA: v, CmpB: EQ, VersB: v}
}

// Valid reports whether the constraint's interval is non-empty:
// both endpoints equal (and both comparators permit touching that point),
// or the lower bound is strictly less than the upper bound and each
// comparator is oriented correctly for its own side.
func (c Constraint) Valid() bool {
	if c.IsBranch() {
		// A branch constraint is valid iff it is an equality on a single
		// branch; mixed/incomparable branch endpoints are never valid.
		return c.CmpA == EQ && c.CmpB == EQ && c.VersA.Equal(c.VersB)
	}

	cmp, err := c.VersA.Compare(c.VersB)
	if err != nil {
		return false
	}
	if cmp == 0 {
		return c.CmpA.permitsEqual() && c.CmpB.permitsEqual()
	}
	if cmp > 0 {
		return false
	}
	return c.CmpA.isLower() && c.CmpB.isUpper()
}

// Matches reports whether v satisfies c.
func (c Constraint) Matches(v Version) bool {
	if c.IsBranch() {
		return v.IsBranch() && v.Equal(c.VersA)
	}
	if v.IsBranch() {
		return false
	}

	return satisfies(v, c.CmpA, c.VersA) && satisfies(v, c.CmpB, c.VersB)
}

func satisfies(v Version, cmp Comparator, bound Version) bool {
	c, err := v.Compare(bound)
	if err != nil {
		return false
	}
	switch cmp {
	case LT:
		return c < 0
	case LE:
		return c <= 0
	case EQ:
		return c == 0
	case GE:
		return c >= 0
	case GT:
		return c > 0
	default:
		return false
	}
}

// Merge computes the intersection of c and o, ignoring their path/repository
// attributes (callers needing those are expected to resolve them
// separately, since a merge over differing sources has no principled
// answer). The sub-configuration attribute of c wins if both are non-empty;
// both-optional inputs yield an optional result, otherwise the result is
// mandatory.
func (c Constraint) Merge(o Constraint) Constraint {
	result := Constraint{
		SubConfig: c.SubConfig,
		Optional:  c.Optional && o.Optional,
	}
	if result.SubConfig == "" {
		result.SubConfig = o.SubConfig
	}

	switch {
	case c.IsBranch() && o.IsBranch():
		if c.VersA.Equal(o.VersA) {
			result.CmpA, result.VersA = EQ, c.VersA
			result.CmpB, result.VersB = EQ, c.VersA
			return result
		}
		return mergeInvalid(result)
	case c.IsBranch() || o.IsBranch():
		// A branch constraint cannot be combined with a numeric bound.
		return mergeInvalid(result)
	}

	lowCmp, lowVers := strictestLower(c.CmpA, c.VersA, o.CmpA, o.VersA)
	upCmp, upVers := strictestUpper(c.CmpB, c.VersB, o.CmpB, o.VersB)

	result.CmpA, result.VersA = lowCmp, lowVers
	result.CmpB, result.VersB = upCmp, upVers
	return result
}

func mergeInvalid(base Constraint) Constraint {
	base.CmpA, base.VersA = invalidSentinel.CmpA, invalidSentinel.VersA
	base.CmpB, base.VersB = invalidSentinel.CmpB, invalidSentinel.VersB
	return base
}

// strictestLower picks the higher (stricter) of two lower bounds, and the
// comparator belonging to whichever bound wins; ties prefer the stricter
// (exclusive, GT) comparator.
func strictestLower(cmpA Comparator, versA Version, cmpB Comparator, versB Version) (Comparator, Version) {
	cmp, _ := versA.Compare(versB)
	switch {
	case cmp > 0:
		return cmpA, versA
	case cmp < 0:
		return cmpB, versB
	default:
		if cmpA == GT || cmpB == GT {
			return GT, versA
		}
		return GE, versA
	}
}

// strictestUpper picks the lower (stricter) of two upper bounds, ties
// preferring the exclusive (LT) comparator.
func strictestUpper(cmpA Comparator, versA Version, cmpB Comparator, versB Version) (Comparator, Version) {
	cmp, _ := versA.Compare(versB)
	switch {
	case cmp < 0:
		return cmpA, versA
	case cmp > 0:
		return cmpB, versB
	default:
		if cmpA == LT || cmpB == LT {
			return LT, versA
		}
		return LE, versA
	}
}

// String renders c back to a parseable textual form.
func (c Constraint) String() string {
	if IsAny(c) {
		return "*"
	}
	if c.IsBranch() {
		return string(BranchMarker) + c.VersA.BranchName()
	}
	if c.VersA.Equal(c.VersB) && c.CmpA == GE && c.CmpB == LE {
		return "==" + c.VersA.String()
	}
	var b strings.Builder
	b.WriteString(c.CmpA.String())
	b.WriteString(c.VersA.String())
	b.WriteByte(' ')
	b.WriteString(c.CmpB.String())
	b.WriteString(c.VersB.String())
	return b.String()
}

// ParseConstraint parses a dependency-spec string per the forms documented
// in spec §4.1: "==x", ">=x", ">=a <=b", "~branch", "*", and the
// compatible-range sugar "~>x.y.z".
func ParseConstraint(s string) (Constraint, error) {
	body := strings.TrimSpace(s)
	if body == "*" || body == "" {
		return Any(), nil
	}
	if body[0] == BranchMarker && (len(body) < 2 || body[1] != '>') {
		v, err := Parse(body)
		if err != nil {
			return Constraint{}, &MalformedConstraintError{Input: s, Cause: err}
		}
		return BranchConstraint(v), nil
	}
	if strings.HasPrefix(body, "~>") {
		return parseCompatibleRange(s, body[2:])
	}

	parts := strings.Fields(body)
	switch len(parts) {
	case 1:
		return parseSingleBound(s, parts[0])
	case 2:
		lo, err := parseBound(parts[0])
		if err != nil {
			return Constraint{}, &MalformedConstraintError{Input: s, Cause: err}
		}
		hi, err := parseBound(parts[1])
		if err != nil {
			return Constraint{}, &MalformedConstraintError{Input: s, Cause: err}
		}
		c := mergeBounds(lo, hi)
		if !c.Valid() {
			return Constraint{}, &MalformedConstraintError{Input: s, Cause: errors.New("bounds form an empty interval")}
		}
		return c, nil
	default:
		return Constraint{}, &MalformedConstraintError{Input: s, Cause: errors.Errorf("expected one or two bounds, got %d", len(parts))}
	}
}

type bound struct {
	cmp  Comparator
	vers Version
}

// parseBound parses a single "<cmp><version>" token, defaulting to EQ if no
// comparator prefix is present.
func parseBound(tok string) (bound, error) {
	cmp, rest := splitComparator(tok)
	v, err := Parse(rest)
	if err != nil {
		return bound{}, err
	}
	return bound{cmp: cmp, vers: v}, nil
}

func splitComparator(tok string) (Comparator, string) {
	switch {
	case strings.HasPrefix(tok, "<="):
		return LE, tok[2:]
	case strings.HasPrefix(tok, ">="):
		return GE, tok[2:]
	case strings.HasPrefix(tok, "=="):
		return EQ, tok[2:]
	case strings.HasPrefix(tok, "<"):
		return LT, tok[1:]
	case strings.HasPrefix(tok, ">"):
		return GT, tok[1:]
	default:
		return EQ, tok
	}
}

// parseSingleBound handles the one-token forms: "==x", ">=x", "<=x", "<x",
// ">x" — each rewritten per spec §4.1 into a full interval.
func parseSingleBound(orig, tok string) (Constraint, error) {
	b, err := parseBound(tok)
	if err != nil {
		return Constraint{}, &MalformedConstraintError{Input: orig, Cause: err}
	}

	var c Constraint
	switch b.cmp {
	case EQ:
		c = Constraint{CmpA: GE, VersA: b.vers, CmpB: LE, VersB: b.vers}
	case LE, LT:
		c = Constraint{CmpA: GE, VersA: Zero, CmpB: b.cmp, VersB: b.vers}
	case GE, GT:
		c = Constraint{CmpA: b.cmp, VersA: b.vers, CmpB: LE, VersB: Infinity}
	}
	if !c.Valid() {
		return Constraint{}, &MalformedConstraintError{Input: orig, Cause: errors.New("bound forms an empty interval")}
	}
	return c, nil
}

func mergeBounds(lo, hi bound) Constraint {
	return Constraint{CmpA: lo.cmp, VersA: lo.vers, CmpB: hi.cmp, VersB: hi.vers}
}

// parseCompatibleRange expands "~>x.y.z" into ">=x.y.z <x.(y+1).0".
func parseCompatibleRange(orig, rest string) (Constraint, error) {
	v, err := Parse(rest)
	if err != nil {
		return Constraint{}, &MalformedConstraintError{Input: orig, Cause: err}
	}
	upper, err := Parse(fmt.Sprintf("%d.%d.0", v.sv.Major(), v.sv.Minor()+1))
	if err != nil {
		return Constraint{}, &MalformedConstraintError{Input: orig, Cause: err}
	}
	c := Constraint{CmpA: GE, VersA: v, CmpB: LT, VersB: upper}
	if !c.Valid() {
		return Constraint{}, &MalformedConstraintError{Input: orig, Cause: errors.New("compatible range forms an empty interval")}
	}
	return c, nil
}
