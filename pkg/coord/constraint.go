package coord

import (
	"strings"

	"github.com/scala-steward/coursier/pkg/errors"
)

// ConstraintKind discriminates the forms a version constraint can take.
type ConstraintKind int

const (
	// KindSoft is a bare version: preferred, but overridable during
	// reconciliation.
	KindSoft ConstraintKind = iota
	// KindExact is a single bracketed version, "[1.0]".
	KindExact
	// KindRange is a union of one or more bracketed intervals.
	KindRange
	// KindLatest resolves against the repository version listing,
	// including snapshots.
	KindLatest
	// KindRelease resolves against the repository version listing,
	// excluding snapshots.
	KindRelease
)

// Interval is a half- or fully-bounded version interval.
// A nil bound means unbounded on that side.
type Interval struct {
	Low, High         *Version
	LowIncl, HighIncl bool
}

// Contains reports whether v falls inside the interval.
func (iv Interval) Contains(v Version) bool {
	if iv.Low != nil {
		c := iv.Low.Compare(v)
		if c > 0 || (c == 0 && !iv.LowIncl) {
			return false
		}
	}
	if iv.High != nil {
		c := v.Compare(*iv.High)
		if c > 0 || (c == 0 && !iv.HighIncl) {
			return false
		}
	}
	return true
}

// Constraint is a parsed version constraint.
type Constraint struct {
	Kind      ConstraintKind
	Preferred Version    // KindSoft, KindExact
	Intervals []Interval // KindRange
	raw       string
}

// String returns the constraint source text.
func (c Constraint) String() string { return c.raw }

// Symbolic reports whether the constraint needs a repository version
// listing to resolve.
func (c Constraint) Symbolic() bool {
	return c.Kind == KindLatest || c.Kind == KindRelease
}

// ParseConstraint parses a version constraint: a bare version (soft), a
// bracketed exact version "[1.0]", interval syntax "[a,b]", "[a,b)",
// "(a,b)", "[a,)", "(,b]", comma-separated unions of intervals, or the
// symbolic tokens "latest" / "latest.integration" / "release" /
// "latest.release".
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "latest", "latest.integration":
		return Constraint{Kind: KindLatest, raw: s}, nil
	case "release", "latest.release", "latest.stable":
		return Constraint{Kind: KindRelease, raw: s}, nil
	}
	if s == "" {
		return Constraint{}, errors.New(errors.ErrCodeInvalidInput, "empty version constraint")
	}
	if s[0] != '[' && s[0] != '(' {
		return Constraint{Kind: KindSoft, Preferred: ParseVersion(s), raw: s}, nil
	}

	intervals, err := parseIntervals(s)
	if err != nil {
		return Constraint{}, err
	}
	if len(intervals) == 1 {
		iv := intervals[0]
		if iv.Low != nil && iv.High != nil && iv.LowIncl && iv.HighIncl && iv.Low.Equal(*iv.High) {
			return Constraint{Kind: KindExact, Preferred: *iv.Low, Intervals: intervals, raw: s}, nil
		}
	}
	return Constraint{Kind: KindRange, Intervals: intervals, raw: s}, nil
}

func parseIntervals(s string) ([]Interval, error) {
	var intervals []Interval
	rest := s
	for rest != "" {
		if rest[0] != '[' && rest[0] != '(' {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid range %q: expected '[' or '(' at %q", s, rest)
		}
		end := strings.IndexAny(rest, "])")
		if end < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid range %q: unterminated interval", s)
		}
		iv, err := parseInterval(rest[:end+1], s)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)

		rest = rest[end+1:]
		rest = strings.TrimPrefix(rest, ",")
		rest = strings.TrimSpace(rest)
	}
	if len(intervals) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid range %q: no intervals", s)
	}
	return intervals, nil
}

func parseInterval(part, whole string) (Interval, error) {
	lowIncl := part[0] == '['
	highIncl := part[len(part)-1] == ']'
	body := part[1 : len(part)-1]

	var iv Interval
	iv.LowIncl = lowIncl
	iv.HighIncl = highIncl

	switch bounds := strings.Split(body, ","); len(bounds) {
	case 1:
		// "[1.0]" exact form.
		if !lowIncl || !highIncl {
			return Interval{}, errors.New(errors.ErrCodeInvalidInput,
				"invalid range %q: single version must use inclusive brackets", whole)
		}
		v := ParseVersion(strings.TrimSpace(bounds[0]))
		iv.Low, iv.High = &v, &v
	case 2:
		if low := strings.TrimSpace(bounds[0]); low != "" {
			v := ParseVersion(low)
			iv.Low = &v
		}
		if high := strings.TrimSpace(bounds[1]); high != "" {
			v := ParseVersion(high)
			iv.High = &v
		}
		if iv.Low == nil && iv.High == nil {
			return Interval{}, errors.New(errors.ErrCodeInvalidInput,
				"invalid range %q: interval must have at least one bound", whole)
		}
	default:
		return Interval{}, errors.New(errors.ErrCodeInvalidInput,
			"invalid range %q: too many bounds in %q", whole, part)
	}
	return iv, nil
}

// Matches reports whether v satisfies the constraint. Soft constraints
// match any version; symbolic constraints match any version and are
// narrowed by Select against a listing.
func (c Constraint) Matches(v Version) bool {
	switch c.Kind {
	case KindSoft, KindLatest, KindRelease:
		return true
	case KindExact:
		return c.Preferred.Equal(v)
	case KindRange:
		for _, iv := range c.Intervals {
			if iv.Contains(v) {
				return true
			}
		}
	}
	return false
}

// Select picks the version the constraint resolves to out of available,
// which is typically the repository version listing. The highest matching
// version wins; KindRelease skips snapshots. The second return is false
// when nothing matches.
func (c Constraint) Select(available []Version) (Version, bool) {
	var candidates []Version
	for _, v := range available {
		if !c.Matches(v) {
			continue
		}
		if c.Kind == KindRelease && strings.HasSuffix(strings.ToUpper(v.String()), "-SNAPSHOT") {
			continue
		}
		candidates = append(candidates, v)
	}
	return MaxVersion(candidates)
}
