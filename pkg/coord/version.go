package coord

import (
	"strconv"
	"strings"
)

// Version is a parsed version string with a total ordering.
//
// The source string is tokenized on '.', '-', and boundaries between digit
// and non-digit runs. Numeric tokens compare numerically. Qualifier tokens
// compare through a fixed table (alpha < beta < milestone < rc < snapshot <
// ga/final/release < sp); unknown qualifiers sort above every numeric token
// and among themselves lexicographically. Trailing zero segments compare
// equal to their prefix, so "1.0" == "1" and "1.0-ga" == "1".
type Version struct {
	raw    string
	tokens []token
}

type tokenKind int

// Token ranks, ascending. A missing token compares as a numeric zero
// against a numeric token and as rankRelease otherwise, which makes
// "1.0-alpha" < "1.0" < "1.0.1" < "1.0.xyz".
const (
	rankAlpha tokenKind = iota + 1
	rankBeta
	rankMilestone
	rankRC
	rankSnapshot
	rankRelease
	rankSP
	rankNumber
	rankUnknown
)

type token struct {
	kind tokenKind
	num  int64  // valid when kind == rankNumber
	str  string // valid when kind == rankUnknown
}

var qualifierRanks = map[string]tokenKind{
	"alpha":     rankAlpha,
	"beta":      rankBeta,
	"milestone": rankMilestone,
	"rc":        rankRC,
	"cr":        rankRC,
	"snapshot":  rankSnapshot,
	"":          rankRelease,
	"ga":        rankRelease,
	"final":     rankRelease,
	"release":   rankRelease,
	"sp":        rankSP,
}

// Short forms only count when directly attached to a number ("1.0a1").
var shortQualifiers = map[string]tokenKind{
	"a": rankAlpha,
	"b": rankBeta,
	"m": rankMilestone,
}

// ParseVersion parses a version string. Parsing never fails: any input is
// a valid version, possibly made entirely of unknown qualifiers.
func ParseVersion(s string) Version {
	return Version{raw: s, tokens: tokenize(s)}
}

// String returns the original version string.
func (v Version) String() string { return v.raw }

func tokenize(s string) []token {
	var tokens []token
	lower := strings.ToLower(s)

	i := 0
	for i < len(lower) {
		switch c := lower[i]; {
		case c == '.' || c == '-':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(lower) && lower[j] >= '0' && lower[j] <= '9' {
				j++
			}
			n, err := strconv.ParseInt(lower[i:j], 10, 64)
			if err != nil {
				// Overflow: keep the run as an opaque token so ordering
				// stays total.
				tokens = append(tokens, token{kind: rankUnknown, str: lower[i:j]})
			} else {
				tokens = append(tokens, token{kind: rankNumber, num: n})
			}
			i = j
		default:
			j := i
			for j < len(lower) && lower[j] != '.' && lower[j] != '-' && (lower[j] < '0' || lower[j] > '9') {
				j++
			}
			word := lower[i:j]
			attachedToDigit := j < len(lower) && lower[j] >= '0' && lower[j] <= '9'
			tokens = append(tokens, classify(word, attachedToDigit))
			i = j
		}
	}
	return trimTrailingZeros(tokens)
}

func classify(word string, attachedToDigit bool) token {
	if rank, ok := qualifierRanks[word]; ok {
		return token{kind: rank}
	}
	if attachedToDigit {
		if rank, ok := shortQualifiers[word]; ok {
			return token{kind: rank}
		}
	}
	return token{kind: rankUnknown, str: word}
}

// trimTrailingZeros drops trailing tokens that compare equal to absence:
// numeric zeros and release-rank qualifiers.
func trimTrailingZeros(tokens []token) []token {
	n := len(tokens)
	for n > 0 {
		t := tokens[n-1]
		if t.kind == rankRelease || (t.kind == rankNumber && t.num == 0) {
			n--
			continue
		}
		break
	}
	return tokens[:n]
}

// Compare returns -1, 0, or 1 as v orders before, equal to, or after o.
func (v Version) Compare(o Version) int {
	a, b := v.tokens, o.tokens
	for i := 0; i < len(a) || i < len(b); i++ {
		ta := token{kind: rankRelease}
		tb := token{kind: rankRelease}
		if i < len(a) {
			ta = a[i]
		}
		if i < len(b) {
			tb = b[i]
		}
		// Against a numeric token, a missing token stands for zero.
		if i >= len(a) && tb.kind == rankNumber {
			ta = token{kind: rankNumber}
		}
		if i >= len(b) && ta.kind == rankNumber {
			tb = token{kind: rankNumber}
		}
		if c := compareTokens(ta, tb); c != 0 {
			return c
		}
	}
	return 0
}

func compareTokens(a, b token) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case rankNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
	case rankUnknown:
		return strings.Compare(a.str, b.str)
	}
	return 0
}

// Less reports whether v orders strictly before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Equal reports whether v and o are the same version under the ordering,
// which is coarser than string equality ("1.0" equals "1").
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// MaxVersion returns the highest of the given versions. The second return
// is false when the slice is empty.
func MaxVersion(versions []Version) (Version, bool) {
	if len(versions) == 0 {
		return Version{}, false
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if best.Less(v) {
			best = v
		}
	}
	return best, true
}
