// Package coord defines artifact coordinates and the version ordering used
// for reconciliation.
//
// A Coordinate identifies one artifact version in a repository:
// organization, name, version constraint, and an optional classifier and
// type. The (organization, name) pair forms the module key, the unit at
// which version reconciliation happens: a resolved graph holds at most one
// version per module key.
//
// Versions are ordered sequences of numeric and qualifier tokens with a
// total ordering (see [Version.Compare]). Version constraints are either
// exact, soft (preferred), bracketed ranges with inclusive or exclusive
// bounds, or the symbolic "latest"/"release" tokens resolved against a
// repository version listing.
package coord

import (
	"strings"

	"github.com/scala-steward/coursier/pkg/errors"
)

// DefaultType is the artifact type used when a coordinate does not name one.
const DefaultType = "jar"

// ModuleKey is the unit of version reconciliation.
type ModuleKey struct {
	Organization string
	Name         string
}

// String returns "organization:name".
func (k ModuleKey) String() string {
	return k.Organization + ":" + k.Name
}

// Coordinate identifies an artifact version. Immutable once constructed.
type Coordinate struct {
	Organization string
	Name         string
	Version      string // constraint source text, see ParseConstraint
	Classifier   string
	Type         string
}

// Key returns the module key of the coordinate.
func (c Coordinate) Key() ModuleKey {
	return ModuleKey{Organization: c.Organization, Name: c.Name}
}

// String returns the colon-separated form of the coordinate.
// Classifier and type are included only when set.
func (c Coordinate) String() string {
	s := c.Organization + ":" + c.Name + ":" + c.Version
	if c.Classifier != "" || (c.Type != "" && c.Type != DefaultType) {
		s += ":" + c.Classifier
	}
	if c.Type != "" && c.Type != DefaultType {
		s += ":" + c.Type
	}
	return s
}

// WithVersion returns a copy of the coordinate with the version replaced.
func (c Coordinate) WithVersion(version string) Coordinate {
	c.Version = version
	return c
}

// ParseCoordinate parses "org:name:version[:classifier[:type]]".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 5 {
		return Coordinate{}, errors.New(errors.ErrCodeInvalidInput,
			"invalid coordinate %q (expected org:name:version[:classifier[:type]])", s)
	}
	for _, p := range parts[:3] {
		if p == "" {
			return Coordinate{}, errors.New(errors.ErrCodeInvalidInput,
				"invalid coordinate %q: empty segment", s)
		}
	}
	c := Coordinate{
		Organization: parts[0],
		Name:         parts[1],
		Version:      parts[2],
	}
	if len(parts) > 3 {
		c.Classifier = parts[3]
	}
	if len(parts) > 4 {
		c.Type = parts[4]
	}
	return c, nil
}

// IsSnapshot reports whether the version names a snapshot, which marks the
// artifact as changing regardless of the repository flag.
func (c Coordinate) IsSnapshot() bool {
	return strings.HasSuffix(strings.ToUpper(c.Version), "-SNAPSHOT")
}
