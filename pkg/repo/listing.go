package repo

import (
	"bytes"
	"encoding/xml"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/errors"
)

// Listing is a parsed maven-metadata version listing.
type Listing struct {
	Organization string
	Name         string
	Latest       string
	Release      string
	Versions     []string
}

// ParseListing parses maven-metadata.xml bytes.
func ParseListing(data []byte) (*Listing, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var raw struct {
		XMLName    xml.Name `xml:"metadata"`
		GroupID    string   `xml:"groupId"`
		ArtifactID string   `xml:"artifactId"`
		Versioning struct {
			Latest   string   `xml:"latest"`
			Release  string   `xml:"release"`
			Versions []string `xml:"versions>version"`
		} `xml:"versioning"`
	}
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err,
			"malformed version listing at byte %d", dec.InputOffset())
	}
	return &Listing{
		Organization: raw.GroupID,
		Name:         raw.ArtifactID,
		Latest:       raw.Versioning.Latest,
		Release:      raw.Versioning.Release,
		Versions:     raw.Versioning.Versions,
	}, nil
}

// ParsedVersions returns the listed versions in parsed form.
func (l *Listing) ParsedVersions() []coord.Version {
	out := make([]coord.Version, len(l.Versions))
	for i, v := range l.Versions {
		out[i] = coord.ParseVersion(v)
	}
	return out
}

// Resolve picks the concrete version a constraint selects from the
// listing. Symbolic constraints prefer the explicit latest/release
// entries; everything else selects the highest listed version that
// matches. Fails with NOT_FOUND when nothing matches.
func (l *Listing) Resolve(c coord.Constraint) (string, error) {
	switch c.Kind {
	case coord.KindLatest:
		if l.Latest != "" {
			return l.Latest, nil
		}
	case coord.KindRelease:
		if l.Release != "" {
			return l.Release, nil
		}
	}
	if v, ok := c.Select(l.ParsedVersions()); ok {
		return v.String(), nil
	}
	return "", errors.New(errors.ErrCodeNotFound,
		"no version in listing for %s:%s matches %q", l.Organization, l.Name, c.String())
}
