// Package repo maps coordinates to repository URLs and parses the
// descriptors and version listings a repository serves.
//
// Repositories follow the standard layout
// <org-with-slashes>/<name>/<version>/<name>-<version>.<ext>. Two
// descriptor dialects exist: XML project descriptors (.pom) and the
// tabular format (.props). Repositories are consulted in configured
// priority order; the first that yields a descriptor wins.
package repo

import (
	"strings"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/descriptor"
)

// Dialect selects the descriptor format a repository serves.
type Dialect int

const (
	// DialectXML is the XML project descriptor dialect.
	DialectXML Dialect = iota
	// DialectFlat is the tabular key/value dialect.
	DialectFlat
)

// Extension returns the descriptor file extension for the dialect.
func (d Dialect) Extension() string {
	if d == DialectFlat {
		return "props"
	}
	return "pom"
}

// Repository is a remote artifact repository.
type Repository struct {
	// Base is the repository root URL, without a trailing slash.
	Base string
	// Changing marks a repository whose artifacts may change in place
	// (snapshot repositories); the cache revalidates such URLs by TTL.
	Changing bool
	// Dialect is the descriptor format the repository serves.
	Dialect Dialect
}

// New returns a repository rooted at base serving XML descriptors.
func New(base string) Repository {
	return Repository{Base: strings.TrimRight(base, "/")}
}

// Central is the default public repository.
var Central = New("https://repo.maven.apache.org/maven2")

func orgPath(org string) string {
	return strings.ReplaceAll(org, ".", "/")
}

func (r Repository) versionDir(c coord.Coordinate) string {
	return r.Base + "/" + orgPath(c.Organization) + "/" + c.Name + "/" + c.Version
}

// DescriptorURL returns the URL of the module descriptor for a coordinate
// with a concrete version.
func (r Repository) DescriptorURL(c coord.Coordinate) string {
	return r.versionDir(c) + "/" + c.Name + "-" + c.Version + "." + r.Dialect.Extension()
}

// ArtifactURL returns the URL of the artifact file for a coordinate. The
// classifier, when present, is appended after the version; the type
// defaults to jar.
func (r Repository) ArtifactURL(c coord.Coordinate) string {
	name := c.Name + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	typ := c.Type
	if typ == "" {
		typ = coord.DefaultType
	}
	return r.versionDir(c) + "/" + name + "." + typ
}

// VersionListingURL returns the URL of the maven-metadata listing for a
// module key.
func (r Repository) VersionListingURL(key coord.ModuleKey) string {
	return r.Base + "/" + orgPath(key.Organization) + "/" + key.Name + "/maven-metadata.xml"
}

// Parse parses descriptor bytes according to the repository's dialect.
func (r Repository) Parse(data []byte) (*descriptor.Project, error) {
	if r.Dialect == DialectFlat {
		return descriptor.ParseFlat(data)
	}
	return descriptor.ParseXML(data)
}
