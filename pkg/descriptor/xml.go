package descriptor

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strings"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/errors"
)

// ParseXML parses an XML project descriptor. The parser tolerates
// whitespace and comments, and retains unknown top-level elements as
// opaque bodies. Malformed input fails with a PARSE_ERROR carrying the
// byte offset of the failure.
func ParseXML(data []byte) (*Project, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var raw xmlProject
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err,
			"malformed XML descriptor at byte %d", dec.InputOffset())
	}
	return raw.toProject(), nil
}

type xmlProject struct {
	XMLName              xml.Name        `xml:"project"`
	GroupID              string          `xml:"groupId"`
	ArtifactID           string          `xml:"artifactId"`
	Version              string          `xml:"version"`
	Packaging            string          `xml:"packaging"`
	Parent               *xmlParent      `xml:"parent"`
	Dependencies         []xmlDependency `xml:"dependencies>dependency"`
	DependencyManagement []xmlDependency `xml:"dependencyManagement>dependencies>dependency"`
	Properties           xmlProperties   `xml:"properties"`
	Profiles             []xmlProfile    `xml:"profiles>profile"`
	Unknown              []xmlOpaque     `xml:",any"`
}

type xmlParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type xmlDependency struct {
	GroupID    string         `xml:"groupId"`
	ArtifactID string         `xml:"artifactId"`
	Version    string         `xml:"version,omitempty"`
	Classifier string         `xml:"classifier,omitempty"`
	Type       string         `xml:"type,omitempty"`
	Scope      string         `xml:"scope,omitempty"`
	Optional   string         `xml:"optional,omitempty"`
	Exclusions []xmlExclusion `xml:"exclusions>exclusion"`
}

type xmlExclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

type xmlProfile struct {
	ID                   string          `xml:"id"`
	Activation           *xmlActivation  `xml:"activation"`
	Dependencies         []xmlDependency `xml:"dependencies>dependency"`
	DependencyManagement []xmlDependency `xml:"dependencyManagement>dependencies>dependency"`
	Properties           xmlProperties   `xml:"properties"`
}

type xmlActivation struct {
	ActiveByDefault string `xml:"activeByDefault"`
	JDK             string `xml:"jdk"`
	Property        *struct {
		Name  string `xml:"name"`
		Value string `xml:"value"`
	} `xml:"property"`
	File *struct {
		Exists  string `xml:"exists"`
		Missing string `xml:"missing"`
	} `xml:"file"`
	OS *struct {
		Name   string `xml:"name"`
		Family string `xml:"family"`
		Arch   string `xml:"arch"`
	} `xml:"os"`
}

type xmlOpaque struct {
	XMLName xml.Name
	Body    string `xml:",innerxml"`
}

// xmlProperties decodes <properties> into a map of element name to text.
type xmlProperties struct {
	m map[string]string
}

func (p *xmlProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	p.m = make(map[string]string)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			p.m[t.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

func (raw *xmlProject) toProject() *Project {
	p := &Project{
		Packaging:  raw.Packaging,
		Properties: raw.Properties.m,
	}
	if raw.Parent != nil {
		parent := coord.Coordinate{
			Organization: raw.Parent.GroupID,
			Name:         raw.Parent.ArtifactID,
			Version:      raw.Parent.Version,
		}
		p.Parent = &parent
	}

	// groupId and version may be omitted when a parent declares them.
	groupID, version := raw.GroupID, raw.Version
	if raw.Parent != nil {
		if groupID == "" {
			groupID = raw.Parent.GroupID
		}
		if version == "" {
			version = raw.Parent.Version
		}
	}
	p.Coordinate = coord.Coordinate{
		Organization: groupID,
		Name:         raw.ArtifactID,
		Version:      version,
	}
	if p.Packaging == "" {
		p.Packaging = coord.DefaultType
	}

	p.Dependencies = toDependencies(raw.Dependencies)
	p.DependencyManagement = toDependencies(raw.DependencyManagement)

	for _, prof := range raw.Profiles {
		p.Profiles = append(p.Profiles, Profile{
			ID:                   prof.ID,
			Activation:           toActivation(prof.Activation),
			Dependencies:         toDependencies(prof.Dependencies),
			DependencyManagement: toDependencies(prof.DependencyManagement),
			Properties:           prof.Properties.m,
		})
	}

	for _, u := range raw.Unknown {
		p.Unknown = append(p.Unknown, OpaqueElement{Name: u.XMLName.Local, Body: u.Body})
	}
	return p
}

func toDependencies(raw []xmlDependency) []Dependency {
	var deps []Dependency
	for _, d := range raw {
		dep := Dependency{
			Coordinate: coord.Coordinate{
				Organization: d.GroupID,
				Name:         d.ArtifactID,
				Version:      d.Version,
				Classifier:   d.Classifier,
				Type:         d.Type,
			},
			Scope:    Scope(d.Scope),
			Optional: d.Optional == "true",
		}
		for _, e := range d.Exclusions {
			dep.Exclusions = append(dep.Exclusions, Exclusion{
				Organization: e.GroupID,
				Name:         e.ArtifactID,
			})
		}
		deps = append(deps, dep)
	}
	return deps
}

func toActivation(raw *xmlActivation) Activation {
	if raw == nil {
		return Activation{}
	}
	a := Activation{
		ActiveByDefault: raw.ActiveByDefault == "true",
		JDK:             raw.JDK,
	}
	if raw.Property != nil {
		a.Property = raw.Property.Name
		if raw.Property.Value != "" {
			a.Property += "=" + raw.Property.Value
		}
	}
	if raw.File != nil {
		a.FileExists = raw.File.Exists
		a.FileMissing = raw.File.Missing
	}
	if raw.OS != nil {
		a.OS = raw.OS.Name
		if a.OS == "" {
			a.OS = raw.OS.Family
		}
		a.Arch = raw.OS.Arch
	}
	return a
}

// Serialize renders the canonical subset of a project back to XML:
// coordinate, packaging, parent, dependencies with scope and exclusions,
// and properties. Profiles and opaque elements are not serialized.
// parse(Serialize(p)) reproduces that subset.
func Serialize(p *Project) []byte {
	out := xmlProject{
		GroupID:    p.Coordinate.Organization,
		ArtifactID: p.Coordinate.Name,
		Version:    p.Coordinate.Version,
		Packaging:  p.Packaging,
	}
	if p.Parent != nil {
		out.Parent = &xmlParent{
			GroupID:    p.Parent.Organization,
			ArtifactID: p.Parent.Name,
			Version:    p.Parent.Version,
		}
	}
	out.Dependencies = fromDependencies(p.Dependencies)
	out.DependencyManagement = fromDependencies(p.DependencyManagement)
	out.Properties = xmlProperties{m: p.Properties}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	_ = enc.Encode(&out)
	_ = enc.Flush()
	return buf.Bytes()
}

func fromDependencies(deps []Dependency) []xmlDependency {
	var out []xmlDependency
	for _, d := range deps {
		raw := xmlDependency{
			GroupID:    d.Coordinate.Organization,
			ArtifactID: d.Coordinate.Name,
			Version:    d.Coordinate.Version,
			Classifier: d.Coordinate.Classifier,
			Type:       d.Coordinate.Type,
			Scope:      string(d.Scope),
		}
		if d.Optional {
			raw.Optional = "true"
		}
		for _, e := range d.Exclusions {
			raw.Exclusions = append(raw.Exclusions, xmlExclusion{
				GroupID:    e.Organization,
				ArtifactID: e.Name,
			})
		}
		out = append(out, raw)
	}
	return out
}

// MarshalXML renders properties with sorted keys so serialization is
// deterministic.
func (p xmlProperties) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if len(p.m) == 0 {
		return nil
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	keys := make([]string, 0, len(p.m))
	for k := range p.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el := xml.StartElement{Name: xml.Name{Local: k}}
		if err := e.EncodeElement(p.m[k], el); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
