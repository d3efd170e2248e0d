package descriptor

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/errors"
)

// ParseFlat parses the tabular descriptor dialect: a line-oriented
// key/value header followed by explicit sections of dependency rows.
//
//	organization=com.example
//	name=util
//	version=1.2.0
//	packaging=jar
//	parent=com.example:parent:1.0
//	property.scala.version=2.13.12
//
//	[dependencies]
//	org.typelevel:cats-core:2.9.0 compile
//	org.scalatest:scalatest:3.2.0 test optional exclude=junit:*
//
//	[management]
//	com.google.guava:guava:32.1.3
//
// Blank lines and '#' comments are ignored. Dependency rows carry an
// optional scope, an "optional" flag, and repeatable "exclude=org:name"
// fields.
func ParseFlat(data []byte) (*Project, error) {
	p := &Project{Properties: map[string]string{}}

	section := ""
	scanner := bufio.NewScanner(bytes.NewReader(data))
	offset := 0
	for scanner.Scan() {
		raw := scanner.Text()
		lineStart := offset
		offset += len(raw) + 1

		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			switch section {
			case "dependencies", "management":
			default:
				return nil, errors.New(errors.ErrCodeParse,
					"unknown section %q at byte %d", section, lineStart)
			}
			continue
		}

		switch section {
		case "":
			if err := parseFlatHeader(p, line, lineStart); err != nil {
				return nil, err
			}
		case "dependencies", "management":
			dep, err := parseFlatDependency(line, lineStart)
			if err != nil {
				return nil, err
			}
			if section == "dependencies" {
				p.Dependencies = append(p.Dependencies, dep)
			} else {
				p.DependencyManagement = append(p.DependencyManagement, dep)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "reading flat descriptor")
	}

	if p.Coordinate.Organization == "" || p.Coordinate.Name == "" {
		return nil, errors.New(errors.ErrCodeParse,
			"flat descriptor missing organization or name")
	}
	if p.Packaging == "" {
		p.Packaging = coord.DefaultType
	}
	return p, nil
}

func parseFlatHeader(p *Project, line string, offset int) error {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return errors.New(errors.ErrCodeParse,
			"malformed header line %q at byte %d", line, offset)
	}
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)

	switch {
	case key == "organization":
		p.Coordinate.Organization = value
	case key == "name":
		p.Coordinate.Name = value
	case key == "version":
		p.Coordinate.Version = value
	case key == "packaging":
		p.Packaging = value
	case key == "parent":
		parent, err := coord.ParseCoordinate(value)
		if err != nil {
			return errors.Wrap(errors.ErrCodeParse, err,
				"invalid parent %q at byte %d", value, offset)
		}
		p.Parent = &parent
	case strings.HasPrefix(key, "property."):
		p.Properties[strings.TrimPrefix(key, "property.")] = value
	default:
		// Unknown keys are retained, matching the XML dialect's
		// tolerance of unrecognized elements.
		p.Unknown = append(p.Unknown, OpaqueElement{Name: key, Body: value})
	}
	return nil
}

func parseFlatDependency(line string, offset int) (Dependency, error) {
	fields := strings.Fields(line)
	c, err := coord.ParseCoordinate(fields[0])
	if err != nil {
		return Dependency{}, errors.Wrap(errors.ErrCodeParse, err,
			"invalid dependency %q at byte %d", fields[0], offset)
	}

	dep := Dependency{Coordinate: c}
	for _, field := range fields[1:] {
		switch {
		case field == "optional":
			dep.Optional = true
		case strings.HasPrefix(field, "exclude="):
			org, name, ok := strings.Cut(strings.TrimPrefix(field, "exclude="), ":")
			if !ok {
				return Dependency{}, errors.New(errors.ErrCodeParse,
					"invalid exclusion %q at byte %d (expected org:name)", field, offset)
			}
			dep.Exclusions = append(dep.Exclusions, Exclusion{Organization: org, Name: name})
		default:
			switch Scope(field) {
			case ScopeCompile, ScopeRuntime, ScopeTest, ScopeProvided, ScopeSystem, ScopeImport:
				dep.Scope = Scope(field)
			default:
				return Dependency{}, errors.New(errors.ErrCodeParse,
					"unknown dependency field %q at byte %d", field, offset)
			}
		}
	}
	return dep, nil
}
