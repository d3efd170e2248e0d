package descriptor

import (
	"os"
	"strings"

	"github.com/scala-steward/coursier/pkg/errors"
)

// Substitute expands ${name} property references throughout a project and
// returns the expanded copy. It must run after parent inheritance and
// profile activation so that inherited and profile-provided properties are
// visible.
//
// Lookup order: built-in project.* properties, the project's own property
// map, the extra map (system properties), then env.* environment
// variables. Expansion is recursive; a reference cycle fails with
// PROPERTY_CYCLE. Unresolvable references are left verbatim, matching the
// tolerant behavior of repository descriptors in the wild.
func Substitute(p *Project, extra map[string]string) (*Project, error) {
	out := p.Clone()
	sub := &substituter{project: p, extra: extra}

	var err error
	expand := func(s string) string {
		if err != nil {
			return s
		}
		var v string
		if v, err = sub.expand(s, nil); err == nil {
			return v
		}
		return s
	}

	out.Coordinate.Organization = expand(out.Coordinate.Organization)
	out.Coordinate.Name = expand(out.Coordinate.Name)
	out.Coordinate.Version = expand(out.Coordinate.Version)
	out.Packaging = expand(out.Packaging)

	expandDeps := func(deps []Dependency) {
		for i := range deps {
			deps[i].Coordinate.Organization = expand(deps[i].Coordinate.Organization)
			deps[i].Coordinate.Name = expand(deps[i].Coordinate.Name)
			deps[i].Coordinate.Version = expand(deps[i].Coordinate.Version)
			deps[i].Coordinate.Classifier = expand(deps[i].Coordinate.Classifier)
			deps[i].Coordinate.Type = expand(deps[i].Coordinate.Type)
		}
	}
	expandDeps(out.Dependencies)
	expandDeps(out.DependencyManagement)
	for k, v := range out.Properties {
		out.Properties[k] = expand(v)
	}

	if err != nil {
		return nil, err
	}
	return out, nil
}

type substituter struct {
	project *Project
	extra   map[string]string
}

func (s *substituter) expand(value string, stack []string) (string, error) {
	if !strings.Contains(value, "${") {
		return value, nil
	}

	var b strings.Builder
	rest := value
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end += start

		b.WriteString(rest[:start])
		name := rest[start+2 : end]

		for _, seen := range stack {
			if seen == name {
				return "", errors.New(errors.ErrCodePropertyCycle,
					"property cycle: %s", strings.Join(append(stack, name), " -> "))
			}
		}

		if raw, ok := s.lookup(name); ok {
			expanded, err := s.expand(raw, append(stack, name))
			if err != nil {
				return "", err
			}
			b.WriteString(expanded)
		} else {
			// Leave unresolved references verbatim.
			b.WriteString(rest[start : end+1])
		}
		rest = rest[end+1:]
	}
}

func (s *substituter) lookup(name string) (string, bool) {
	switch name {
	case "project.groupId", "pom.groupId":
		return s.project.Coordinate.Organization, true
	case "project.artifactId", "pom.artifactId":
		return s.project.Coordinate.Name, true
	case "project.version", "pom.version":
		return s.project.Coordinate.Version, true
	case "project.packaging":
		return s.project.Packaging, true
	}
	if v, ok := s.project.Properties[name]; ok {
		return v, true
	}
	if v, ok := s.extra[name]; ok {
		return v, true
	}
	if env, ok := strings.CutPrefix(name, "env."); ok {
		if v, ok := os.LookupEnv(env); ok {
			return v, true
		}
	}
	return "", false
}
