// Package descriptor models module descriptors and their two wire dialects.
//
// A descriptor describes one module version: its declared dependencies,
// dependency-management overrides, parent reference, properties, and
// activation-gated profiles. Two dialects are parsed: the XML project
// descriptor (ParseXML) and a simpler tabular key/value format (ParseFlat).
//
// Descriptors are immutable once constructed; the merge helpers
// (MergeParent, MergeProfile, Substitute) return new values.
package descriptor

import (
	"github.com/scala-steward/coursier/pkg/coord"
)

// Scope is a dependency scope.
type Scope string

// The standard dependency scopes.
const (
	ScopeCompile  Scope = "compile"
	ScopeRuntime  Scope = "runtime"
	ScopeTest     Scope = "test"
	ScopeProvided Scope = "provided"
	ScopeSystem   Scope = "system"
	ScopeImport   Scope = "import"
)

// Exclusion is an (organization, name) pattern pair. Either field may be
// "*" to match any segment.
type Exclusion struct {
	Organization string
	Name         string
}

// Matches reports whether the exclusion pattern covers the module key.
func (e Exclusion) Matches(key coord.ModuleKey) bool {
	return (e.Organization == "*" || e.Organization == key.Organization) &&
		(e.Name == "*" || e.Name == key.Name)
}

// Dependency is a declared dependency: coordinate plus scope, optional
// flag, and exclusions. The same shape carries dependency-management
// entries, where the version (and possibly scope) act as overrides.
type Dependency struct {
	Coordinate coord.Coordinate
	Scope      Scope
	Optional   bool
	Exclusions []Exclusion
}

// EffectiveScope returns the declared scope, defaulting to compile.
func (d Dependency) EffectiveScope() Scope {
	if d.Scope == "" {
		return ScopeCompile
	}
	return d.Scope
}

// Activation gates a profile. A zero Activation never matches unless
// ActiveByDefault is set.
type Activation struct {
	ActiveByDefault bool
	Property        string // "name" or "name=value"; "!name" for absence
	FileExists      string
	FileMissing     string
	OS              string // operating system name (runtime.GOOS vocabulary)
	Arch            string
	JDK             string // prefix match against the jdk version property
}

// Profile is a descriptor fragment activated by condition.
type Profile struct {
	ID                   string
	Activation           Activation
	Dependencies         []Dependency
	DependencyManagement []Dependency
	Properties           map[string]string
}

// OpaqueElement retains an element the parser did not recognize, for
// round-trip debugging.
type OpaqueElement struct {
	Name string
	Body string
}

// Project is the in-memory form of a module descriptor.
type Project struct {
	Coordinate coord.Coordinate
	Packaging  string
	Parent     *coord.Coordinate

	Dependencies         []Dependency
	DependencyManagement []Dependency
	Properties           map[string]string
	Profiles             []Profile

	// Unknown holds elements the parser retained without interpreting.
	Unknown []OpaqueElement
}

// Clone returns a deep copy of the project. The merge helpers operate on
// clones so parsed descriptors stay immutable.
func (p *Project) Clone() *Project {
	out := *p
	if p.Parent != nil {
		parent := *p.Parent
		out.Parent = &parent
	}
	out.Dependencies = cloneDeps(p.Dependencies)
	out.DependencyManagement = cloneDeps(p.DependencyManagement)
	out.Properties = cloneProps(p.Properties)
	out.Profiles = make([]Profile, len(p.Profiles))
	for i, prof := range p.Profiles {
		out.Profiles[i] = Profile{
			ID:                   prof.ID,
			Activation:           prof.Activation,
			Dependencies:         cloneDeps(prof.Dependencies),
			DependencyManagement: cloneDeps(prof.DependencyManagement),
			Properties:           cloneProps(prof.Properties),
		}
	}
	out.Unknown = append([]OpaqueElement(nil), p.Unknown...)
	return &out
}

func cloneDeps(deps []Dependency) []Dependency {
	out := make([]Dependency, len(deps))
	for i, d := range deps {
		d.Exclusions = append([]Exclusion(nil), d.Exclusions...)
		out[i] = d
	}
	return out
}

func cloneProps(props map[string]string) map[string]string {
	if props == nil {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
