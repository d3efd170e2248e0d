package descriptor

import (
	"runtime"
	"strings"
)

// MergeParent folds a parent descriptor into a child and returns the
// merged copy. The child wins wherever both declare a value; parent
// dependencies, dependency management, properties, and profiles are
// appended after the child's own so child declarations take precedence
// during resolution.
func MergeParent(child, parent *Project) *Project {
	out := child.Clone()

	if out.Coordinate.Organization == "" {
		out.Coordinate.Organization = parent.Coordinate.Organization
	}
	if out.Coordinate.Version == "" {
		out.Coordinate.Version = parent.Coordinate.Version
	}

	out.Dependencies = append(out.Dependencies, cloneDeps(parent.Dependencies)...)
	out.DependencyManagement = append(out.DependencyManagement, cloneDeps(parent.DependencyManagement)...)

	if len(parent.Properties) > 0 && out.Properties == nil {
		out.Properties = map[string]string{}
	}
	for k, v := range parent.Properties {
		if _, ok := out.Properties[k]; !ok {
			out.Properties[k] = v
		}
	}

	out.Profiles = append(out.Profiles, parent.Clone().Profiles...)
	return out
}

// MergeProfile splices an activated profile body into the project, as if
// its contents had been declared directly in the descriptor.
func MergeProfile(p *Project, profile Profile) *Project {
	out := p.Clone()
	out.Dependencies = append(out.Dependencies, cloneDeps(profile.Dependencies)...)
	out.DependencyManagement = append(out.DependencyManagement, cloneDeps(profile.DependencyManagement)...)
	if len(profile.Properties) > 0 && out.Properties == nil {
		out.Properties = map[string]string{}
	}
	for k, v := range profile.Properties {
		out.Properties[k] = v
	}
	return out
}

// OSInfo describes the platform profile activation matches against.
type OSInfo struct {
	Name string // e.g. "linux", "darwin", "windows"
	Arch string // e.g. "amd64", "arm64"
	JDK  string // JDK version string, may be empty
}

// CurrentOS returns the OSInfo of the running process. The JDK version is
// taken from the java.version system property when the caller supplies
// one; it is empty here.
func CurrentOS() OSInfo {
	return OSInfo{Name: runtime.GOOS, Arch: runtime.GOARCH}
}

// Matches reports whether the activation conditions hold. Conditions
// compose conjunctively: every declared condition must pass. The
// fileExists func abstracts the filesystem probe so callers control where
// relative paths anchor.
func (a Activation) Matches(props map[string]string, osInfo OSInfo, fileExists func(string) bool) bool {
	if a.ActiveByDefault {
		return true
	}

	declared := false

	if a.Property != "" {
		declared = true
		if !matchProperty(a.Property, props) {
			return false
		}
	}
	if a.FileExists != "" {
		declared = true
		if fileExists == nil || !fileExists(a.FileExists) {
			return false
		}
	}
	if a.FileMissing != "" {
		declared = true
		if fileExists == nil || fileExists(a.FileMissing) {
			return false
		}
	}
	if a.OS != "" {
		declared = true
		if !strings.EqualFold(a.OS, osInfo.Name) {
			return false
		}
	}
	if a.Arch != "" {
		declared = true
		if !strings.EqualFold(a.Arch, osInfo.Arch) {
			return false
		}
	}
	if a.JDK != "" {
		declared = true
		if osInfo.JDK == "" || !strings.HasPrefix(osInfo.JDK, a.JDK) {
			return false
		}
	}

	return declared
}

func matchProperty(cond string, props map[string]string) bool {
	if name, ok := strings.CutPrefix(cond, "!"); ok {
		_, present := props[name]
		return !present
	}
	name, want, hasValue := strings.Cut(cond, "=")
	got, present := props[name]
	if !hasValue {
		return present
	}
	return present && got == want
}
