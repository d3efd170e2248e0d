package descriptor

import (
	"testing"

	"github.com/scala-steward/coursier/pkg/coord"
)

func TestMergeParent(t *testing.T) {
	child := &Project{
		Coordinate: coord.Coordinate{Name: "child"},
		Properties: map[string]string{"shared": "child"},
		Dependencies: []Dependency{
			{Coordinate: coord.Coordinate{Organization: "o", Name: "a", Version: "1"}},
		},
	}
	parent := &Project{
		Coordinate: coord.Coordinate{Organization: "com.example", Name: "parent", Version: "7"},
		Properties: map[string]string{"shared": "parent", "extra": "yes"},
		Dependencies: []Dependency{
			{Coordinate: coord.Coordinate{Organization: "o", Name: "b", Version: "2"}},
		},
		DependencyManagement: []Dependency{
			{Coordinate: coord.Coordinate{Organization: "o", Name: "c", Version: "3"}},
		},
	}

	out := MergeParent(child, parent)

	if out.Coordinate.Organization != "com.example" || out.Coordinate.Version != "7" {
		t.Errorf("Coordinate = %+v, want org/version inherited", out.Coordinate)
	}
	if out.Coordinate.Name != "child" {
		t.Errorf("Name = %q, want child", out.Coordinate.Name)
	}
	if len(out.Dependencies) != 2 || out.Dependencies[0].Coordinate.Name != "a" {
		t.Errorf("Dependencies = %+v, want child first", out.Dependencies)
	}
	if len(out.DependencyManagement) != 1 {
		t.Errorf("DependencyManagement = %+v", out.DependencyManagement)
	}
	if out.Properties["shared"] != "child" {
		t.Errorf("Properties[shared] = %q, child must win", out.Properties["shared"])
	}
	if out.Properties["extra"] != "yes" {
		t.Errorf("Properties[extra] = %q, parent property must be inherited", out.Properties["extra"])
	}
}

func TestMergeProfile(t *testing.T) {
	p := &Project{
		Coordinate: coord.Coordinate{Organization: "g", Name: "a", Version: "1"},
		Properties: map[string]string{"mode": "dev"},
	}
	profile := Profile{
		ID: "prod",
		Dependencies: []Dependency{
			{Coordinate: coord.Coordinate{Organization: "o", Name: "extra", Version: "1"}},
		},
		Properties: map[string]string{"mode": "prod"},
	}

	out := MergeProfile(p, profile)

	if len(out.Dependencies) != 1 {
		t.Fatalf("Dependencies = %+v", out.Dependencies)
	}
	if out.Properties["mode"] != "prod" {
		t.Errorf("Properties[mode] = %q, profile must override", out.Properties["mode"])
	}
	if p.Properties["mode"] != "dev" {
		t.Error("MergeProfile mutated its input")
	}
}

func TestActivationMatches(t *testing.T) {
	exists := func(path string) bool { return path == "/present" }
	linux := OSInfo{Name: "linux", Arch: "amd64", JDK: "17.0.2"}

	tests := []struct {
		name  string
		a     Activation
		props map[string]string
		want  bool
	}{
		{"zero activation never matches", Activation{}, nil, false},
		{"active by default", Activation{ActiveByDefault: true}, nil, true},
		{"property present", Activation{Property: "fast"}, map[string]string{"fast": ""}, true},
		{"property absent", Activation{Property: "fast"}, nil, false},
		{"property negated", Activation{Property: "!fast"}, nil, true},
		{"property value match", Activation{Property: "mode=prod"}, map[string]string{"mode": "prod"}, true},
		{"property value mismatch", Activation{Property: "mode=prod"}, map[string]string{"mode": "dev"}, false},
		{"file exists", Activation{FileExists: "/present"}, nil, true},
		{"file exists fails", Activation{FileExists: "/absent"}, nil, false},
		{"file missing", Activation{FileMissing: "/absent"}, nil, true},
		{"os match", Activation{OS: "Linux"}, nil, true},
		{"os mismatch", Activation{OS: "windows"}, nil, false},
		{"arch match", Activation{Arch: "amd64"}, nil, true},
		{"jdk prefix", Activation{JDK: "17"}, nil, true},
		{"jdk mismatch", Activation{JDK: "11"}, nil, false},
		{"conjunction fails", Activation{OS: "linux", JDK: "11"}, nil, false},
		{"conjunction holds", Activation{OS: "linux", Arch: "amd64"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Matches(tt.props, linux, exists); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
