package descriptor

import (
	"reflect"
	"testing"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/errors"
)

const sampleFlat = `# flat descriptor
organization = com.example
name = util
version = 1.2.0
packaging = jar
parent = com.example:parent:7
property.cats.version = 2.9.0

[dependencies]
org.typelevel:cats-core:2.9.0
junit:junit:4.13.2 test optional exclude=org.hamcrest:*

[management]
com.google.guava:guava:32.1.3
`

func TestParseFlat(t *testing.T) {
	p, err := ParseFlat([]byte(sampleFlat))
	if err != nil {
		t.Fatalf("ParseFlat failed: %v", err)
	}

	want := coord.Coordinate{Organization: "com.example", Name: "util", Version: "1.2.0"}
	if p.Coordinate != want {
		t.Errorf("Coordinate = %+v, want %+v", p.Coordinate, want)
	}
	if p.Parent == nil || p.Parent.Version != "7" {
		t.Errorf("Parent = %+v", p.Parent)
	}
	if p.Properties["cats.version"] != "2.9.0" {
		t.Errorf("Properties = %+v", p.Properties)
	}

	if len(p.Dependencies) != 2 {
		t.Fatalf("got %d dependencies, want 2", len(p.Dependencies))
	}
	junit := p.Dependencies[1]
	if junit.Scope != ScopeTest || !junit.Optional {
		t.Errorf("junit = %+v", junit)
	}
	wantExcl := []Exclusion{{Organization: "org.hamcrest", Name: "*"}}
	if !reflect.DeepEqual(junit.Exclusions, wantExcl) {
		t.Errorf("Exclusions = %+v, want %+v", junit.Exclusions, wantExcl)
	}

	if len(p.DependencyManagement) != 1 {
		t.Errorf("DependencyManagement = %+v", p.DependencyManagement)
	}
}

func TestParseFlatErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown section", "organization=a\nname=b\n[nope]\n"},
		{"bad header line", "organization\n"},
		{"bad dependency", "organization=a\nname=b\n[dependencies]\nnot-a-coordinate\n"},
		{"bad exclusion", "organization=a\nname=b\n[dependencies]\no:n:1 exclude=xyz\n"},
		{"missing identity", "version=1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFlat([]byte(tt.in)); !errors.Is(err, errors.ErrCodeParse) {
				t.Errorf("err = %v, want PARSE_ERROR", err)
			}
		})
	}
}

func TestParseFlatRetainsUnknownKeys(t *testing.T) {
	p, err := ParseFlat([]byte("organization=a\nname=b\nversion=1\nhomepage=https://example.com\n"))
	if err != nil {
		t.Fatalf("ParseFlat failed: %v", err)
	}
	if len(p.Unknown) != 1 || p.Unknown[0].Name != "homepage" {
		t.Errorf("Unknown = %+v", p.Unknown)
	}
}
