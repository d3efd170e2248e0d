package coord

import (
	"testing"

	"github.com/scala-steward/coursier/pkg/errors"
)

func TestParseConstraint(t *testing.T) {
	tests := []struct {
		in   string
		kind ConstraintKind
	}{
		{"1.0", KindSoft},
		{"2.7.18", KindSoft},
		{"[1.0]", KindExact},
		{"[1.0,2.0]", KindRange},
		{"[1.0,2.0)", KindRange},
		{"(1.0,2.0)", KindRange},
		{"[1.0,)", KindRange},
		{"(,2.0]", KindRange},
		{"[1,2),[3,4)", KindRange},
		{"latest", KindLatest},
		{"latest.integration", KindLatest},
		{"release", KindRelease},
		{"latest.release", KindRelease},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseConstraint(tt.in)
			if err != nil {
				t.Fatalf("ParseConstraint(%q) failed: %v", tt.in, err)
			}
			if c.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", c.Kind, tt.kind)
			}
		})
	}
}

func TestParseConstraintInvalid(t *testing.T) {
	for _, in := range []string{"", "[1.0", "[,]", "[1,2,3]", "[1.0)"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseConstraint(in)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("ParseConstraint(%q) err = %v, want INVALID_INPUT", in, err)
			}
		})
	}
}

func TestConstraintMatches(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		want       bool
	}{
		{"1.0", "2.0", true}, // soft matches anything
		{"[1.0]", "1.0", true},
		{"[1.0]", "1.0.0", true}, // ordering equality, not string equality
		{"[1.0]", "1.1", false},
		{"[1.0,2.0]", "1.5", true},
		{"[1.0,2.0]", "2.0", true},
		{"[1.0,2.0)", "2.0", false},
		{"(1.0,2.0)", "1.0", false},
		{"[1.0,)", "99", true},
		{"(,2.0]", "0.1", true},
		{"[1,2),[3,4)", "2.5", false},
		{"[1,2),[3,4)", "3.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+" / "+tt.version, func(t *testing.T) {
			c, err := ParseConstraint(tt.constraint)
			if err != nil {
				t.Fatalf("ParseConstraint failed: %v", err)
			}
			if got := c.Matches(ParseVersion(tt.version)); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestConstraintSelect(t *testing.T) {
	available := []Version{
		ParseVersion("1.0"),
		ParseVersion("1.5"),
		ParseVersion("2.0-SNAPSHOT"),
		ParseVersion("1.9"),
	}

	tests := []struct {
		constraint string
		want       string
		ok         bool
	}{
		{"[1.0,2.0)", "2.0-SNAPSHOT", true}, // 2.0-SNAPSHOT orders below 2.0
		{"[1.4,1.6]", "1.5", true},
		{"latest", "2.0-SNAPSHOT", true},
		{"release", "1.9", true},
		{"[3.0,)", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			c, err := ParseConstraint(tt.constraint)
			if err != nil {
				t.Fatalf("ParseConstraint failed: %v", err)
			}
			got, ok := c.Select(available)
			if ok != tt.ok {
				t.Fatalf("Select ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.String() != tt.want {
				t.Errorf("Select = %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in      string
		want    Coordinate
		wantErr bool
	}{
		{in: "org.typelevel:cats-core:2.9.0", want: Coordinate{Organization: "org.typelevel", Name: "cats-core", Version: "2.9.0"}},
		{in: "org:name:1.0:sources", want: Coordinate{Organization: "org", Name: "name", Version: "1.0", Classifier: "sources"}},
		{in: "org:name:1.0:sources:zip", want: Coordinate{Organization: "org", Name: "name", Version: "1.0", Classifier: "sources", Type: "zip"}},
		{in: "org:name", wantErr: true},
		{in: "org::1.0", wantErr: true},
		{in: "a:b:c:d:e:f", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCoordinate(tt.in)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Errorf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCoordinate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCoordinate = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsSnapshot(t *testing.T) {
	c := Coordinate{Organization: "o", Name: "n", Version: "1.0-SNAPSHOT"}
	if !c.IsSnapshot() {
		t.Error("IsSnapshot() = false for snapshot version")
	}
	c.Version = "1.0"
	if c.IsSnapshot() {
		t.Error("IsSnapshot() = true for release version")
	}
}
