package tool

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryKeepsOrderAndIsImmutable(t *testing.T) {
	reg := testRegistry(t)

	if diff := cmp.Diff([]string{"forecast", "calendar"}, reg.Names()); diff != "" {
		t.Fatalf("Names() mismatch (-want +got):\n%s", diff)
	}

	desc, ok := reg.Lookup("forecast")
	if !ok {
		t.Fatal("Lookup(forecast) not found")
	}
	desc.Parameters[0].Name = "mutated"
	desc.Endpoint = "https://evil.test"

	again, _ := reg.Lookup("forecast")
	if again.Parameters[0].Name != "dataType" || again.Endpoint != "https://example.test/forecast.php" {
		t.Fatalf("registry mutated through lookup copy: %+v", again)
	}

	listed := reg.List()
	listed[1].Name = "changed"
	if reg.List()[1].Name != "calendar" {
		t.Fatal("registry mutated through List copy")
	}
}

func TestRegistryLookupMissing(t *testing.T) {
	if _, ok := testRegistry(t).Lookup("absent"); ok {
		t.Fatal("Lookup(absent) ok = true")
	}
	var nilReg *Registry
	if _, ok := nilReg.Lookup("x"); ok || nilReg.Len() != 0 {
		t.Fatal("nil registry should be empty")
	}
}

func TestNewRegistryRejectsInvalidDescriptors(t *testing.T) {
	valid := Descriptor{Name: "ok", Endpoint: "https://example.test/a"}

	tests := []struct {
		name    string
		descs   []Descriptor
		wantErr string
	}{
		{
			name:    "duplicate name",
			descs:   []Descriptor{valid, valid},
			wantErr: "duplicate tool name",
		},
		{
			name:    "missing endpoint",
			descs:   []Descriptor{{Name: "x"}},
			wantErr: "endpoint is required",
		},
		{
			name:    "relative endpoint",
			descs:   []Descriptor{{Name: "x", Endpoint: "/weather.php"}},
			wantErr: "absolute URL",
		},
		{
			name:    "bad format",
			descs:   []Descriptor{{Name: "x", Endpoint: "https://example.test", Format: "xml"}},
			wantErr: "unsupported response format",
		},
		{
			name: "duplicate parameter",
			descs: []Descriptor{{
				Name:       "x",
				Endpoint:   "https://example.test",
				Parameters: []ParamSpec{StringParam("lang", "", "en"), StringParam("lang", "", "")},
			}},
			wantErr: "declared twice",
		},
		{
			name: "required with default",
			descs: []Descriptor{{
				Name:       "x",
				Endpoint:   "https://example.test",
				Parameters: []ParamSpec{{Name: "date", Required: true, Default: "today"}},
			}},
			wantErr: "cannot declare a default",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.descs...)
			if err == nil {
				t.Fatal("NewRegistry() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDescriptorWarnsOnEndpointQuery(t *testing.T) {
	diags := ValidateDescriptor(Descriptor{Name: "x", Endpoint: "https://example.test/a?fixed=1"})
	if HasErrors(diags) {
		t.Fatalf("unexpected errors: %+v", diags)
	}
	if len(diags) != 1 || diags[0].Code != "ENDPOINT_HAS_QUERY" {
		t.Fatalf("diags = %+v", diags)
	}
}
