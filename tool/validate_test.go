package tool

import "testing"

func TestValidateDescriptor(t *testing.T) {
	valid := Descriptor{
		Name:     "forecast",
		Endpoint: "https://api.test/forecast",
		Parameters: []ParamSpec{
			RequiredParam("dataType", ""),
			StringParam("lang", "", "en"),
		},
	}

	tests := []struct {
		name      string
		mutate    func(d *Descriptor)
		wantCode  string
		wantError bool
	}{
		{name: "valid", mutate: func(*Descriptor) {}},
		{name: "missing name", mutate: func(d *Descriptor) { d.Name = "" }, wantCode: "REQUIRED", wantError: true},
		{name: "padded name", mutate: func(d *Descriptor) { d.Name = " forecast" }, wantCode: "INVALID_NAME", wantError: true},
		{name: "relative endpoint", mutate: func(d *Descriptor) { d.Endpoint = "/forecast" }, wantCode: "INVALID_ENDPOINT", wantError: true},
		{name: "endpoint with query", mutate: func(d *Descriptor) { d.Endpoint += "?v=1" }, wantCode: "ENDPOINT_HAS_QUERY"},
		{name: "bad format", mutate: func(d *Descriptor) { d.Format = "xml" }, wantCode: "INVALID_FORMAT", wantError: true},
		{name: "duplicate param", mutate: func(d *Descriptor) { d.Parameters = append(d.Parameters, StringParam("lang", "", "")) }, wantCode: "DUPLICATE_PARAMETER", wantError: true},
		{name: "non-string param", mutate: func(d *Descriptor) { d.Parameters[1].Type = "number" }, wantCode: "INVALID_TYPE", wantError: true},
		{name: "required with default", mutate: func(d *Descriptor) { d.Parameters[0].Default = "flw" }, wantCode: "REQUIRED_WITH_DEFAULT", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := cloneDescriptor(valid)
			tt.mutate(&desc)
			diags := ValidateDescriptor(desc)

			if HasErrors(diags) != tt.wantError {
				t.Fatalf("HasErrors() = %v, want %v (%+v)", HasErrors(diags), tt.wantError, diags)
			}
			if tt.wantCode == "" {
				if len(diags) != 0 {
					t.Fatalf("diagnostics = %+v, want none", diags)
				}
				return
			}
			found := false
			for _, d := range diags {
				if d.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Fatalf("diagnostics = %+v, want code %s", diags, tt.wantCode)
			}
		})
	}
}
