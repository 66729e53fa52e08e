package tool

import "testing"

func TestDescriptorDefaults(t *testing.T) {
	desc := Descriptor{Name: "forecast", Endpoint: "https://api.test/forecast"}
	if got := desc.format(); got != FormatJSON {
		t.Fatalf("format() = %q, want json", got)
	}
	if got := desc.separator(); got != "?" {
		t.Fatalf("separator() = %q, want ?", got)
	}

	desc.Format = " TEXT "
	desc.QuerySeparator = "??"
	if got := desc.format(); got != FormatText {
		t.Fatalf("format() = %q, want text", got)
	}
	if got := desc.separator(); got != "??" {
		t.Fatalf("separator() = %q, want ??", got)
	}
}

func TestParamConstructors(t *testing.T) {
	desc := Descriptor{Parameters: []ParamSpec{
		RequiredParam("dataType", "kind", "flw", "fnd"),
		StringParam("lang", "language", "en"),
	}}
	if names := desc.ParamNames(); len(names) != 2 || names[0] != "dataType" || names[1] != "lang" {
		t.Fatalf("ParamNames() = %v", names)
	}
	dataType, ok := desc.Param("dataType")
	if !ok || !dataType.Required || dataType.Type != TypeString || len(dataType.Enum) != 2 {
		t.Fatalf("Param(dataType) = %+v, %v", dataType, ok)
	}
	lang, _ := desc.Param("lang")
	if lang.Required || lang.Default != "en" {
		t.Fatalf("Param(lang) = %+v", lang)
	}
	if _, ok := desc.Param("date"); ok {
		t.Fatal("Param(date) found an undeclared parameter")
	}
}
