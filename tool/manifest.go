package tool

import "strings"

// ResponseFormat selects how an upstream body is returned to the caller.
type ResponseFormat string

const (
	// FormatJSON decodes the upstream body as JSON.
	FormatJSON ResponseFormat = "json"
	// FormatText returns the upstream body verbatim.
	FormatText ResponseFormat = "text"
)

// DefaultQuerySeparator joins an endpoint and its query string.
const DefaultQuerySeparator = "?"

// TypeString is the only parameter type upstream query strings carry.
const TypeString = "string"

// Descriptor describes one tool independent of the protocol exposing it.
type Descriptor struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  []ParamSpec    `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Endpoint    string         `json:"endpoint" yaml:"endpoint"`
	Format      ResponseFormat `json:"format" yaml:"format"`

	// QuerySeparator is placed between Endpoint and the first query pair.
	// Empty means DefaultQuerySeparator.
	QuerySeparator string `json:"query_separator,omitempty" yaml:"query_separator,omitempty"`

	// InputSchema is the JSON schema published to callers. Enumerations in it
	// are hints; the dispatcher does not enforce them.
	InputSchema map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
}

// ParamSpec is one query parameter declared by a descriptor.
type ParamSpec struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Default     string   `json:"default,omitempty" yaml:"default,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// Param returns the named parameter spec.
func (d Descriptor) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// ParamNames returns parameter names in declaration order.
func (d Descriptor) ParamNames() []string {
	names := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		names = append(names, p.Name)
	}
	return names
}

func (d Descriptor) separator() string {
	if d.QuerySeparator == "" {
		return DefaultQuerySeparator
	}
	return d.QuerySeparator
}

func (d Descriptor) format() ResponseFormat {
	f := ResponseFormat(strings.ToLower(strings.TrimSpace(string(d.Format))))
	if f == "" {
		return FormatJSON
	}
	return f
}

// StringParam declares an optional string parameter with an optional default.
func StringParam(name, description, defaultValue string, enum ...string) ParamSpec {
	return ParamSpec{
		Name:        name,
		Type:        TypeString,
		Default:     defaultValue,
		Description: description,
		Enum:        enum,
	}
}

// RequiredParam declares a required string parameter.
func RequiredParam(name, description string, enum ...string) ParamSpec {
	return ParamSpec{
		Name:        name,
		Type:        TypeString,
		Required:    true,
		Description: description,
		Enum:        enum,
	}
}
