package tool

import (
	"fmt"
	"net/url"
	"strings"
)

// Severity defines diagnostic severity produced by validators.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a structured validation finding.
type Diagnostic struct {
	Field    string   `json:"field,omitempty"`
	Code     string   `json:"code,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// HasErrors returns true when at least one error-severity diagnostic exists.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateDescriptor checks that a descriptor can be dispatched.
func ValidateDescriptor(desc Descriptor) []Diagnostic {
	diags := make([]Diagnostic, 0)

	if strings.TrimSpace(desc.Name) == "" {
		diags = append(diags, errorDiag("name", "REQUIRED", "tool name is required"))
	} else if strings.TrimSpace(desc.Name) != desc.Name {
		diags = append(diags, errorDiag("name", "INVALID_NAME", "tool name must not have surrounding whitespace"))
	}

	endpoint := strings.TrimSpace(desc.Endpoint)
	if endpoint == "" {
		diags = append(diags, errorDiag("endpoint", "REQUIRED", "endpoint is required"))
	} else if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		diags = append(diags, errorDiag("endpoint", "INVALID_ENDPOINT", fmt.Sprintf("endpoint %q must be an absolute URL", endpoint)))
	} else if u.RawQuery != "" {
		diags = append(diags, Diagnostic{
			Field:    "endpoint",
			Code:     "ENDPOINT_HAS_QUERY",
			Severity: SeverityWarning,
			Message:  "endpoint already carries a query string",
		})
	}

	switch desc.format() {
	case FormatJSON, FormatText:
	default:
		diags = append(diags, errorDiag("format", "INVALID_FORMAT", fmt.Sprintf("unsupported response format %q", desc.Format)))
	}

	seen := make(map[string]struct{}, len(desc.Parameters))
	for i, param := range desc.Parameters {
		field := fmt.Sprintf("parameters[%d]", i)
		name := strings.TrimSpace(param.Name)
		if name == "" {
			diags = append(diags, errorDiag(field+".name", "REQUIRED", "parameter name is required"))
			continue
		}
		if _, dup := seen[name]; dup {
			diags = append(diags, errorDiag(field+".name", "DUPLICATE_PARAMETER", fmt.Sprintf("parameter %q is declared twice", name)))
		}
		seen[name] = struct{}{}

		if param.Type != "" && param.Type != TypeString {
			diags = append(diags, errorDiag(field+".type", "INVALID_TYPE", fmt.Sprintf("parameter %q must be a string", name)))
		}
		if param.Required && param.Default != "" {
			diags = append(diags, errorDiag(field+".default", "REQUIRED_WITH_DEFAULT", fmt.Sprintf("required parameter %q cannot declare a default", name)))
		}
	}

	return diags
}

func errorDiag(field, code, message string) Diagnostic {
	return Diagnostic{Field: field, Code: code, Severity: SeverityError, Message: message}
}

func diagnosticsError(name string, diags []Diagnostic) error {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity != SeverityError {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", d.Field, d.Message))
	}
	return fmt.Errorf("tool: invalid descriptor %q: %s", name, strings.Join(parts, "; "))
}
