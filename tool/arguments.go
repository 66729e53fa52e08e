package tool

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// StringArguments coerces protocol-level argument values to strings.
//
// Scalars are converted with mapstructure's weak typing, so 7 becomes "7".
// A JSON null is treated as an absent argument. Objects and arrays are rejected.
func StringArguments(raw map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		var s string
		if err := mapstructure.WeakDecode(value, &s); err != nil {
			return nil, withToolErrorDetails(
				newToolError(ToolErrorCodeInvalidRequest, fmt.Sprintf("tool: argument %q must be a string: %v", key, err), err),
				map[string]any{"argument": key},
			)
		}
		out[key] = s
	}
	return out, nil
}

// ResolveArguments applies declared defaults and checks required parameters.
//
// A present argument is kept as-is, even when empty. Only an absent optional
// parameter receives its default. Undeclared arguments are dropped.
func ResolveArguments(desc Descriptor, args map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(desc.Parameters))
	var missing []string
	for _, param := range desc.Parameters {
		if value, ok := args[param.Name]; ok {
			resolved[param.Name] = value
			continue
		}
		if param.Required {
			missing = append(missing, param.Name)
			continue
		}
		if param.Default != "" {
			resolved[param.Name] = param.Default
		}
	}
	if len(missing) > 0 {
		return nil, withToolErrorDetails(
			newToolError(
				ToolErrorCodeInvalidRequest,
				fmt.Sprintf("tool: %s: missing required argument(s): %s", desc.Name, strings.Join(missing, ", ")),
				nil,
			),
			map[string]any{"missing": missing},
		)
	}
	return resolved, nil
}

func unknownArguments(desc Descriptor, args map[string]string) []string {
	var unknown []string
	for key := range args {
		if _, ok := desc.Param(key); !ok {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	return unknown
}
