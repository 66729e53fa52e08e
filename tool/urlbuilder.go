package tool

import "strings"

// BuildURL returns the upstream URL for desc and already-resolved arguments.
//
// Query pairs follow the descriptor's parameter order and are appended as
// name=value without percent-encoding; values reach the upstream verbatim.
// Parameters without an entry in args are skipped, and arguments the
// descriptor does not declare are ignored.
func BuildURL(desc Descriptor, args map[string]string) string {
	var b strings.Builder
	b.WriteString(desc.Endpoint)

	first := true
	for _, param := range desc.Parameters {
		value, ok := args[param.Name]
		if !ok {
			continue
		}
		if first {
			b.WriteString(desc.separator())
			first = false
		} else {
			b.WriteByte('&')
		}
		b.WriteString(param.Name)
		b.WriteByte('=')
		b.WriteString(value)
	}
	return b.String()
}
