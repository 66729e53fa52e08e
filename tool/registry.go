package tool

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Registry is a fixed, name-keyed set of descriptors. It is built once and
// never mutated, so it can be shared by concurrent dispatchers.
type Registry struct {
	order  []string
	byName map[string]Descriptor
}

// NewRegistry validates descriptors and indexes them by name, keeping the
// given order for listing.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	reg := &Registry{
		order:  make([]string, 0, len(descriptors)),
		byName: make(map[string]Descriptor, len(descriptors)),
	}

	var errs []error
	for _, desc := range descriptors {
		if diags := ValidateDescriptor(desc); HasErrors(diags) {
			errs = append(errs, diagnosticsError(desc.Name, diags))
			continue
		}
		if _, exists := reg.byName[desc.Name]; exists {
			errs = append(errs, fmt.Errorf("tool: duplicate tool name %q", desc.Name))
			continue
		}
		reg.order = append(reg.order, desc.Name)
		reg.byName[desc.Name] = cloneDescriptor(desc)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

// MustRegistry is NewRegistry for descriptor sets fixed at compile time.
func MustRegistry(descriptors ...Descriptor) *Registry {
	reg, err := NewRegistry(descriptors...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}
	desc, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return Descriptor{}, false
	}
	return cloneDescriptor(desc), true
}

// List returns descriptors in registration order.
func (r *Registry) List() []Descriptor {
	if r == nil {
		return nil
	}
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, cloneDescriptor(r.byName[name]))
	}
	return out
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.order)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

func cloneDescriptor(desc Descriptor) Descriptor {
	out := desc
	out.Parameters = make([]ParamSpec, 0, len(desc.Parameters))
	for _, p := range desc.Parameters {
		p.Enum = slices.Clone(p.Enum)
		out.Parameters = append(out.Parameters, p)
	}
	out.InputSchema = cloneAnyMap(desc.InputSchema)
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		switch v := value.(type) {
		case map[string]any:
			out[key] = cloneAnyMap(v)
		case []any:
			out[key] = slices.Clone(v)
		default:
			out[key] = value
		}
	}
	return out
}
