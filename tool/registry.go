package tool

import (
	"fmt"

	"github.com/chronicler-ai/chronicler/internal/schema"
)

// Registry is the immutable name -> Tool catalog populated at startup.
// Duplicate names or malformed schemas are construction errors, turning
// a whole class of unknown-tool-at-runtime bugs into startup failures.
// After construction the registry is safe for unsynchronized concurrent
// reads.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry validates and indexes the given tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		if err := schema.Check(t.InputSchema()); err != nil {
			return nil, fmt.Errorf("tool %q input schema: %w", name, err)
		}
		if err := schema.Check(t.OutputSchema()); err != nil {
			return nil, fmt.Errorf("tool %q output schema: %w", name, err)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error, for program
// wiring where a bad registry should abort startup.
func MustNewRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Descriptors returns the read-only tool catalog in registration order.
func (r *Registry) Descriptors() []Descriptor {
	ds := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		ds = append(ds, Descriptor{
			Name:         t.Name(),
			Description:  t.Description(),
			InputSchema:  t.InputSchema(),
			OutputSchema: t.OutputSchema(),
		})
	}
	return ds
}
