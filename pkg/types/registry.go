package types

import (
	"errors"
	"fmt"
)

// ErrDuplicateEntity is returned when two schemas share a name.
var ErrDuplicateEntity = errors.New("duplicate entity name")

// Registry holds the entity schemas registered at process start. It is
// built once, passed to the adapter factory and route binding, and never
// mutated afterwards.
type Registry struct {
	ordered []EntitySchema
	byName  map[string]EntitySchema
}

// NewRegistry validates every schema and builds the registry. Registration
// order is preserved for callers that iterate.
func NewRegistry(schemas ...EntitySchema) (*Registry, error) {
	r := &Registry{byName: make(map[string]EntitySchema, len(schemas))}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byName[s.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntity, s.Name)
		}
		r.byName[s.Name] = s
		r.ordered = append(r.ordered, s)
	}
	return r, nil
}

// Get returns the schema registered under name.
func (r *Registry) Get(name string) (EntitySchema, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// All returns the registered schemas in registration order.
func (r *Registry) All() []EntitySchema {
	out := make([]EntitySchema, len(r.ordered))
	copy(out, r.ordered)
	return out
}
