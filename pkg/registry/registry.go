// Package registry holds the static definition of the intake flow: every
// state, its required fields, its prompt template and its legal next states.
// The registry is built once at process start and is immutable for the
// process lifetime; changing flow topology requires a new deployment.
package registry

import (
	"fmt"

	"github.com/warrenhq/warren/pkg/domain"
)

// Registry is a pure, read-only lookup of state definitions. It is safe for
// concurrent use by all conversations without locking.
type Registry struct {
	states map[string]domain.StateDef
	order  []string
	start  string
}

// New builds a registry from state definitions and validates the topology.
func New(start string, defs []domain.StateDef) (*Registry, error) {
	r := &Registry{
		states: make(map[string]domain.StateDef, len(defs)),
		order:  make([]string, 0, len(defs)),
		start:  start,
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("registry: state with empty name")
		}
		if _, dup := r.states[def.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate state %s", def.Name)
		}
		r.states[def.Name] = def
		r.order = append(r.order, def.Name)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) validate() error {
	if _, ok := r.states[r.start]; !ok {
		return fmt.Errorf("registry: start state %s: %w", r.start, domain.ErrUnknownState)
	}
	for _, name := range r.order {
		def := r.states[name]
		if def.Prompt == nil {
			return fmt.Errorf("registry: state %s has no prompt template", name)
		}
		for _, next := range def.AllowedNext {
			if _, ok := r.states[next]; !ok {
				return fmt.Errorf("registry: state %s allows transition to %s: %w",
					name, next, domain.ErrUnknownState)
			}
		}
	}
	return nil
}

// StateByName resolves a state definition.
func (r *Registry) StateByName(name string) (domain.StateDef, error) {
	def, ok := r.states[name]
	if !ok {
		return domain.StateDef{}, fmt.Errorf("state %s: %w", name, domain.ErrUnknownState)
	}
	return def, nil
}

// Start returns the designated start state.
func (r *Registry) Start() domain.StateDef {
	return r.states[r.start]
}

// States returns all definitions in declaration order, for introspection.
func (r *Registry) States() []domain.StateDef {
	out := make([]domain.StateDef, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.states[name])
	}
	return out
}

// Len returns the number of states in the flow.
func (r *Registry) Len() int {
	return len(r.order)
}
