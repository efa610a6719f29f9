package domain

import (
	"fmt"
	"strings"
	"text/template"
)

// StateDef describes one step of the intake flow. Definitions are built once
// at process start and shared read-only across all conversations.
type StateDef struct {
	// Name uniquely identifies the state within the flow.
	Name string

	// RequiredFields lists, in asking order, the context fields this state
	// wants collected before the flow should move on.
	RequiredFields []string

	// Prompt renders the state's question from a context snapshot. It is
	// used when entering or re-entering the state without a model-composed
	// response.
	Prompt *template.Template

	// AllowedNext holds the names of states reachable from here.
	// An empty set marks a terminal state.
	AllowedNext []string
}

// Terminal reports whether the state has no outgoing transitions.
func (s StateDef) Terminal() bool {
	return len(s.AllowedNext) == 0
}

// CanTransitionTo reports whether name is a legal next state.
func (s StateDef) CanTransitionTo(name string) bool {
	for _, n := range s.AllowedNext {
		if n == name {
			return true
		}
	}
	return false
}

// RenderPrompt executes the prompt template against a context snapshot.
// Template fields resolve directly to context keys, e.g. {{.animal_type}}.
func (s StateDef) RenderPrompt(snapshot map[string]any) (string, error) {
	if s.Prompt == nil {
		return "", fmt.Errorf("state %s: %w: no prompt template", s.Name, ErrUnknownState)
	}
	var buf strings.Builder
	if err := s.Prompt.Execute(&buf, snapshot); err != nil {
		return "", fmt.Errorf("state %s: render prompt: %w", s.Name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
