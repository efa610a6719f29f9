package decision

import (
	"github.com/warrenhq/warren/pkg/domain"
)

// Outcome is the fully-resolved result of one turn. Exactly one is produced
// per input; the session queue applies it atomically.
type Outcome struct {
	// Type classifies the turn: optimized, fallback, continue or error.
	Type domain.TransitionType

	// NextState is the resolved target state name. On continue and error
	// outcomes it equals the current state.
	NextState string

	// Delta holds the context updates to apply. Nil on error outcomes.
	Delta map[string]any

	// Response is the user-facing text for this turn.
	Response string

	// Usage aggregates model metadata across the call(s) of this turn.
	Usage domain.Usage

	// Err carries the cause when Type is error.
	Err error
}

// Failed reports whether the turn ended in an error outcome.
func (o Outcome) Failed() bool {
	return o.Type == domain.TransitionError
}

func mergeUsage(a, b domain.Usage) domain.Usage {
	out := b
	if out.Model == "" {
		out.Model = a.Model
	}
	out.InputTokens += a.InputTokens
	out.OutputTokens += a.OutputTokens
	out.Latency += a.Latency
	return out
}
