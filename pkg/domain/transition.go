package domain

import (
	"fmt"
	"time"
)

// TransitionType classifies how a transition was produced.
type TransitionType string

const (
	// TransitionOptimized marks a state change decided and voiced in a
	// single combined model call.
	TransitionOptimized TransitionType = "optimized"
	// TransitionFallback marks a state change produced by the two-call path
	// (decide, then respond).
	TransitionFallback TransitionType = "fallback"
	// TransitionContinue marks a turn that stayed in the current state,
	// possibly still updating context.
	TransitionContinue TransitionType = "continue"
	// TransitionError marks a turn where the collaborator failed or proposed
	// an illegal transition; the state did not change.
	TransitionError TransitionType = "error"
)

// Usage carries model-collaborator metadata for one turn.
type Usage struct {
	Model        string        `json:"model,omitempty"`
	InputTokens  int64         `json:"input_tokens,omitempty"`
	OutputTokens int64         `json:"output_tokens,omitempty"`
	Latency      time.Duration `json:"latency,omitempty"`
}

// TotalTokens returns the combined token count for the turn.
func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// Transition is the immutable record of one processed input. Exactly one is
// produced per completed input and handed to the analytics sink.
type Transition struct {
	ConversationID  string         `json:"conversation_id"`
	SequenceNumber  uint64         `json:"sequence_number"`
	FromState       string         `json:"from_state"`
	ToState         string         `json:"to_state"`
	Type            TransitionType `json:"transition_type"`
	UserInput       string         `json:"user_input"`
	AgentResponse   string         `json:"agent_response"`
	ContextSnapshot map[string]any `json:"context_snapshot"`
	ContextDelta    map[string]any `json:"context_delta,omitempty"`
	Usage           Usage          `json:"usage"`
	ProcessingTime  time.Duration  `json:"processing_time"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Key returns the idempotency key sinks deduplicate on.
func (t Transition) Key() string {
	return fmt.Sprintf("%s:%d", t.ConversationID, t.SequenceNumber)
}
