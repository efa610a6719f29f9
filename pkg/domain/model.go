package domain

// NextStateStay is the sentinel the model returns to remain in the current
// state.
const NextStateStay = "stay"

// CandidateState describes one legal next state offered to the model,
// including what it still needs from the caller.
type CandidateState struct {
	Name           string   `json:"name"`
	RequiredFields []string `json:"required_fields,omitempty"`
	MissingFields  []string `json:"missing_fields,omitempty"`
}

// DecisionRequest is the structured request sent to the language-model
// collaborator for a turn.
type DecisionRequest struct {
	ConversationID string
	State          string
	// StatePrompt is the current state's rendered prompt, giving the model
	// the question the user was just asked.
	StatePrompt string
	Context     map[string]any
	UserInput   string
	Candidates  []CandidateState
	// ComposeResponse asks the model to also return the user-facing response
	// for the chosen target state (the optimized single-call path). When
	// false only extraction and routing are requested.
	ComposeResponse bool
}

// ModelDecision is the structured output of a decision call. Adapters must
// validate shape strictly: a malformed response is a collaborator failure,
// never partially-parsed data.
type ModelDecision struct {
	// Updates holds field values extracted from the input.
	Updates map[string]any
	// NextState is the chosen state name, or NextStateStay/"" to remain.
	NextState string
	// Response is the pre-composed user-facing text (optimized path only).
	Response string
	// Confidence is the model's self-reported routing confidence in [0,1].
	Confidence float64
	Usage      Usage
}

// Stay reports whether the decision keeps the conversation in its current
// state.
func (d *ModelDecision) Stay() bool {
	return d.NextState == "" || d.NextState == NextStateStay
}

// ResponseRequest asks the model for the entry response of a state reached
// via the two-call fallback path.
type ResponseRequest struct {
	ConversationID string
	State          string
	PreviousState  string
	// StatePrompt is the target state's rendered prompt template, the
	// deterministic baseline the model should improve on.
	StatePrompt string
	Context     map[string]any
}

// ModelReply is the output of a response-generation call.
type ModelReply struct {
	Response string
	Usage    Usage
}
