package ports

import (
	"context"

	"github.com/warrenhq/warren/pkg/domain"
)

// ModelClient is the language-model collaborator. Implementations must
// return domain.CollaboratorError (wrapped) for timeouts, transport errors
// and responses that fail strict shape validation.
type ModelClient interface {
	// Decide extracts field updates from the input and chooses the next
	// state. When req.ComposeResponse is set the model also returns the
	// user-facing response for the chosen target state, collapsing the turn
	// into a single call.
	Decide(ctx context.Context, req domain.DecisionRequest) (*domain.ModelDecision, error)

	// Respond generates the entry response for a state reached through the
	// two-call fallback path.
	Respond(ctx context.Context, req domain.ResponseRequest) (*domain.ModelReply, error)
}
