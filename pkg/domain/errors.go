package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownState is returned when a state name cannot be resolved in the
// registry. At runtime this indicates misconfiguration and is fatal to
// process startup, never expected mid-conversation.
var ErrUnknownState = errors.New("unknown state")

// ErrInvalidTransition is returned when the model proposes a next state
// outside the current state's allowed set. It is recovered locally.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrConversationNotFound is returned when a conversation ID cannot be found
// in the manager.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrConversationTerminated is returned when input arrives for a
// conversation that already reached a terminal status.
var ErrConversationTerminated = errors.New("conversation terminated")

// ErrInvalidContextValue is returned when a context update carries a value
// that cannot be stored (not serializable, or too large).
var ErrInvalidContextValue = errors.New("invalid context value")

// CollaboratorError wraps a failure of an external collaborator (language
// model, analytics sink). The engine converts these into error transitions
// instead of letting them terminate the conversation.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewCollaboratorError wraps err as a failure of the named collaborator.
func NewCollaboratorError(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}
