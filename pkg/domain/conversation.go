package domain

// Status is the lifecycle status of a conversation.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether the status accepts no further input.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusAbandoned:
		return true
	}
	return false
}

// ConversationSnapshot is a read-only view of a live conversation, used by
// transport adapters for introspection.
type ConversationSnapshot struct {
	ID       string         `json:"id"`
	State    string         `json:"state"`
	Status   Status         `json:"status"`
	Sequence uint64         `json:"sequence"`
	Context  map[string]any `json:"context"`
}
