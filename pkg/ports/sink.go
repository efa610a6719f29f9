package ports

import (
	"context"

	"github.com/warrenhq/warren/pkg/domain"
)

// TransitionSink receives one immutable Transition per completed input.
//
// Delivery is at-least-once: implementations must be idempotent on
// (conversation_id, sequence_number) and treat a replay of an already-stored
// transition as success.
type TransitionSink interface {
	Record(ctx context.Context, t domain.Transition) error
}
