package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/pkg/domain"
)

// TransitionReader is implemented by sinks that can read stored transitions
// back, ordered by sequence number. Used by the contract tests and by
// introspection tooling.
type TransitionReader interface {
	Transitions(ctx context.Context, conversationID string) ([]domain.Transition, error)
}

// ReadableSink combines recording and read-back for contract testing.
type ReadableSink interface {
	TransitionSink
	TransitionReader
}

// RunTransitionSinkContract runs a suite of tests verifying that a
// TransitionSink implementation adheres to the interface contract,
// in particular idempotency on (conversation_id, sequence_number).
func RunTransitionSinkContract(t *testing.T, sink ReadableSink) {
	ctx := context.Background()
	convID := "contract-conv-" + time.Now().Format("20060102150405")

	mk := func(seq uint64, to string) domain.Transition {
		return domain.Transition{
			ConversationID:  convID,
			SequenceNumber:  seq,
			FromState:       "GREETING",
			ToState:         to,
			Type:            domain.TransitionOptimized,
			UserInput:       "I need to surrender my dog",
			AgentResponse:   "I can help with that.",
			ContextSnapshot: map[string]any{"animal_type": "dog"},
			ContextDelta:    map[string]any{"animal_type": "dog"},
			Usage:           domain.Usage{Model: "test", InputTokens: 10, OutputTokens: 5},
			Timestamp:       time.Now().UTC(),
		}
	}

	t.Run("Record and Read", func(t *testing.T) {
		require.NoError(t, sink.Record(ctx, mk(1, "PET_SURRENDER")))
		require.NoError(t, sink.Record(ctx, mk(2, "SCHEDULE_SURRENDER")))

		got, err := sink.Transitions(ctx, convID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].SequenceNumber)
		assert.Equal(t, uint64(2), got[1].SequenceNumber)
		assert.Equal(t, "PET_SURRENDER", got[0].ToState)
		assert.Equal(t, "dog", got[0].ContextDelta["animal_type"])
	})

	t.Run("Idempotent Replay", func(t *testing.T) {
		replay := mk(1, "PET_SURRENDER")
		require.NoError(t, sink.Record(ctx, replay))
		require.NoError(t, sink.Record(ctx, replay))

		got, err := sink.Transitions(ctx, convID)
		require.NoError(t, err)
		assert.Len(t, got, 2, "replaying a sequence number must not duplicate stored state")
	})

	t.Run("Unknown Conversation", func(t *testing.T) {
		got, err := sink.Transitions(ctx, "missing-"+convID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
