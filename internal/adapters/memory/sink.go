// Package memory implements ports.TransitionSink in memory. Intended for
// tests and the interactive CLI; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warrenhq/warren/pkg/domain"
)

// Sink stores transitions per conversation, keyed by sequence number.
// Safe for concurrent use.
type Sink struct {
	mu   sync.RWMutex
	data map[string]map[uint64]domain.Transition
}

// NewSink creates an empty in-memory sink.
func NewSink() *Sink {
	return &Sink{
		data: make(map[string]map[uint64]domain.Transition),
	}
}

// Record stores the transition. Replaying a sequence number already stored
// for the conversation is a no-op, which keeps the sink idempotent under
// at-least-once delivery.
func (s *Sink) Record(ctx context.Context, t domain.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.data[t.ConversationID]
	if !ok {
		conv = make(map[uint64]domain.Transition)
		s.data[t.ConversationID] = conv
	}
	if _, exists := conv[t.SequenceNumber]; exists {
		return nil
	}
	conv[t.SequenceNumber] = t
	return nil
}

// Transitions returns the stored transitions for a conversation ordered by
// sequence number. Unknown conversations yield an empty slice.
func (s *Sink) Transitions(ctx context.Context, conversationID string) ([]domain.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.data[conversationID]
	out := make([]domain.Transition, 0, len(conv))
	for _, t := range conv {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SequenceNumber < out[j].SequenceNumber
	})
	return out, nil
}
