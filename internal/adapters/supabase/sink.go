// Package supabase persists call analytics to Supabase. The sink writes one
// row per transition into state_transitions; the notifier maintains the
// companion calls table.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/warrenhq/warren/internal/logging"
	"github.com/warrenhq/warren/pkg/domain"
)

const (
	callsTable       = "calls"
	transitionsTable = "state_transitions"
)

// Sink implements ports.TransitionSink and ports.LifecycleNotifier on
// Supabase.
type Sink struct {
	client *supabase.Client
	logger *slog.Logger
}

type Option func(*Sink)

// WithLogger configures a logger for best-effort lifecycle writes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// New creates a Supabase sink.
func New(url, apiKey string, opts ...Option) (*Sink, error) {
	if url == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	client, err := supabase.NewClient(url, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return NewFromClient(client, opts...), nil
}

// NewFromClient wraps an existing Supabase client.
func NewFromClient(client *supabase.Client, opts ...Option) *Sink {
	s := &Sink{client: client, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type transitionRow struct {
	ConversationID  string          `json:"conversation_id"`
	SequenceNumber  uint64          `json:"sequence_number"`
	FromState       string          `json:"from_state"`
	ToState         string          `json:"to_state"`
	TransitionType  string          `json:"transition_type"`
	UserInput       string          `json:"user_input"`
	AgentResponse   string          `json:"agent_response"`
	ContextSnapshot json.RawMessage `json:"context_snapshot,omitempty"`
	ContextDelta    json.RawMessage `json:"context_delta,omitempty"`
	Model           string          `json:"model,omitempty"`
	InputTokens     int64           `json:"input_tokens"`
	OutputTokens    int64           `json:"output_tokens"`
	ProcessingMS    int64           `json:"processing_ms"`
	CreatedAt       time.Time       `json:"created_at"`
}

type callRow struct {
	ConversationID string    `json:"conversation_id"`
	Status         string    `json:"status"`
	CurrentState   string    `json:"current_state"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
}

// Record upserts the transition on (conversation_id, sequence_number), so a
// redelivery after a partial failure never duplicates a row.
func (s *Sink) Record(ctx context.Context, t domain.Transition) error {
	row := transitionRow{
		ConversationID: t.ConversationID,
		SequenceNumber: t.SequenceNumber,
		FromState:      t.FromState,
		ToState:        t.ToState,
		TransitionType: string(t.Type),
		UserInput:      t.UserInput,
		AgentResponse:  t.AgentResponse,
		Model:          t.Usage.Model,
		InputTokens:    t.Usage.InputTokens,
		OutputTokens:   t.Usage.OutputTokens,
		ProcessingMS:   t.ProcessingTime.Milliseconds(),
		CreatedAt:      t.Timestamp,
	}
	var err error
	if row.ContextSnapshot, err = marshalBag(t.ContextSnapshot); err != nil {
		return fmt.Errorf("failed to marshal context snapshot: %w", err)
	}
	if row.ContextDelta, err = marshalBag(t.ContextDelta); err != nil {
		return fmt.Errorf("failed to marshal context delta: %w", err)
	}

	_, _, err = s.client.From(transitionsTable).
		Insert(row, true, "conversation_id,sequence_number", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// Transitions reads a conversation's transitions back in sequence order.
func (s *Sink) Transitions(ctx context.Context, conversationID string) ([]domain.Transition, error) {
	var rows []transitionRow
	_, err := s.client.From(transitionsTable).
		Select("*", "", false).
		Eq("conversation_id", conversationID).
		Order("sequence_number", nil).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read transitions: %w", err)
	}

	out := make([]domain.Transition, 0, len(rows))
	for _, r := range rows {
		t := domain.Transition{
			ConversationID: r.ConversationID,
			SequenceNumber: r.SequenceNumber,
			FromState:      r.FromState,
			ToState:        r.ToState,
			Type:           domain.TransitionType(r.TransitionType),
			UserInput:      r.UserInput,
			AgentResponse:  r.AgentResponse,
			Usage: domain.Usage{
				Model:        r.Model,
				InputTokens:  r.InputTokens,
				OutputTokens: r.OutputTokens,
			},
			ProcessingTime: time.Duration(r.ProcessingMS) * time.Millisecond,
			Timestamp:      r.CreatedAt,
		}
		if len(r.ContextSnapshot) > 0 {
			if err := json.Unmarshal(r.ContextSnapshot, &t.ContextSnapshot); err != nil {
				return nil, fmt.Errorf("failed to unmarshal context snapshot: %w", err)
			}
		}
		if len(r.ContextDelta) > 0 {
			if err := json.Unmarshal(r.ContextDelta, &t.ContextDelta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal context delta: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// ConversationStarted opens the call row.
func (s *Sink) ConversationStarted(ctx context.Context, id string, initialState string) {
	row := callRow{
		ConversationID: id,
		Status:         string(domain.StatusInProgress),
		CurrentState:   initialState,
		StartedAt:      time.Now().UTC(),
	}
	_, _, err := s.client.From(callsTable).
		Insert(row, true, "conversation_id", "minimal", "").
		Execute()
	if err != nil {
		// Lifecycle writes are best effort; the transition log is the
		// source of truth.
		s.logger.Warn("failed to open call row", "conversation_id", id, "err", err)
	}
}

// ConversationEnded closes the call row.
func (s *Sink) ConversationEnded(ctx context.Context, id string, status domain.Status, finalState string) {
	update := map[string]any{
		"status":        string(status),
		"current_state": finalState,
		"ended_at":      time.Now().UTC(),
	}
	_, _, err := s.client.From(callsTable).
		Update(update, "minimal", "").
		Eq("conversation_id", id).
		Execute()
	if err != nil {
		s.logger.Warn("failed to close call row", "conversation_id", id, "err", err)
	}
}

func marshalBag(bag map[string]any) (json.RawMessage, error) {
	if len(bag) == 0 {
		return nil, nil
	}
	return json.Marshal(bag)
}
