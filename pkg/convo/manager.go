package convo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warrenhq/warren/internal/logging"
	"github.com/warrenhq/warren/pkg/decision"
	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/observability"
	"github.com/warrenhq/warren/pkg/ports"
	"github.com/warrenhq/warren/pkg/recorder"
	"github.com/warrenhq/warren/pkg/registry"
)

// Config tunes conversation lifecycle behavior.
type Config struct {
	// FailureThreshold is the number of consecutive error transitions after
	// which the conversation status escalates to error.
	FailureThreshold int
	// AbandonAfter is the idle time after which an in-progress conversation
	// is marked abandoned. Terminal conversations are removed from the
	// table after the same interval.
	AbandonAfter time.Duration
	// ReapInterval is how often the reaper scans the table.
	ReapInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		AbandonAfter:     10 * time.Minute,
		ReapInterval:     time.Minute,
	}
}

// Reply is what the transport layer hands back to the caller for one input.
type Reply struct {
	Text     string                `json:"text"`
	State    string                `json:"state"`
	Status   domain.Status         `json:"status"`
	Sequence uint64                `json:"sequence"`
	Type     domain.TransitionType `json:"transition_type"`
}

// Manager owns the conversation table and drives every input through the
// decision engine under the conversation's queue discipline.
type Manager struct {
	registry *registry.Registry
	engine   *decision.Engine
	recorder *recorder.Recorder
	notifier ports.LifecycleNotifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	cfg      Config

	mu    sync.Mutex
	convs map[string]*conversation

	reapOnce sync.Once
	done     chan struct{}
}

// Option configures the Manager.
type Option func(*Manager)

// WithNotifier registers a lifecycle notifier (use ports.Notifiers to fan
// out to several).
func WithNotifier(n ports.LifecycleNotifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger configures a logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(mx *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// WithConfig overrides the lifecycle defaults.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		if cfg.FailureThreshold > 0 {
			m.cfg.FailureThreshold = cfg.FailureThreshold
		}
		if cfg.AbandonAfter > 0 {
			m.cfg.AbandonAfter = cfg.AbandonAfter
		}
		if cfg.ReapInterval > 0 {
			m.cfg.ReapInterval = cfg.ReapInterval
		}
	}
}

// NewManager creates a conversation manager and starts its reaper.
func NewManager(reg *registry.Registry, eng *decision.Engine, rec *recorder.Recorder, opts ...Option) *Manager {
	m := &Manager{
		registry: reg,
		engine:   eng,
		recorder: rec,
		notifier: ports.NopNotifier{},
		logger:   logging.NewNop(),
		cfg:      DefaultConfig(),
		convs:    make(map[string]*conversation),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.reapLoop()
	return m
}

// Start creates the conversation on first contact and returns the opening
// prompt of the start state. Calling it for an existing in-progress
// conversation re-renders its current prompt.
func (m *Manager) Start(ctx context.Context, id string) (Reply, error) {
	conv, _ := m.lookupOrCreate(ctx, id)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	if conv.status.Terminal() {
		return Reply{}, fmt.Errorf("conversation %s: %w", id, domain.ErrConversationTerminated)
	}
	text, err := conv.state.RenderPrompt(conv.context.Snapshot())
	if err != nil {
		return Reply{}, err
	}
	conv.lastActivity = time.Now()
	return Reply{
		Text:     text,
		State:    conv.state.Name,
		Status:   conv.status,
		Sequence: conv.seq,
	}, nil
}

// Deliver runs one user input through the conversation, creating it on
// first contact. The call blocks until this input's own turn completes (or
// ctx expires), but never starts a second decision for the same
// conversation: concurrent arrivals are queued FIFO behind the one in
// flight.
func (m *Manager) Deliver(ctx context.Context, id, input string) (Reply, error) {
	conv, _ := m.lookupOrCreate(ctx, id)

	j := &job{input: input, reply: make(chan result, 1)}
	drainer, err := conv.enqueue(j)
	if err != nil {
		return Reply{}, fmt.Errorf("conversation %s: %w", id, err)
	}
	m.metrics.InputQueued()
	if drainer {
		go m.drain(context.WithoutCancel(ctx), conv)
	}

	select {
	case res := <-j.reply:
		return res.reply, res.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Snapshot returns a read-only view of a live conversation.
func (m *Manager) Snapshot(id string) (domain.ConversationSnapshot, error) {
	m.mu.Lock()
	conv, ok := m.convs[id]
	m.mu.Unlock()
	if !ok {
		return domain.ConversationSnapshot{}, fmt.Errorf("conversation %s: %w", id, domain.ErrConversationNotFound)
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return domain.ConversationSnapshot{
		ID:       conv.id,
		State:    conv.state.Name,
		Status:   conv.status,
		Sequence: conv.seq,
		Context:  conv.context.Snapshot(),
	}, nil
}

// Abandon marks a conversation abandoned and signals the transport layer.
func (m *Manager) Abandon(ctx context.Context, id string) error {
	m.mu.Lock()
	conv, ok := m.convs[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrConversationNotFound)
	}
	conv.mu.Lock()
	if conv.status.Terminal() {
		conv.mu.Unlock()
		return nil
	}
	conv.status = domain.StatusAbandoned
	conv.lastActivity = time.Now()
	state := conv.state.Name
	conv.mu.Unlock()

	m.finish(ctx, conv, domain.StatusAbandoned, state)
	return nil
}

// Len returns the number of conversations currently held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs)
}

// Close stops the reaper. Live conversations are left untouched.
func (m *Manager) Close() {
	m.reapOnce.Do(func() { close(m.done) })
}

func (m *Manager) lookupOrCreate(ctx context.Context, id string) (*conversation, bool) {
	m.mu.Lock()
	conv, ok := m.convs[id]
	if ok {
		m.mu.Unlock()
		return conv, false
	}
	start := m.registry.Start()
	conv = &conversation{
		id:           id,
		state:        start,
		context:      domain.NewContext(),
		status:       domain.StatusInProgress,
		lastActivity: time.Now(),
	}
	m.convs[id] = conv
	m.mu.Unlock()

	m.metrics.ConversationOpened()
	m.logger.Info("conversation started", "conversation_id", id, "state", start.Name)
	m.notifier.ConversationStarted(ctx, id, start.Name)
	return conv, true
}

// process runs exactly one input through the decision engine and applies
// the outcome atomically: state change, context merge and sequence bump all
// happen under the conversation lock, or not at all.
func (m *Manager) process(ctx context.Context, conv *conversation, input string) result {
	started := time.Now()

	conv.mu.Lock()
	state := conv.state
	conv.mu.Unlock()

	out := m.engine.Decide(ctx, decision.Request{
		ConversationID: conv.id,
		State:          state,
		Context:        conv.context,
		Input:          input,
	})

	target := state
	if !out.Failed() && out.NextState != state.Name {
		var err error
		target, err = m.registry.StateByName(out.NextState)
		if err != nil {
			// The engine validated the transition; a miss here is a
			// programming error, demoted to an error turn.
			out.Type = domain.TransitionError
			out.Err = err
			target = state
		}
	}

	conv.mu.Lock()
	from := conv.state.Name
	failed := out.Failed()
	var snapshot map[string]any

	if !failed {
		snap, err := conv.context.ApplyUpdates(out.Delta)
		if err != nil {
			failed = true
			out.Type = domain.TransitionError
			out.Err = err
			out.Delta = nil
		} else {
			snapshot = snap
		}
	}
	if failed {
		conv.errStreak++
		snapshot = conv.context.Snapshot()
		if conv.errStreak >= m.cfg.FailureThreshold {
			conv.status = domain.StatusError
		}
	} else {
		conv.errStreak = 0
		conv.state = target
		if conv.state.Terminal() {
			conv.status = domain.StatusCompleted
		}
	}
	conv.seq++
	seq := conv.seq
	status := conv.status
	stateName := conv.state.Name
	conv.lastActivity = time.Now()
	conv.mu.Unlock()

	t := domain.Transition{
		ConversationID:  conv.id,
		SequenceNumber:  seq,
		FromState:       from,
		ToState:         stateName,
		Type:            out.Type,
		UserInput:       input,
		AgentResponse:   out.Response,
		ContextSnapshot: snapshot,
		ContextDelta:    out.Delta,
		Usage:           out.Usage,
		ProcessingTime:  time.Since(started),
		Timestamp:       time.Now().UTC(),
	}
	m.recorder.Record(t)
	m.metrics.TransitionObserved(out.Type)

	if out.Err != nil {
		m.logger.Warn("turn ended in error transition",
			"conversation_id", conv.id,
			"state", from,
			"sequence", seq,
			"err", out.Err,
		)
	} else {
		m.logger.Debug("transition applied",
			"conversation_id", conv.id,
			"from", from,
			"to", stateName,
			"type", out.Type,
			"sequence", seq,
		)
	}

	if status.Terminal() {
		m.finish(ctx, conv, status, stateName)
	}

	return result{reply: Reply{
		Text:     out.Response,
		State:    stateName,
		Status:   status,
		Sequence: seq,
		Type:     out.Type,
	}}
}

// finish emits the lifecycle signal exactly once per conversation. The
// entry stays in the table, rejecting input, until the reaper removes it.
func (m *Manager) finish(ctx context.Context, conv *conversation, status domain.Status, finalState string) {
	conv.mu.Lock()
	if conv.ended {
		conv.mu.Unlock()
		return
	}
	conv.ended = true
	conv.mu.Unlock()

	m.metrics.ConversationClosed()
	m.logger.Info("conversation ended",
		"conversation_id", conv.id,
		"status", status,
		"state", finalState,
	)
	m.notifier.ConversationEnded(ctx, conv.id, status, finalState)
}

func (m *Manager) reapLoop() {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

// reap abandons idle conversations and removes terminal entries whose
// retention window passed.
func (m *Manager) reap() {
	now := time.Now()
	m.mu.Lock()
	stale := make([]*conversation, 0)
	for _, conv := range m.convs {
		stale = append(stale, conv)
	}
	m.mu.Unlock()

	for _, conv := range stale {
		conv.mu.Lock()
		idle := now.Sub(conv.lastActivity)
		terminal := conv.status.Terminal()
		busy := conv.processing || len(conv.pending) > 0
		if idle < m.cfg.AbandonAfter || busy {
			conv.mu.Unlock()
			continue
		}
		if !terminal {
			conv.status = domain.StatusAbandoned
		}
		state := conv.state.Name
		status := conv.status
		conv.mu.Unlock()

		m.finish(context.Background(), conv, status, state)

		m.mu.Lock()
		delete(m.convs, conv.id)
		m.mu.Unlock()
		m.logger.Info("conversation reaped", "conversation_id", conv.id, "status", status)
	}
}
