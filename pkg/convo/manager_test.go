package convo_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/internal/adapters/memory"
	"github.com/warrenhq/warren/pkg/convo"
	"github.com/warrenhq/warren/pkg/decision"
	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/recorder"
	"github.com/warrenhq/warren/pkg/registry"
)

const testFlow = `
start: GREETING
states:
  - name: GREETING
    prompt: "Hello! How can I help you today?"
    next: [PET_SURRENDER]
  - name: PET_SURRENDER
    required: [animal_type, surrender_reason]
    prompt: "Why are you surrendering your pet?"
    next: [DONE]
  - name: DONE
    prompt: "Goodbye."
`

// echoModel stays put and echoes the input, with optional per-call hooks.
type echoModel struct {
	mu     sync.Mutex
	inputs []string
	fn     func(req domain.DecisionRequest) (*domain.ModelDecision, error)
}

func (m *echoModel) Decide(ctx context.Context, req domain.DecisionRequest) (*domain.ModelDecision, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, req.UserInput)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(req)
	}
	return &domain.ModelDecision{
		NextState:  domain.NextStateStay,
		Response:   "echo: " + req.UserInput,
		Confidence: 1,
	}, nil
}

func (m *echoModel) Respond(ctx context.Context, req domain.ResponseRequest) (*domain.ModelReply, error) {
	return &domain.ModelReply{Response: req.StatePrompt}, nil
}

func (m *echoModel) seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inputs...)
}

type fixture struct {
	manager *convo.Manager
	sink    *memory.Sink
	rec     *recorder.Recorder
	model   *echoModel
}

func newFixture(t *testing.T, opts ...convo.Option) *fixture {
	t.Helper()
	reg, err := registry.Load(strings.NewReader(testFlow))
	require.NoError(t, err)

	model := &echoModel{}
	sink := memory.NewSink()
	rec := recorder.New(sink)
	eng := decision.NewEngine(reg, model)
	mgr := convo.NewManager(reg, eng, rec, opts...)

	t.Cleanup(func() {
		mgr.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rec.Close(ctx)
	})
	return &fixture{manager: mgr, sink: sink, rec: rec, model: model}
}

func (f *fixture) transitions(t *testing.T, id string) []domain.Transition {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.rec.Close(ctx)) // drain before reading
	got, err := f.sink.Transitions(ctx, id)
	require.NoError(t, err)
	return got
}

func TestManager_StartReturnsGreeting(t *testing.T) {
	f := newFixture(t)

	reply, err := f.manager.Start(context.Background(), "call-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you today?", reply.Text)
	assert.Equal(t, "GREETING", reply.State)
	assert.Equal(t, domain.StatusInProgress, reply.Status)
	assert.Equal(t, uint64(0), reply.Sequence)
	assert.Equal(t, 1, f.manager.Len())
}

func TestManager_DeliverCreatesOnFirstContact(t *testing.T) {
	f := newFixture(t)

	reply, err := f.manager.Deliver(context.Background(), "call-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply.Text)
	assert.Equal(t, uint64(1), reply.Sequence)
	assert.Equal(t, domain.TransitionContinue, reply.Type)
}

func TestManager_FIFOOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Block the first turn so the rest queue behind it.
	release := make(chan struct{})
	var once sync.Once
	f.model.fn = func(req domain.DecisionRequest) (*domain.ModelDecision, error) {
		once.Do(func() { <-release })
		return &domain.ModelDecision{
			NextState:  domain.NextStateStay,
			Response:   "echo: " + req.UserInput,
			Confidence: 1,
		}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.manager.Deliver(ctx, "call-1", "first")
		assert.NoError(t, err)
	}()

	// Wait for "first" to occupy the conversation.
	require.Eventually(t, func() bool {
		return len(f.model.seen()) == 1
	}, time.Second, 5*time.Millisecond)

	for _, input := range []string{"second", "third", "fourth"} {
		wg.Add(1)
		go func(in string) {
			defer wg.Done()
			_, err := f.manager.Deliver(ctx, "call-1", in)
			assert.NoError(t, err)
		}(input)
		// Stagger arrivals so the queue order is well defined.
		time.Sleep(20 * time.Millisecond)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, []string{"first", "second", "third", "fourth"}, f.model.seen())
}

func TestManager_SequenceContiguousUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.manager.Deliver(ctx, "call-1", fmt.Sprintf("input-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got := f.transitions(t, "call-1")
	require.Len(t, got, n)
	for i, tr := range got {
		assert.Equal(t, uint64(i+1), tr.SequenceNumber, "sequence numbers must be contiguous")
	}
}

func TestManager_TerminalRejectsInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.model.fn = func(req domain.DecisionRequest) (*domain.ModelDecision, error) {
		next := map[string]string{"GREETING": "PET_SURRENDER", "PET_SURRENDER": "DONE"}[req.State]
		return &domain.ModelDecision{NextState: next, Response: "moving on", Confidence: 1}, nil
	}

	_, err := f.manager.Deliver(ctx, "call-1", "surrender")
	require.NoError(t, err)
	reply, err := f.manager.Deliver(ctx, "call-1", "because")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, reply.Status)
	assert.Equal(t, "DONE", reply.State)

	_, err = f.manager.Deliver(ctx, "call-1", "one more thing")
	assert.ErrorIs(t, err, domain.ErrConversationTerminated)

	_, err = f.manager.Start(ctx, "call-1")
	assert.ErrorIs(t, err, domain.ErrConversationTerminated)

	// The entry stays visible until reaped.
	snap, err := f.manager.Snapshot("call-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, snap.Status)
}

func TestManager_ErrorStreakEscalates(t *testing.T) {
	f := newFixture(t, convo.WithConfig(convo.Config{FailureThreshold: 3}))
	ctx := context.Background()

	f.model.fn = func(req domain.DecisionRequest) (*domain.ModelDecision, error) {
		return nil, domain.NewCollaboratorError("model", fmt.Errorf("down"))
	}

	for i := 1; i <= 2; i++ {
		reply, err := f.manager.Deliver(ctx, "call-1", "hello?")
		require.NoError(t, err)
		assert.Equal(t, domain.TransitionError, reply.Type)
		assert.Equal(t, domain.StatusInProgress, reply.Status)
		// The caller still gets a usable re-prompt.
		assert.NotEmpty(t, reply.Text)
	}

	reply, err := f.manager.Deliver(ctx, "call-1", "hello?")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, reply.Status)

	_, err = f.manager.Deliver(ctx, "call-1", "anyone there?")
	assert.ErrorIs(t, err, domain.ErrConversationTerminated)

	got := f.transitions(t, "call-1")
	require.Len(t, got, 3)
	for _, tr := range got {
		assert.Equal(t, domain.TransitionError, tr.Type)
		assert.Equal(t, tr.FromState, tr.ToState)
	}
}

func TestManager_SuccessResetsErrorStreak(t *testing.T) {
	f := newFixture(t, convo.WithConfig(convo.Config{FailureThreshold: 2}))
	ctx := context.Background()

	fail := true
	f.model.fn = func(req domain.DecisionRequest) (*domain.ModelDecision, error) {
		if fail {
			return nil, domain.NewCollaboratorError("model", fmt.Errorf("down"))
		}
		return &domain.ModelDecision{NextState: domain.NextStateStay, Response: "ok", Confidence: 1}, nil
	}

	_, err := f.manager.Deliver(ctx, "call-1", "a")
	require.NoError(t, err)

	fail = false
	reply, err := f.manager.Deliver(ctx, "call-1", "b")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, reply.Status)

	fail = true
	reply, err = f.manager.Deliver(ctx, "call-1", "c")
	require.NoError(t, err)
	// One error after a success is below the threshold again.
	assert.Equal(t, domain.StatusInProgress, reply.Status)
}

func TestManager_InvalidDeltaBecomesErrorTurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.model.fn = func(req domain.DecisionRequest) (*domain.ModelDecision, error) {
		return &domain.ModelDecision{
			Updates:    map[string]any{"notes": strings.Repeat("x", domain.MaxContextValueBytes+1)},
			NextState:  "PET_SURRENDER",
			Response:   "ok",
			Confidence: 1,
		}, nil
	}

	reply, err := f.manager.Deliver(ctx, "call-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, domain.TransitionError, reply.Type)
	assert.Equal(t, "GREETING", reply.State, "an invalid delta must not move the state")

	snap, err := f.manager.Snapshot("call-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Context)
}

func TestManager_Abandon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Deliver(ctx, "call-1", "hello")
	require.NoError(t, err)

	require.NoError(t, f.manager.Abandon(ctx, "call-1"))

	snap, err := f.manager.Snapshot("call-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, snap.Status)

	_, err = f.manager.Deliver(ctx, "call-1", "still there?")
	assert.ErrorIs(t, err, domain.ErrConversationTerminated)

	// Abandoning twice is a no-op.
	assert.NoError(t, f.manager.Abandon(ctx, "call-1"))

	assert.ErrorIs(t, f.manager.Abandon(ctx, "nope"), domain.ErrConversationNotFound)
}

func TestManager_ReaperAbandonsIdle(t *testing.T) {
	f := newFixture(t, convo.WithConfig(convo.Config{
		AbandonAfter: 30 * time.Millisecond,
		ReapInterval: 10 * time.Millisecond,
	}))
	ctx := context.Background()

	_, err := f.manager.Deliver(ctx, "call-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, f.manager.Len())

	require.Eventually(t, func() bool {
		return f.manager.Len() == 0
	}, time.Second, 10*time.Millisecond, "idle conversation should be reaped")

	_, err = f.manager.Snapshot("call-1")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestManager_TransitionsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Deliver(ctx, "call-1", "I need to surrender my dog")
	require.NoError(t, err)

	got := f.transitions(t, "call-1")
	require.Len(t, got, 1)
	tr := got[0]
	assert.Equal(t, "call-1", tr.ConversationID)
	assert.Equal(t, uint64(1), tr.SequenceNumber)
	assert.Equal(t, "GREETING", tr.FromState)
	assert.Equal(t, "GREETING", tr.ToState)
	assert.Equal(t, domain.TransitionContinue, tr.Type)
	assert.Equal(t, "I need to surrender my dog", tr.UserInput)
	assert.Equal(t, "echo: I need to surrender my dog", tr.AgentResponse)
	assert.False(t, tr.Timestamp.IsZero())
}
