package decision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/warrenhq/warren/internal/logging"
	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/observability"
	"github.com/warrenhq/warren/pkg/ports"
	"github.com/warrenhq/warren/pkg/registry"
)

// FallbackResponse is the static re-prompt returned when the collaborator
// fails outright and no deterministic prompt can be rendered.
const FallbackResponse = "I'm sorry, I didn't catch that. Could you say that again?"

// DefaultModelTimeout bounds a single model-collaborator call.
const DefaultModelTimeout = 15 * time.Second

// Request carries one turn into the engine. The context is read-only here;
// the session queue applies the resulting delta.
type Request struct {
	ConversationID string
	State          domain.StateDef
	Context        *domain.Context
	Input          string
}

// Engine sequences the model-collaborator calls for a turn.
type Engine struct {
	registry *registry.Registry
	model    ports.ModelClient
	policy   Policy
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures the Engine.
type Option func(*Engine)

// WithPolicy overrides the optimized-path acceptance policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithTimeout bounds each model-collaborator call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger configures a logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a decision engine backed by the given flow registry and
// model collaborator.
func NewEngine(reg *registry.Registry, model ports.ModelClient, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		model:    model,
		policy:   DefaultPolicy(DefaultMinConfidence),
		timeout:  DefaultModelTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide runs one turn. It never returns an error: collaborator failures
// and illegal proposals are folded into an error Outcome so the
// conversation always gets a usable response.
func (e *Engine) Decide(ctx context.Context, req Request) Outcome {
	d, err := e.callDecide(ctx, req, true)
	if err != nil {
		e.logger.Warn("combined model call failed, taking fallback path",
			"conversation_id", req.ConversationID,
			"state", req.State.Name,
			"err", err,
		)
		return e.fallback(ctx, req, domain.Usage{})
	}

	target, verr := e.resolveTarget(req.State, d)
	if verr != nil {
		return e.rejectTransition(req, d, verr)
	}

	if !e.policy(d) {
		e.logger.Debug("optimized decision rejected by policy, taking fallback path",
			"conversation_id", req.ConversationID,
			"state", req.State.Name,
			"confidence", d.Confidence,
		)
		return e.fallback(ctx, req, d.Usage)
	}

	typ := domain.TransitionOptimized
	if target.Name == req.State.Name {
		typ = domain.TransitionContinue
	}
	return Outcome{
		Type:      typ,
		NextState: target.Name,
		Delta:     d.Updates,
		Response:  d.Response,
		Usage:     d.Usage,
	}
}

// fallback runs the two-call path: decide only, then voice the entry of the
// new state when the state actually changed. Staying put re-uses the current
// state's own prompt to avoid a useless second call.
func (e *Engine) fallback(ctx context.Context, req Request, spent domain.Usage) Outcome {
	d, err := e.callDecide(ctx, req, false)
	if err != nil {
		return e.errorOutcome(req, mergeUsage(spent, domain.Usage{}), err)
	}
	usage := mergeUsage(spent, d.Usage)

	target, verr := e.resolveTarget(req.State, d)
	if verr != nil {
		out := e.rejectTransition(req, d, verr)
		out.Usage = mergeUsage(spent, out.Usage)
		return out
	}

	merged := mergedSnapshot(req.Context, d.Updates)

	if target.Name == req.State.Name {
		response, rerr := req.State.RenderPrompt(merged)
		if rerr != nil {
			return e.errorOutcome(req, usage, rerr)
		}
		return Outcome{
			Type:      domain.TransitionContinue,
			NextState: req.State.Name,
			Delta:     d.Updates,
			Response:  response,
			Usage:     usage,
		}
	}

	prompt, rerr := target.RenderPrompt(merged)
	if rerr != nil {
		return e.errorOutcome(req, usage, rerr)
	}
	reply, err := e.callRespond(ctx, domain.ResponseRequest{
		ConversationID: req.ConversationID,
		State:          target.Name,
		PreviousState:  req.State.Name,
		StatePrompt:    prompt,
		Context:        merged,
	})
	if err != nil {
		return e.errorOutcome(req, usage, err)
	}
	return Outcome{
		Type:      domain.TransitionFallback,
		NextState: target.Name,
		Delta:     d.Updates,
		Response:  reply.Response,
		Usage:     mergeUsage(usage, reply.Usage),
	}
}

// resolveTarget validates the model's proposal against the flow topology.
func (e *Engine) resolveTarget(current domain.StateDef, d *domain.ModelDecision) (domain.StateDef, error) {
	if d.Stay() {
		return current, nil
	}
	if d.NextState == current.Name {
		return current, nil
	}
	target, err := e.registry.StateByName(d.NextState)
	if err != nil {
		return domain.StateDef{}, fmt.Errorf("%w: proposed state %s does not exist",
			domain.ErrInvalidTransition, d.NextState)
	}
	if !current.CanTransitionTo(d.NextState) {
		return domain.StateDef{}, fmt.Errorf("%w: %s -> %s not allowed",
			domain.ErrInvalidTransition, current.Name, d.NextState)
	}
	return target, nil
}

// rejectTransition keeps the conversation in place after an illegal
// proposal, re-prompting deterministically from the current state.
func (e *Engine) rejectTransition(req Request, d *domain.ModelDecision, cause error) Outcome {
	e.logger.Warn("model proposed illegal transition",
		"conversation_id", req.ConversationID,
		"state", req.State.Name,
		"proposed", d.NextState,
		"err", cause,
	)
	out := e.errorOutcome(req, d.Usage, cause)
	return out
}

// errorOutcome builds the conservative turn: no state change, no context
// change, an in-character re-prompt for the user.
func (e *Engine) errorOutcome(req Request, usage domain.Usage, cause error) Outcome {
	response, rerr := req.State.RenderPrompt(req.Context.Snapshot())
	if rerr != nil || response == "" {
		response = FallbackResponse
	}
	return Outcome{
		Type:      domain.TransitionError,
		NextState: req.State.Name,
		Response:  response,
		Usage:     usage,
		Err:       cause,
	}
}

func (e *Engine) callDecide(ctx context.Context, req Request, compose bool) (*domain.ModelDecision, error) {
	dreq, err := e.buildRequest(req, compose)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	path := "decide"
	if compose {
		path = "combined"
	}
	started := time.Now()
	d, err := e.model.Decide(cctx, dreq)
	elapsed := time.Since(started)
	e.metrics.ModelCall(path, err, elapsed)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.NewCollaboratorError("model", fmt.Errorf("empty decision"))
	}
	d.Usage.Latency = elapsed
	return d, nil
}

func (e *Engine) callRespond(ctx context.Context, rreq domain.ResponseRequest) (*domain.ModelReply, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	reply, err := e.model.Respond(cctx, rreq)
	elapsed := time.Since(started)
	e.metrics.ModelCall("respond", err, elapsed)
	if err != nil {
		return nil, err
	}
	if reply == nil || reply.Response == "" {
		return nil, domain.NewCollaboratorError("model", fmt.Errorf("empty response"))
	}
	reply.Usage.Latency = elapsed
	return reply, nil
}

// buildRequest assembles the structured model request: the current state's
// rendered prompt, the context snapshot, and every candidate next state with
// the fields it still needs.
func (e *Engine) buildRequest(req Request, compose bool) (domain.DecisionRequest, error) {
	snapshot := req.Context.Snapshot()
	prompt, err := req.State.RenderPrompt(snapshot)
	if err != nil {
		return domain.DecisionRequest{}, err
	}

	candidates := make([]domain.CandidateState, 0, len(req.State.AllowedNext)+1)
	candidates = append(candidates, domain.CandidateState{
		Name:           req.State.Name,
		RequiredFields: req.State.RequiredFields,
		MissingFields:  req.Context.MissingRequired(req.State),
	})
	for _, name := range req.State.AllowedNext {
		next, err := e.registry.StateByName(name)
		if err != nil {
			return domain.DecisionRequest{}, err
		}
		candidates = append(candidates, domain.CandidateState{
			Name:           next.Name,
			RequiredFields: next.RequiredFields,
			MissingFields:  req.Context.MissingRequired(next),
		})
	}

	return domain.DecisionRequest{
		ConversationID:  req.ConversationID,
		State:           req.State.Name,
		StatePrompt:     prompt,
		Context:         snapshot,
		UserInput:       req.Input,
		Candidates:      candidates,
		ComposeResponse: compose,
	}, nil
}

func mergedSnapshot(c *domain.Context, delta map[string]any) map[string]any {
	snap := c.Snapshot()
	for k, v := range delta {
		snap[k] = v
	}
	return snap
}
