/*
Package warren is a conversation state engine for animal control intake
lines. It drives a caller through a declared flow of states, delegating
field extraction and phrasing to a language-model collaborator while keeping
every transition decision validated, ordered and recorded.

The engine follows a hexagonal layout: pkg/domain holds the entities,
pkg/ports the collaborator interfaces, and internal/adapters the concrete
model clients, sinks and transports. This root package wires the pieces into
one App for embedders; the warren binary under cmd/warren is a thin shell
around it.

# Usage

	app, err := warren.New("flows/animal_control.yaml")
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close(context.Background())

	reply, err := app.Deliver(ctx, "call-42", "I need to surrender my dog")

With no options the App runs on the scripted model client and an in-memory
sink, which is enough for demos and tests. Production wiring swaps in the
Anthropic client and a Redis or Supabase sink.
*/
package warren

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/warrenhq/warren/internal/adapters/memory"
	"github.com/warrenhq/warren/internal/adapters/scripted"
	"github.com/warrenhq/warren/internal/logging"
	"github.com/warrenhq/warren/pkg/convo"
	"github.com/warrenhq/warren/pkg/decision"
	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/observability"
	"github.com/warrenhq/warren/pkg/ports"
	"github.com/warrenhq/warren/pkg/recorder"
	"github.com/warrenhq/warren/pkg/registry"
)

// Version is the library version reported by the CLI and the adapters.
const Version = "0.1.0"

// App is the assembled conversation engine.
type App struct {
	Registry *registry.Registry
	Engine   *decision.Engine
	Recorder *recorder.Recorder
	Manager  *convo.Manager
	Metrics  *observability.Metrics

	model    ports.ModelClient
	sink     ports.TransitionSink
	notifier ports.LifecycleNotifier
	logger   *slog.Logger
	promReg  *prometheus.Registry

	engineOpts []decision.Option
	convoOpts  []convo.Option
}

// Option configures the App.
type Option func(*App)

// WithModelClient sets the language-model collaborator. Defaults to the
// scripted client with the stock rules.
func WithModelClient(m ports.ModelClient) Option {
	return func(a *App) { a.model = m }
}

// WithSink sets the transition sink. Defaults to the in-memory sink.
func WithSink(s ports.TransitionSink) Option {
	return func(a *App) { a.sink = s }
}

// WithNotifier registers a lifecycle notifier.
func WithNotifier(n ports.LifecycleNotifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithMetricsRegistry enables prometheus instrumentation on the given
// registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.promReg = reg }
}

// WithPolicy overrides the optimized-path acceptance policy.
func WithPolicy(p decision.Policy) Option {
	return func(a *App) { a.engineOpts = append(a.engineOpts, decision.WithPolicy(p)) }
}

// WithEngineOptions appends decision engine options.
func WithEngineOptions(opts ...decision.Option) Option {
	return func(a *App) { a.engineOpts = append(a.engineOpts, opts...) }
}

// WithConversationConfig overrides the conversation lifecycle defaults.
func WithConversationConfig(cfg convo.Config) Option {
	return func(a *App) { a.convoOpts = append(a.convoOpts, convo.WithConfig(cfg)) }
}

// New loads the flow at flowPath and assembles the engine.
func New(flowPath string, opts ...Option) (*App, error) {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		app.logger = logging.NewNop()
	}
	if app.model == nil {
		app.model = scripted.New(scripted.DefaultRules()...)
	}
	if app.sink == nil {
		app.sink = memory.NewSink()
	}
	if app.promReg != nil {
		app.Metrics = observability.New(app.promReg)
	}

	reg, err := registry.LoadFile(flowPath)
	if err != nil {
		return nil, err
	}
	app.Registry = reg

	engineOpts := append([]decision.Option{
		decision.WithLogger(app.logger),
		decision.WithMetrics(app.Metrics),
	}, app.engineOpts...)
	app.Engine = decision.NewEngine(reg, app.model, engineOpts...)

	app.Recorder = recorder.New(app.sink,
		recorder.WithLogger(app.logger),
		recorder.WithMetrics(app.Metrics),
	)

	convoOpts := append([]convo.Option{
		convo.WithLogger(app.logger),
		convo.WithMetrics(app.Metrics),
	}, app.convoOpts...)
	if app.notifier != nil {
		convoOpts = append(convoOpts, convo.WithNotifier(app.notifier))
	}
	app.Manager = convo.NewManager(reg, app.Engine, app.Recorder, convoOpts...)

	return app, nil
}

// Start opens a conversation and returns the greeting.
func (a *App) Start(ctx context.Context, id string) (convo.Reply, error) {
	return a.Manager.Start(ctx, id)
}

// Deliver runs one caller input through its conversation.
func (a *App) Deliver(ctx context.Context, id, input string) (convo.Reply, error) {
	return a.Manager.Deliver(ctx, id, input)
}

// Snapshot returns a read-only view of a conversation.
func (a *App) Snapshot(id string) (domain.ConversationSnapshot, error) {
	return a.Manager.Snapshot(id)
}

// Abandon marks a conversation abandoned.
func (a *App) Abandon(ctx context.Context, id string) error {
	return a.Manager.Abandon(ctx, id)
}

// Close stops the reaper and drains the recorder.
func (a *App) Close(ctx context.Context) error {
	a.Manager.Close()
	return a.Recorder.Close(ctx)
}
