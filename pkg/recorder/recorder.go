// Package recorder hands completed transitions to the analytics sink
// without blocking the conversation's response path. Delivery is
// fire-and-forget from the caller's point of view, but failures are never
// silently lost: they are retried with backoff and logged when exhausted.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warrenhq/warren/internal/logging"
	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/observability"
	"github.com/warrenhq/warren/pkg/ports"
)

const (
	defaultBuffer   = 256
	defaultAttempts = 3
	defaultBackoff  = 250 * time.Millisecond
)

// Recorder buffers transitions and delivers them to a TransitionSink on a
// background worker.
type Recorder struct {
	sink     ports.TransitionSink
	ch       chan domain.Transition
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithBuffer sets the channel capacity between callers and the worker.
func WithBuffer(n int) Option {
	return func(r *Recorder) { r.ch = make(chan domain.Transition, n) }
}

// WithRetry sets delivery attempts per transition and the backoff between
// them.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *Recorder) {
		r.attempts = attempts
		r.backoff = backoff
	}
}

// WithLogger configures a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// New creates a recorder and starts its delivery worker.
func New(sink ports.TransitionSink, opts ...Option) *Recorder {
	r := &Recorder{
		sink:     sink,
		ch:       make(chan domain.Transition, defaultBuffer),
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record enqueues a transition without blocking. When the buffer is full the
// transition is dropped and the loss is logged; a recording loss never fails
// the conversation.
func (r *Recorder) Record(t domain.Transition) {
	select {
	case r.ch <- t:
	default:
		r.metrics.RecordDropped()
		r.logger.Error("recorder buffer full, transition dropped",
			"conversation_id", t.ConversationID,
			"sequence", t.SequenceNumber,
		)
	}
}

// Close stops intake and waits for the worker to drain the buffer, or for
// ctx to expire.
func (r *Recorder) Close(ctx context.Context) error {
	r.closeOnce.Do(func() { close(r.ch) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for t := range r.ch {
		r.deliver(t)
	}
}

// deliver retries with linear backoff. The sink is idempotent on
// (conversation_id, sequence_number), so re-sending after a partial failure
// is safe.
func (r *Recorder) deliver(t domain.Transition) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := r.sink.Record(ctx, t)
		cancel()
		if err == nil {
			return
		}
		lastErr = err
		r.logger.Warn("transition delivery failed",
			"conversation_id", t.ConversationID,
			"sequence", t.SequenceNumber,
			"attempt", attempt,
			"err", err,
		)
		if attempt < r.attempts {
			time.Sleep(time.Duration(attempt) * r.backoff)
		}
	}
	r.metrics.RecordFailed()
	r.logger.Error("transition delivery exhausted retries",
		"conversation_id", t.ConversationID,
		"sequence", t.SequenceNumber,
		"err", lastErr,
	)
}
