package recorder_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/internal/adapters/memory"
	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/recorder"
)

func tx(seq uint64) domain.Transition {
	return domain.Transition{
		ConversationID: "call-1",
		SequenceNumber: seq,
		FromState:      "GREETING",
		ToState:        "GREETING",
		Type:           domain.TransitionContinue,
		Timestamp:      time.Now().UTC(),
	}
}

func TestRecorder_DeliversToSink(t *testing.T) {
	sink := memory.NewSink()
	rec := recorder.New(sink)

	rec.Record(tx(1))
	rec.Record(tx(2))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))

	got, err := sink.Transitions(ctx, "call-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].SequenceNumber)
	assert.Equal(t, uint64(2), got[1].SequenceNumber)
}

// flakySink fails the first failures calls, then delegates.
type flakySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	inner    *memory.Sink
}

func (s *flakySink) Record(ctx context.Context, t domain.Transition) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("transient write failure")
	}
	return s.inner.Record(ctx, t)
}

func TestRecorder_RetriesTransientFailures(t *testing.T) {
	sink := &flakySink{failures: 2, inner: memory.NewSink()}
	rec := recorder.New(sink, recorder.WithRetry(3, time.Millisecond))

	rec.Record(tx(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))

	got, err := sink.inner.Transitions(ctx, "call-1")
	require.NoError(t, err)
	assert.Len(t, got, 1, "third attempt should have landed")
	assert.Equal(t, 3, sink.calls)
}

func TestRecorder_GivesUpAfterRetries(t *testing.T) {
	sink := &flakySink{failures: 10, inner: memory.NewSink()}
	rec := recorder.New(sink, recorder.WithRetry(2, time.Millisecond))

	rec.Record(tx(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))

	got, err := sink.inner.Transitions(ctx, "call-1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 2, sink.calls)
}

// blockingSink parks every Record until released and signals entry.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	inner   *memory.Sink
}

func newBlockingSink() *blockingSink {
	return &blockingSink{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
		inner:   memory.NewSink(),
	}
}

func (s *blockingSink) Record(ctx context.Context, t domain.Transition) error {
	s.entered <- struct{}{}
	<-s.release
	return s.inner.Record(ctx, t)
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	sink := newBlockingSink()
	rec := recorder.New(sink, recorder.WithBuffer(1))

	// Occupy the worker, then fill the buffer; the third has nowhere to go.
	rec.Record(tx(1))
	<-sink.entered
	rec.Record(tx(2))
	rec.Record(tx(3))

	close(sink.release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))

	got, err := sink.inner.Transitions(ctx, "call-1")
	require.NoError(t, err)
	require.Len(t, got, 2, "the overflow transition must be dropped, not queued")
	assert.Equal(t, uint64(1), got[0].SequenceNumber)
	assert.Equal(t, uint64(2), got[1].SequenceNumber)
}

func TestRecorder_CloseHonorsContext(t *testing.T) {
	sink := newBlockingSink()
	rec := recorder.New(sink)

	rec.Record(tx(1))
	<-sink.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rec.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(sink.release)
}
