package convo

import (
	"context"
	"sync"
	"time"

	"github.com/warrenhq/warren/pkg/domain"
)

// job is one queued input awaiting its turn through the decision engine.
type job struct {
	input string
	reply chan result
}

type result struct {
	reply Reply
	err   error
}

// conversation is the engine-side record of one live call/session. All
// mutable fields are guarded by mu; the context bag is additionally only
// ever touched by the active drainer, which the processing flag makes
// unique.
type conversation struct {
	id string

	mu           sync.Mutex
	state        domain.StateDef
	context      *domain.Context
	seq          uint64
	status       domain.Status
	errStreak    int
	processing   bool
	pending      []*job
	ended        bool
	lastActivity time.Time
}

// enqueue appends a job and reports whether the caller must become the
// drainer. Terminal conversations reject input outright.
func (c *conversation) enqueue(j *job) (drainer bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		return false, domain.ErrConversationTerminated
	}
	c.pending = append(c.pending, j)
	if c.processing {
		return false, nil
	}
	c.processing = true
	return true, nil
}

// next pops the oldest pending job. When the backlog is empty (or the
// conversation went terminal) it releases the processing flag and, in the
// terminal case, returns the flushed jobs so they can be failed.
func (c *conversation) next() (j *job, flushed []*job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		flushed = c.pending
		c.pending = nil
		c.processing = false
		return nil, flushed
	}
	if len(c.pending) == 0 {
		c.processing = false
		return nil, nil
	}
	j = c.pending[0]
	c.pending = c.pending[1:]
	return j, nil
}

// drain processes the backlog one job at a time, in arrival order. It runs
// on its own goroutine, detached from any single caller's context, so a
// canceled caller never starves the inputs queued behind it.
func (m *Manager) drain(ctx context.Context, conv *conversation) {
	for {
		j, flushed := conv.next()
		for _, f := range flushed {
			f.reply <- result{err: domain.ErrConversationTerminated}
			m.metrics.InputDone()
		}
		if j == nil {
			return
		}
		res := m.process(ctx, conv, j.input)
		j.reply <- res
		m.metrics.InputDone()
	}
}
