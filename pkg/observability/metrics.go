// Package observability exposes prometheus instrumentation for the conversation
// engine. All methods are nil-safe so the core can run without a registry.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/warrenhq/warren/pkg/domain"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	transitions         *prometheus.CounterVec
	modelCalls          *prometheus.CounterVec
	modelLatency        prometheus.Histogram
	activeConversations prometheus.Gauge
	queueDepth          prometheus.Gauge
	recorderDrops       prometheus.Counter
	recorderFailures    prometheus.Counter
}

// New registers the engine collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warren",
			Name:      "transitions_total",
			Help:      "Completed transitions by type.",
		}, []string{"type"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warren",
			Name:      "model_calls_total",
			Help:      "Model collaborator calls by path and outcome.",
		}, []string{"path", "outcome"}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "warren",
			Name:      "model_latency_seconds",
			Help:      "Model collaborator call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		activeConversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "warren",
			Name:      "active_conversations",
			Help:      "Conversations currently held by the manager.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "warren",
			Name:      "queue_depth",
			Help:      "Inputs waiting in per-conversation backlogs.",
		}),
		recorderDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warren",
			Name:      "recorder_dropped_total",
			Help:      "Transitions dropped because the recorder buffer was full.",
		}),
		recorderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warren",
			Name:      "recorder_failures_total",
			Help:      "Transition deliveries that exhausted their retries.",
		}),
	}
	reg.MustRegister(
		m.transitions, m.modelCalls, m.modelLatency,
		m.activeConversations, m.queueDepth,
		m.recorderDrops, m.recorderFailures,
	)
	return m
}

// TransitionObserved counts one completed transition.
func (m *Metrics) TransitionObserved(t domain.TransitionType) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(t)).Inc()
}

// ModelCall records one collaborator call.
func (m *Metrics) ModelCall(path string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.modelCalls.WithLabelValues(path, outcome).Inc()
	m.modelLatency.Observe(elapsed.Seconds())
}

// ConversationOpened increments the live-conversation gauge.
func (m *Metrics) ConversationOpened() {
	if m == nil {
		return
	}
	m.activeConversations.Inc()
}

// ConversationClosed decrements the live-conversation gauge.
func (m *Metrics) ConversationClosed() {
	if m == nil {
		return
	}
	m.activeConversations.Dec()
}

// InputQueued increments the backlog gauge.
func (m *Metrics) InputQueued() {
	if m == nil {
		return
	}
	m.queueDepth.Inc()
}

// InputDone decrements the backlog gauge.
func (m *Metrics) InputDone() {
	if m == nil {
		return
	}
	m.queueDepth.Dec()
}

// RecordDropped counts a transition lost to a full recorder buffer.
func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.recorderDrops.Inc()
}

// RecordFailed counts a delivery that exhausted its retries.
func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.recorderFailures.Inc()
}
