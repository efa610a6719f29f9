package ports

import (
	"context"

	"github.com/warrenhq/warren/pkg/domain"
)

// LifecycleNotifier receives conversation lifecycle signals so the transport
// layer can open and close the underlying call or session. Implementations
// must not block the conversation's response path.
type LifecycleNotifier interface {
	// ConversationStarted fires when a conversation is created on first
	// contact, before its first input is processed.
	ConversationStarted(ctx context.Context, id string, initialState string)

	// ConversationEnded fires once when a conversation reaches a terminal
	// status.
	ConversationEnded(ctx context.Context, id string, status domain.Status, finalState string)
}

// Notifiers fans a lifecycle signal out to every registered notifier.
type Notifiers []LifecycleNotifier

func (n Notifiers) ConversationStarted(ctx context.Context, id string, initialState string) {
	for _, l := range n {
		l.ConversationStarted(ctx, id, initialState)
	}
}

func (n Notifiers) ConversationEnded(ctx context.Context, id string, status domain.Status, finalState string) {
	for _, l := range n {
		l.ConversationEnded(ctx, id, status, finalState)
	}
}

// NopNotifier discards all lifecycle signals.
type NopNotifier struct{}

func (NopNotifier) ConversationStarted(context.Context, string, string) {}

func (NopNotifier) ConversationEnded(context.Context, string, domain.Status, string) {}
