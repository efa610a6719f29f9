/*
Package convo owns the live conversations and serializes their inputs.

Each conversation carries a single-flight FIFO queue: at most one input is
ever inside the decision engine per conversation, and queued inputs are
processed strictly in arrival order. Conversations never share mutable
state, so no cross-conversation locking exists.

The Manager holds the conversation table with lifecycle-scoped entries:
created on first contact, marked terminal on completion/error/abandonment,
and reaped after an idle timeout.
*/
package convo
