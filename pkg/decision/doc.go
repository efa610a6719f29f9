/*
Package decision implements the turn algorithm: given the current state, the
collected context and a new user input, it asks the language-model
collaborator for field updates, a routing decision and a response.

Two execution strategies exist. The optimized path makes a single combined
call whose response text is composed for the *target* state. The fallback
path makes a decide-only call and, only when the state actually changes, a
second call to voice the new state's entry response. Every collaborator
failure is absorbed here and converted into an error outcome with a
deterministic re-prompt; failures never terminate the conversation.
*/
package decision
