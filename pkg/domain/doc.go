/*
Package domain contains the core domain models for the Warren conversation
engine.

It defines the fundamental entities of the intake state machine, such as
StateDefs, the per-conversation Context, and the immutable Transition record
produced for every processed input. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - StateDef: A named step in the intake flow with its required fields,
    prompt template and legal next states.
  - Context: The structured data collected from the caller so far.
  - Transition: The immutable record of one processed input (state change,
    context delta, agent response, model usage).
  - ModelDecision: The structured output expected from the language-model
    collaborator.
*/
package domain
