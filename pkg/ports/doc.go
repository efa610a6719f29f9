/*
Package ports defines the driven ports (interfaces) for the Warren engine.

These interfaces decouple the core logic from external collaborators,
allowing the engine to work with different language-model backends,
analytics sinks and transport layers.

# Key Interfaces

  - ModelClient: The language-model collaborator that decides transitions
    and composes responses.
  - TransitionSink: The analytics collaborator receiving a durable copy of
    every transition.
  - LifecycleNotifier: Conversation lifecycle signals for the transport
    layer.
*/
package ports
