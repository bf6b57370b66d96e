/*
Package domain contains the core domain models for the Journey engine.

It defines the static workflow definition (Workflow, Node and the closed Block
variant set), the dynamically typed Value used for variable bindings, and the
runtime Session that the interpreter advances. This package is kept pure and
free of external dependencies like I/O or persistence.

# Key Entities

  - Workflow: ordered nodes; node order is the implicit fall-through sequence.
  - Block: PresentContent, AwaitUserInput, SetVariable, UpdateVariable,
    GetVariable, Condition, GotoNode, EndWorkflow.
  - Session: current position, bindings, pending input and status.
  - Action: an observable effect emitted to the host by a step.
*/
package domain
