/*
Package ports defines the driven ports (interfaces) for the Journey engine.

These interfaces decouple the interpreter from external implementations, allowing
the engine to work with various workflow sources, session stores and action catalogs.

# Key Interfaces

  - WorkflowLoader: Resolves workflow definitions by ID (e.g., from a directory or memory).
  - SessionStore: Persists and loads session state between steps.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - ActionExecutor: Runs delegated actions for SET_VARIABLE and UPDATE_VARIABLE.
*/
package ports
