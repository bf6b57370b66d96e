package ports

import (
	"context"

	"github.com/aretw0/journey/pkg/domain"
)

// WorkflowLoader defines how hosts retrieve workflow definitions.
// This allows the storage layer (directory, memory) to be decoupled from execution.
type WorkflowLoader interface {
	// Load returns the workflow registered under id.
	// Returns domain.ErrWorkflowNotFound if no such workflow exists.
	Load(ctx context.Context, id string) (*domain.Workflow, error)

	// List returns the IDs of all available workflows, sorted.
	List(ctx context.Context) ([]string, error)
}
