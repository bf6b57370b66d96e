package runner

import (
	"context"

	"github.com/aretw0/journey/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the actions of one step, in order.
	Output(ctx context.Context, actions []domain.Action) error

	// Input reads the answer to the pending request.
	// It returns io.EOF when the user closes the input stream.
	Input(ctx context.Context, req *domain.InputRequest) (domain.Value, error)
}
