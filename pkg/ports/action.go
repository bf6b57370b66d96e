package ports

import "context"

// ActionExecutor runs a delegated action by name.
// The result must be a string, number or boolean; other shapes are stored as JSON text.
// Implementations return an error wrapping domain.ErrUnknownAction for unregistered names.
type ActionExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// ActionExecutorFunc adapts a plain function to ActionExecutor.
type ActionExecutorFunc func(ctx context.Context, name string, args map[string]any) (any, error)

// Execute calls f.
func (f ActionExecutorFunc) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	return f(ctx, name, args)
}
