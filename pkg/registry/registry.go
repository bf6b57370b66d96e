package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/journey/pkg/domain"
)

// ActionFunc defines the signature for an action implementation.
// It receives a context and a map of arguments, and returns a result or error.
type ActionFunc func(ctx context.Context, args map[string]any) (any, error)

// Definition describes a registered action for catalogs.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Option configures a registration.
type Option func(*Definition)

// WithDescription sets the human-readable description of an action.
func WithDescription(desc string) Option {
	return func(d *Definition) { d.Description = desc }
}

// WithCategory groups an action in the catalog.
func WithCategory(category string) Option {
	return func(d *Definition) { d.Category = category }
}

type entry struct {
	def Definition
	fn  ActionFunc
}

// Registry manages the available actions. It implements ports.ActionExecutor.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]entry),
	}
}

// Register adds an action to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn ActionFunc, opts ...Option) {
	def := Definition{Name: name}
	for _, opt := range opts {
		opt(&def)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = entry{def: def, fn: fn}
}

// Execute looks up an action by name and executes it.
// Unregistered names return an error wrapping domain.ErrUnknownAction.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return e.fn(ctx, args)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[name]
	return ok
}

// Definitions returns the catalog sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defs := make([]Definition, 0, len(r.actions))
	for _, e := range r.actions {
		defs = append(defs, e.def)
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
