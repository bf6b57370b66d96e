package journey

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/journey/internal/logging"
	"github.com/aretw0/journey/internal/presentation/graph"
	"github.com/aretw0/journey/internal/runtime"
	"github.com/aretw0/journey/pkg/adapters/file"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/ports"
	"github.com/aretw0/journey/pkg/registry"
	"github.com/aretw0/journey/pkg/registry/builtin"
	"github.com/aretw0/journey/pkg/runner"
	"github.com/aretw0/journey/pkg/schema"
	"github.com/aretw0/journey/pkg/session"
)

// ErrNoLoader is returned by catalog operations when the Engine has no workflow loader.
var ErrNoLoader = errors.New("no workflow loader configured")

// Engine is the high-level entry point for the Journey library.
// It wraps the internal interpreter and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	loader      ports.WorkflowLoader
	registry    *registry.Registry
	actions     []func(*registry.Registry)
	builtins    []builtin.Option
	useBuiltins bool
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom WorkflowLoader, bypassing the directory loader.
func WithLoader(l ports.WorkflowLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRegistry uses an existing action registry instead of a fresh one.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithAction registers a delegated action.
func WithAction(name string, fn registry.ActionFunc, opts ...registry.Option) Option {
	return func(e *Engine) {
		e.actions = append(e.actions, func(r *registry.Registry) { r.Register(name, fn, opts...) })
	}
}

// WithActions runs register against the engine's registry, after the
// builtin actions. Use it to install a set of actions at once.
func WithActions(register func(*registry.Registry)) Option {
	return func(e *Engine) {
		e.actions = append(e.actions, register)
	}
}

// WithBuiltinActions registers http_get, json_query, new_id and now.
func WithBuiltinActions(opts ...builtin.Option) Option {
	return func(e *Engine) {
		e.useBuiltins = true
		e.builtins = append(e.builtins, opts...)
	}
}

// WithIterationFactor overrides the multiplier of the per-step iteration bound.
func WithIterationFactor(factor int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithIterationFactor(factor))
	}
}

// WithIDGenerator overrides how session and input request IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithIDGenerator(fn))
	}
}

// New creates an Engine. When dir is not empty and no loader is injected,
// workflows are read from that directory.
func New(dir string, opts ...Option) *Engine {
	e := &Engine{
		registry: registry.NewRegistry(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.loader == nil && dir != "" {
		e.loader = file.NewLoader(dir)
	}
	if e.useBuiltins {
		builtin.Register(e.registry, e.builtins...)
	}
	for _, register := range e.actions {
		register(e.registry)
	}

	rtOpts := append([]runtime.EngineOption{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
	}, e.runtimeOpts...)
	e.runtime = runtime.NewEngine(e.registry, rtOpts...)
	return e
}

// Registry returns the action registry the engine delegates to.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Loader returns the workflow catalog, or nil when none is configured.
func (e *Engine) Loader() ports.WorkflowLoader {
	return e.loader
}

// Load resolves a workflow from the configured loader.
func (e *Engine) Load(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	if e.loader == nil {
		return nil, ErrNoLoader
	}
	return e.loader.Load(ctx, workflowID)
}

// Start creates a session for wf. Nothing runs until the first Step.
func (e *Engine) Start(wf *domain.Workflow) *domain.Session {
	return e.runtime.Start(wf)
}

// Step runs sess until it asks for input, completes or fails.
func (e *Engine) Step(ctx context.Context, wf *domain.Workflow, sess *domain.Session) (*domain.StepResult, error) {
	return e.runtime.Step(ctx, wf, sess)
}

// ProvideInput answers the pending input request of sess.
func (e *Engine) ProvideInput(sess *domain.Session, requestID string, value domain.Value) (*domain.Session, error) {
	return e.runtime.ProvideInput(sess, requestID, value)
}

// Sessions returns a Manager that persists sessions in store and resolves
// workflows through the engine's loader.
func (e *Engine) Sessions(store ports.SessionStore, opts ...session.Option) (*session.Manager, error) {
	if e.loader == nil {
		return nil, ErrNoLoader
	}
	opts = append([]session.Option{session.WithLogger(e.logger)}, opts...)
	return session.NewManager(store, e.loader, e.runtime, opts...), nil
}

// Run drives sess interactively through handler until it completes, fails
// or the input stream closes.
func (e *Engine) Run(ctx context.Context, wf *domain.Workflow, sess *domain.Session, handler runner.IOHandler, opts ...runner.Option) (*domain.Session, error) {
	opts = append([]runner.Option{runner.WithLogger(e.logger)}, opts...)
	return runner.New(e.runtime, handler, opts...).Run(ctx, wf, sess)
}

// Validate runs the static definition checks on wf.
func Validate(wf *domain.Workflow) schema.Issues {
	return schema.Check(wf)
}

// Mermaid renders the control flow of wf as a Mermaid flowchart. When sess is
// not nil, visited nodes and the current block are highlighted.
func Mermaid(wf *domain.Workflow, sess *domain.Session) string {
	return graph.GenerateMermaid(graph.Linearize(wf), graph.OverlayFor(sess))
}
