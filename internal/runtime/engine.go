// Package runtime implements the step interpreter: it walks a workflow one
// block at a time, suspending for input and resuming with updated bindings.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/journey/internal/flow"
	"github.com/aretw0/journey/internal/logging"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/ports"
	"github.com/google/uuid"
)

const (
	// DefaultIterationFactor scales the per-step iteration bound.
	DefaultIterationFactor = 4
	// minIterations keeps tiny workflows from tripping the bound on legitimate jumps.
	minIterations = 16
)

// Engine is the core step interpreter.
// It holds no session state and is safe for concurrent use across sessions.
type Engine struct {
	actions         ports.ActionExecutor
	logger          *slog.Logger
	hooks           domain.LifecycleHooks
	iterationFactor int
	newID           func() string
	now             func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for per-block diagnostics.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithIterationFactor overrides the multiplier of the per-step iteration bound.
func WithIterationFactor(factor int) EngineOption {
	return func(e *Engine) {
		if factor > 0 {
			e.iterationFactor = factor
		}
	}
}

// WithIDGenerator overrides how session and input request IDs are generated.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates an interpreter. actions may be nil, in which case every
// delegated action fails with domain.ErrUnknownAction.
func NewEngine(actions ports.ActionExecutor, opts ...EngineOption) *Engine {
	e := &Engine{
		actions:         actions,
		logger:          logging.NewNop(),
		iterationFactor: DefaultIterationFactor,
		newID:           uuid.NewString,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IterationLimit returns the maximum number of blocks a single Step may execute for wf.
func (e *Engine) IterationLimit(wf *domain.Workflow) int {
	limit := (wf.BlockCount() + len(wf.Nodes)) * e.iterationFactor
	if limit < minIterations {
		return minIterations
	}
	return limit
}

// Start creates a fresh session for wf: no node resolved yet and no bindings.
// The first Step enters the workflow's first node.
func (e *Engine) Start(wf *domain.Workflow) *domain.Session {
	workflowID := ""
	if wf != nil {
		workflowID = wf.ID
	}
	sess := domain.NewSession(e.newID(), workflowID)
	sess.Status = domain.StatusRunning
	return sess
}

// Step executes blocks from the session's position until the workflow suspends
// for input, completes, or fails. The given session is never mutated.
//
// Execution problems (dangling references, runaway graphs, failing actions) are
// returned as data: a failed session plus an error action. The returned error is
// reserved for caller misuse.
func (e *Engine) Step(ctx context.Context, wf *domain.Workflow, sess *domain.Session) (*domain.StepResult, error) {
	if wf == nil {
		return nil, errors.New("workflow is required")
	}
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if sess.Status.Closed() {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionClosed, sess.Status)
	}
	if sess.Status == domain.StatusAwaitingInput {
		return nil, domain.ErrInputPending
	}

	ctx = logging.WithSessionID(logging.WithWorkflowID(ctx, wf.ID), sess.ID)
	s := &step{
		engine:   e,
		ctx:      ctx,
		wf:       wf,
		resolver: flow.ForWorkflow(wf),
		sess:     sess.Clone(),
		logger:   logging.LogWith(ctx, e.logger),
	}
	s.sess.Status = domain.StatusRunning
	if s.sess.Variables == nil {
		s.sess.Variables = make(domain.Bindings)
	}

	s.run(e.IterationLimit(wf))

	return &domain.StepResult{
		Actions:    s.actions,
		Session:    s.sess,
		Iterations: s.iterations,
	}, nil
}

// ProvideInput binds the value for the pending input request and marks the
// session ready for the next Step. requestID is optional; when set it must
// match the pending request.
func (e *Engine) ProvideInput(sess *domain.Session, requestID string, value domain.Value) (*domain.Session, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if sess.Status != domain.StatusAwaitingInput || sess.Pending == nil {
		return nil, domain.ErrNotAwaitingInput
	}
	if requestID != "" && requestID != sess.Pending.ID {
		return nil, fmt.Errorf("%w: got %q, pending %q", domain.ErrInputMismatch, requestID, sess.Pending.ID)
	}

	next := sess.Clone()
	if next.Variables == nil {
		next.Variables = make(domain.Bindings)
	}
	if target := next.Pending.Variable; target != "" {
		next.Variables[target] = value
	}
	next.Resume = &domain.Resume{Outcome: next.Pending.Outcome}
	next.Pending = nil
	next.Status = domain.StatusRunning
	return next, nil
}

func (e *Engine) base(typ domain.EventType, sess *domain.Session) domain.EventBase {
	return domain.EventBase{
		Timestamp:  e.now(),
		Type:       typ,
		SessionID:  sess.ID,
		WorkflowID: sess.WorkflowID,
	}
}
