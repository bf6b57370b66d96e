package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/journey/internal/logging"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/ports"
)

// Engine is the interpreter the Runner drives.
type Engine interface {
	Step(ctx context.Context, wf *domain.Workflow, sess *domain.Session) (*domain.StepResult, error)
	ProvideInput(sess *domain.Session, requestID string, value domain.Value) (*domain.Session, error)
}

// Runner handles the execution loop of the engine using the provided IO.
// This allows for easy testing and integration with different frontends.
type Runner struct {
	Engine  Engine
	Handler IOHandler

	// Store persists the session after every step. If nil, sessions are ephemeral.
	Store ports.SessionStore

	// MaxInputSize bounds each answer; see SanitizeInput.
	MaxInputSize int

	Logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore enables persistence after every step.
func WithStore(store ports.SessionStore) Option {
	return func(r *Runner) { r.Store = store }
}

// WithLogger sets the logger for loop diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.Logger = logger }
}

// WithMaxInputSize bounds the size of each answer.
func WithMaxInputSize(n int) Option {
	return func(r *Runner) { r.MaxInputSize = n }
}

// New creates a Runner.
func New(engine Engine, handler IOHandler, opts ...Option) *Runner {
	r := &Runner{
		Engine:  engine,
		Handler: handler,
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run steps sess until it completes or fails, reading input whenever it
// suspends. If the user closes the input stream, Run returns the suspended
// session and a nil error. Context cancellation is returned as an error
// together with the last session.
func (r *Runner) Run(ctx context.Context, wf *domain.Workflow, sess *domain.Session) (*domain.Session, error) {
	for {
		if sess.Status == domain.StatusAwaitingInput {
			next, err := r.answer(ctx, sess)
			if err != nil {
				if errors.Is(err, io.EOF) {
					r.Logger.Debug("Input closed", "session_id", sess.ID)
					return sess, nil
				}
				return sess, err
			}
			sess = next
			continue
		}
		if sess.Status.Closed() {
			return sess, nil
		}

		res, err := r.Engine.Step(ctx, wf, sess)
		if err != nil {
			return sess, fmt.Errorf("step error: %w", err)
		}
		sess = res.Session

		if r.Store != nil {
			if err := r.Store.Save(ctx, sess); err != nil {
				return sess, fmt.Errorf("failed to save session: %w", err)
			}
		}
		if err := r.Handler.Output(ctx, res.Actions); err != nil {
			return sess, fmt.Errorf("output error: %w", err)
		}
	}
}

// answer reads input until a valid value is bound. Invalid input is reported
// and asked again.
func (r *Runner) answer(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	for {
		val, err := r.Handler.Input(ctx, sess.Pending)
		if err != nil {
			return nil, err
		}
		if val.Kind() == domain.KindString {
			clean, err := SanitizeInput(val.String(), r.MaxInputSize)
			if err != nil {
				warn := domain.Action{Kind: domain.ActionWarning, NodeID: sess.CurrentNodeID, BlockIndex: sess.BlockIndex, Text: err.Error()}
				if err := r.Handler.Output(ctx, []domain.Action{warn}); err != nil {
					return nil, err
				}
				continue
			}
			val = domain.String(clean)
		}
		return r.Engine.ProvideInput(sess, sess.Pending.ID, val)
	}
}
