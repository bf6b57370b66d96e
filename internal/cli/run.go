package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/journey/internal/presentation/tui"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/runner"
)

// RunOptions configures an interactive or headless run.
type RunOptions struct {
	WorkflowID string
	// SessionID resumes a stored session, or names a new one when none exists.
	SessionID string
	Vars      domain.Bindings

	// JSON switches to NDJSON input and output.
	JSON bool
	// Styled enables the banner and markdown rendering for terminals.
	Styled bool
	// ShowVariables echoes variable writes and reads.
	ShowVariables bool
	MaxInputSize  int

	In  io.Reader
	Out io.Writer
}

// ErrSessionFailed is returned when a run ends on a failed session.
var ErrSessionFailed = errors.New("session failed")

// RunSession drives one session to completion through a terminal handler.
// The session is persisted after every step so an interrupted run can be
// resumed with the same SessionID.
func (a *App) RunSession(ctx context.Context, opts RunOptions) (*domain.Session, error) {
	sess, err := a.resolveSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	wf, err := a.Engine.Load(ctx, sess.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %q: %w", sess.WorkflowID, err)
	}
	resumed := sess.Started()

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		var textOpts []runner.TextHandlerOption
		if opts.Styled {
			tui.PrintBanner(opts.Out)
			renderer, err := tui.NewRenderer(opts.Out, 80)
			if err != nil {
				a.Logger.Warn("Markdown rendering unavailable", "error", err)
			} else {
				textOpts = append(textOpts, runner.WithStyler(renderer))
			}
		}
		if opts.ShowVariables {
			textOpts = append(textOpts, runner.WithVariables())
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, textOpts...)
	}

	if !opts.JSON {
		if resumed {
			printSystemMessage(opts.Out, "Resuming session '%s' at '%s' node...", sess.ID, sess.CurrentNodeID)
		} else if opts.SessionID != "" {
			printSystemMessage(opts.Out, "Session '%s' active.", sess.ID)
		}
	}
	a.Logger.Info("Session running", "session_id", sess.ID, "workflow_id", wf.ID, "resumed", resumed)

	runnerOpts := []runner.Option{runner.WithStore(a.Store)}
	if opts.MaxInputSize > 0 {
		runnerOpts = append(runnerOpts, runner.WithMaxInputSize(opts.MaxInputSize))
	}

	final, runErr := a.Engine.Run(ctx, wf, sess, handler, runnerOpts...)
	if final == nil {
		final = sess
	}
	if runErr = handleExecutionError(runErr); runErr != nil {
		return final, runErr
	}

	if !opts.JSON {
		switch final.Status {
		case domain.StatusCompleted:
			printSystemMessage(opts.Out, "Finished at '%s' node.", final.CurrentNodeID)
		case domain.StatusAwaitingInput, domain.StatusRunning:
			printSystemMessage(opts.Out, "Session '%s' suspended at '%s' node.", final.ID, final.CurrentNodeID)
		}
	}
	if final.Status == domain.StatusFailed {
		if final.Error != nil {
			return final, fmt.Errorf("%w: %s", ErrSessionFailed, final.Error.Error())
		}
		return final, ErrSessionFailed
	}
	return final, nil
}

func (a *App) resolveSession(ctx context.Context, opts RunOptions) (*domain.Session, error) {
	if opts.SessionID != "" {
		sess, err := a.Store.Load(ctx, opts.SessionID)
		switch {
		case err == nil:
			if opts.WorkflowID != "" && opts.WorkflowID != sess.WorkflowID {
				return nil, fmt.Errorf("session %q belongs to workflow %q, not %q", sess.ID, sess.WorkflowID, opts.WorkflowID)
			}
			if sess.Status.Closed() {
				return nil, fmt.Errorf("session %q is %s", sess.ID, sess.Status)
			}
			return sess, nil
		case !errors.Is(err, domain.ErrSessionNotFound):
			return nil, fmt.Errorf("failed to load session %q: %w", opts.SessionID, err)
		}
	}

	if opts.WorkflowID == "" {
		return nil, errors.New("a workflow id is required to start a session")
	}
	wf, err := a.Engine.Load(ctx, opts.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %q: %w", opts.WorkflowID, err)
	}
	sess := a.Engine.Start(wf)
	if opts.SessionID != "" {
		sess.ID = opts.SessionID
	}
	for k, v := range opts.Vars {
		sess.Variables[k] = v
	}
	return sess, nil
}
