/*
Package runner implements the interactive execution loop for the journey engine.

It bridges the step interpreter and the outside world: every step's actions are
handed to an IOHandler, and when the session suspends the handler reads the
user's answer, which is fed back through ProvideInput.

# Key Components

  - Runner: the loop (Step, Output, Input, ProvideInput) with optional persistence.
  - TextHandler: interactive text I/O, optionally with a markdown renderer.
  - JSONHandler: JSON-lines I/O for headless hosts.

# Usage

	r := runner.New(engine, runner.NewTextHandler(os.Stdin, os.Stdout))
	sess, err := r.Run(ctx, wf, engine.Start(wf))
*/
package runner
