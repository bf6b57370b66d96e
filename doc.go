/*
Package journey is a declarative workflow engine for building conversational flows: onboarding wizards, surveys, support scripts and chat-driven automations.

A workflow is an ordered list of nodes, each holding an ordered list of blocks. Blocks present content, wait for user input, bind and update variables, branch on a condition, jump to another node or end the run. The engine executes one session at a time, a block at a time, and stops whenever the workflow needs something from the outside world.

# Concept

Journey separates the static definition (Workflow) from the mutable execution state (Session). The engine never performs I/O itself: each Step returns the observable Actions it produced (content to show, input requested, variables changed) and the host decides how to render them. Delegated actions (SET_VARIABLE with an action source) are resolved through a registry of host functions.

# Key Features

  - Deterministic Execution: Given the same session and input, a step always emits the same actions.
  - Hexagonal Architecture: The interpreter is decoupled from storage, transport and presentation.
  - Durable Sessions: Sessions are plain data and can be stored in memory, on disk or in Redis.
  - Static Analysis: Definitions are validated against a JSON Schema and linearized into a control-flow graph.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/journey"
		"github.com/aretw0/journey/pkg/domain"
	)

	func main() {
		// Workflows are read from ./flows (*.yaml, *.yml, *.json).
		eng := journey.New("./flows", journey.WithBuiltinActions())

		ctx := context.Background()
		wf, err := eng.Load(ctx, "onboarding")
		if err != nil {
			log.Fatal(err)
		}

		sess := eng.Start(wf)
		for {
			res, err := eng.Step(ctx, wf, sess)
			if err != nil {
				log.Fatal(err)
			}
			for _, act := range res.Actions {
				if act.Kind == domain.ActionContentShown {
					fmt.Println(act.Text)
				}
			}
			sess = res.Session
			if sess.Status != domain.StatusAwaitingInput {
				break
			}
			// In a real app, this input comes from the user.
			sess, err = eng.ProvideInput(sess, sess.Pending.ID, domain.String("Ada"))
			if err != nil {
				log.Fatal(err)
			}
		}
	}

For interactive terminals use Engine.Run with a runner.IOHandler, and for
long-lived services use Engine.Sessions to obtain a session.Manager.
*/
package journey
