/*
Package dsl provides a fluent Go builder for journey workflows.

It constructs the same domain.Workflow a YAML or JSON definition decodes to,
which is useful for generated flows, tests and IDE-checked definitions.

Example usage:

	b := dsl.New("onboarding")

	b.Node("ask").
		Await("name", "What is your name?")

	b.Node("check").
		If("name", domain.OpEquals, "admin").
		Then(dsl.Goto("admin")).
		Else(dsl.Present("Welcome, {name}!"), dsl.End())

	b.Node("admin").
		Present("Hello, administrator.").
		End()

	wf, _, err := b.Workflow()
*/
package dsl
