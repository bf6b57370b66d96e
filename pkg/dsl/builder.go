package dsl

import (
	"fmt"

	"github.com/aretw0/journey/pkg/adapters/memory"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/schema"
)

// Builder manages the workflow construction. Nodes keep the order in which
// they were first added, which is the fall-through order at runtime.
type Builder struct {
	wf    domain.Workflow
	nodes []*NodeBuilder
	index map[string]*NodeBuilder
}

// New creates a builder for the workflow id.
func New(id string) *Builder {
	return &Builder{
		wf:    domain.Workflow{ID: id},
		index: make(map[string]*NodeBuilder),
	}
}

// Name sets the display name.
func (b *Builder) Name(name string) *Builder {
	b.wf.Name = name
	return b
}

// Describe sets the description.
func (b *Builder) Describe(text string) *Builder {
	b.wf.Description = text
	return b
}

// Uses documents variables the workflow reads or writes.
func (b *Builder) Uses(vars ...string) *Builder {
	b.wf.Variables = append(b.wf.Variables, vars...)
	return b
}

// Node creates a node, or returns the existing builder for id.
func (b *Builder) Node(id string) *NodeBuilder {
	if nb, ok := b.index[id]; ok {
		return nb
	}
	nb := &NodeBuilder{node: domain.Node{ID: id}, builder: b}
	b.index[id] = nb
	b.nodes = append(b.nodes, nb)
	return nb
}

// Workflow assembles the definition and rejects it when the static checks
// report errors. Warnings are returned alongside a valid workflow.
func (b *Builder) Workflow() (*domain.Workflow, schema.Issues, error) {
	wf := b.wf
	wf.Variables = append([]string(nil), b.wf.Variables...)
	wf.Nodes = make([]domain.Node, 0, len(b.nodes))
	for _, nb := range b.nodes {
		wf.Nodes = append(wf.Nodes, nb.Build())
	}

	issues := schema.Check(&wf)
	if issues.HasErrors() {
		for _, i := range issues {
			if i.Severity == schema.SeverityError {
				return nil, issues, fmt.Errorf("workflow %q is invalid: %s", wf.ID, i)
			}
		}
	}
	return &wf, issues, nil
}

// Loader builds the workflow into a memory loader.
func (b *Builder) Loader() (*memory.Loader, error) {
	wf, _, err := b.Workflow()
	if err != nil {
		return nil, err
	}
	loader, err := memory.NewLoader(wf)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
