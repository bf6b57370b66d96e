package dsl

import "github.com/aretw0/journey/pkg/domain"

// NodeBuilder provides a fluent API for appending blocks to a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Title sets the node's display title.
func (n *NodeBuilder) Title(title string) *NodeBuilder {
	n.node.Title = title
	return n
}

// Then appends arbitrary blocks.
func (n *NodeBuilder) Then(blocks ...domain.Block) *NodeBuilder {
	n.node.Blocks = append(n.node.Blocks, blocks...)
	return n
}

// Present shows interpolated content.
func (n *NodeBuilder) Present(content string) *NodeBuilder {
	return n.Then(Present(content))
}

// Await suspends for input bound to target.
func (n *NodeBuilder) Await(target, prompt string) *NodeBuilder {
	return n.Then(Await(target, prompt))
}

// Set binds target to an interpolated literal.
func (n *NodeBuilder) Set(target, literal string) *NodeBuilder {
	return n.Then(Set(target, literal))
}

// SetFrom binds target to the result of a delegated action.
func (n *NodeBuilder) SetFrom(target, action string, args map[string]any) *NodeBuilder {
	return n.Then(SetFrom(target, action, args))
}

// Append concatenates an interpolated literal onto target.
func (n *NodeBuilder) Append(target, literal string) *NodeBuilder {
	return n.Then(Append(target, literal))
}

// Get exposes a variable to the host.
func (n *NodeBuilder) Get(source string) *NodeBuilder {
	return n.Then(Get(source))
}

// Goto jumps to target.
func (n *NodeBuilder) Goto(target string) *NodeBuilder {
	return n.Then(Goto(target))
}

// End terminates the session.
func (n *NodeBuilder) End() *NodeBuilder {
	return n.Then(End())
}

// If starts a condition block. The block is appended when Then or Else is
// called on the returned builder.
func (n *NodeBuilder) If(variable string, op domain.Operator, value string) *ConditionBuilder {
	c := &ConditionBuilder{node: n, index: len(n.node.Blocks)}
	c.rule = domain.ConditionRule{Variable: variable, Operator: op}
	if value != "" {
		c.rule.Value = &value
	}
	n.node.Blocks = append(n.node.Blocks, domain.Condition{Rules: []domain.ConditionRule{c.rule}})
	return c
}

// Build returns the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	node := n.node
	node.Blocks = append([]domain.Block(nil), n.node.Blocks...)
	return node
}

// ConditionBuilder fills the branches of a condition block.
type ConditionBuilder struct {
	node  *NodeBuilder
	index int
	rule  domain.ConditionRule
}

// Then sets the blocks run when the rule holds.
func (c *ConditionBuilder) Then(blocks ...domain.Block) *ConditionBuilder {
	c.rule.Then = append(c.rule.Then, blocks...)
	c.sync()
	return c
}

// Else sets the blocks run when the rule does not hold.
func (c *ConditionBuilder) Else(blocks ...domain.Block) *ConditionBuilder {
	c.rule.Else = append(c.rule.Else, blocks...)
	c.sync()
	return c
}

// Node returns to the enclosing node builder.
func (c *ConditionBuilder) Node() *NodeBuilder {
	return c.node
}

func (c *ConditionBuilder) sync() {
	c.node.node.Blocks[c.index] = domain.Condition{Rules: []domain.ConditionRule{c.rule}}
}

// Present returns a PRESENT_CONTENT block.
func Present(content string) domain.Block {
	return domain.PresentContent{Content: content}
}

// Await returns an AWAIT_USER_INPUT block.
func Await(target, prompt string) domain.Block {
	return domain.AwaitUserInput{Target: target, Prompt: prompt}
}

// Set returns a SET_VARIABLE block with a literal source.
func Set(target, literal string) domain.Block {
	return domain.SetVariable{Target: target, Source: domain.ValueSource{Literal: &literal}}
}

// SetFrom returns a SET_VARIABLE block delegating to action.
func SetFrom(target, action string, args map[string]any) domain.Block {
	return domain.SetVariable{Target: target, Source: domain.ValueSource{Action: action, Args: args}}
}

// Append returns an UPDATE_VARIABLE block with the append operation.
func Append(target, literal string) domain.Block {
	return domain.UpdateVariable{Target: target, Operation: domain.UpdateAppend, Source: domain.ValueSource{Literal: &literal}}
}

// Get returns a GET_VARIABLE block.
func Get(source string) domain.Block {
	return domain.GetVariable{Source: source}
}

// Goto returns a GOTO_NODE block.
func Goto(target string) domain.Block {
	return domain.GotoNode{Target: target}
}

// End returns an END_WORKFLOW block.
func End() domain.Block {
	return domain.EndWorkflow{}
}
