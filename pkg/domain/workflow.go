package domain

// BlockKind names a block variant. The values match the definition format.
type BlockKind string

const (
	BlockPresentContent BlockKind = "PRESENT_CONTENT"
	BlockAwaitUserInput BlockKind = "AWAIT_USER_INPUT"
	BlockSetVariable    BlockKind = "SET_VARIABLE"
	BlockUpdateVariable BlockKind = "UPDATE_VARIABLE"
	BlockGetVariable    BlockKind = "GET_VARIABLE"
	BlockCondition      BlockKind = "CONDITION"
	BlockGotoNode       BlockKind = "GOTO_NODE"
	BlockEndWorkflow    BlockKind = "END_WORKFLOW"
)

// Workflow is an immutable, ordered graph of nodes.
// Node order defines the implicit fall-through sequence.
type Workflow struct {
	ID          string
	Name        string
	Description string
	// Variables documents the variables the workflow uses. It is not enforced.
	Variables []string
	Nodes     []Node
}

// Node is a named waypoint holding an ordered list of blocks.
// A node without blocks is a valid pass-through.
type Node struct {
	ID     string
	Title  string
	Blocks []Block
}

// NodeIndex returns the position of the first node declared with id, or -1.
func (w *Workflow) NodeIndex(id string) int {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// BlockCount returns the number of top-level blocks across all nodes.
func (w *Workflow) BlockCount() int {
	n := 0
	for i := range w.Nodes {
		n += len(w.Nodes[i].Blocks)
	}
	return n
}

// Block is one executable unit of a node. The set of implementations is closed.
type Block interface {
	Kind() BlockKind
	block()
}

// PresentContent shows text to the user. Content may contain {variable} placeholders.
type PresentContent struct {
	Content string
}

// AwaitUserInput suspends the session until the host supplies a value.
// Target is optional; when empty the input is acknowledged but not stored.
type AwaitUserInput struct {
	Target string
	Prompt string
}

// ValueSource describes where a computed value comes from: either a literal
// (interpolated against the bindings) or a delegated action call.
type ValueSource struct {
	Literal *string
	Action  string
	Args    map[string]any
}

// IsAction reports whether the value is produced by an action call.
func (s ValueSource) IsAction() bool { return s.Action != "" }

// IsZero reports whether neither a literal nor an action is configured.
func (s ValueSource) IsZero() bool { return s.Literal == nil && s.Action == "" }

// UpdateOperation selects how UPDATE_VARIABLE combines values.
type UpdateOperation string

const (
	UpdateSet    UpdateOperation = "set"
	UpdateAppend UpdateOperation = "append"
)

// SetVariable binds Target, overwriting any previous value.
type SetVariable struct {
	Target string
	Source ValueSource
}

// UpdateVariable binds Target using Operation; the empty operation means set.
type UpdateVariable struct {
	Target    string
	Operation UpdateOperation
	Source    ValueSource
}

// GetVariable exposes the current value of Source to the host.
type GetVariable struct {
	Source string
}

// Condition branches on its first rule. Later rules are carried but not evaluated.
type Condition struct {
	Rules []ConditionRule
}

// GotoNode jumps to the node named Target.
type GotoNode struct {
	Target string
}

// EndWorkflow terminates the session.
type EndWorkflow struct{}

func (PresentContent) Kind() BlockKind { return BlockPresentContent }
func (AwaitUserInput) Kind() BlockKind { return BlockAwaitUserInput }
func (SetVariable) Kind() BlockKind    { return BlockSetVariable }
func (UpdateVariable) Kind() BlockKind { return BlockUpdateVariable }
func (GetVariable) Kind() BlockKind    { return BlockGetVariable }
func (Condition) Kind() BlockKind      { return BlockCondition }
func (GotoNode) Kind() BlockKind       { return BlockGotoNode }
func (EndWorkflow) Kind() BlockKind    { return BlockEndWorkflow }

func (PresentContent) block() {}
func (AwaitUserInput) block() {}
func (SetVariable) block()    {}
func (UpdateVariable) block() {}
func (GetVariable) block()    {}
func (Condition) block()      {}
func (GotoNode) block()       {}
func (EndWorkflow) block()    {}

// Operator is a condition comparison.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpIsTrue             Operator = "is_true"
	OpIsFalse            Operator = "is_false"
	OpContains           Operator = "contains"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
)

// Operators lists every supported operator in declaration order.
var Operators = []Operator{
	OpEquals, OpNotEquals, OpIsTrue, OpIsFalse, OpContains, OpStartsWith, OpEndsWith,
	OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
}

// Known reports whether op is a supported operator.
func (op Operator) Known() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Numeric reports whether op compares numbers.
func (op Operator) Numeric() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		return true
	}
	return false
}

// ConditionRule compares Variable with Value and selects Then or Else.
// Then and Else are executed as if their blocks were inlined at the condition.
type ConditionRule struct {
	Variable string
	Operator Operator
	Value    *string
	Then     []Block
	Else     []Block
}

// Branch returns the action list for the given outcome.
func (r ConditionRule) Branch(outcome bool) []Block {
	if outcome {
		return r.Then
	}
	return r.Else
}
