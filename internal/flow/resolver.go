// Package flow decides "what happens next" for a position in a workflow.
// It is shared by the interpreter and the graph linearizer so both agree on
// one control-flow model. Everything here is pure and safe for concurrent use.
package flow

import "github.com/aretw0/journey/pkg/domain"

// TargetKind classifies the result of a resolution.
type TargetKind uint8

const (
	// TargetNextBlock continues with the following block of the same node.
	TargetNextBlock TargetKind = iota
	// TargetJump enters the node named by an explicit GOTO_NODE.
	TargetJump
	// TargetNextNode falls through to the next node in declaration order.
	TargetNextNode
	// TargetTerminal ends the workflow.
	TargetTerminal
	// TargetDangling means a jump named an unknown node; no transition exists.
	TargetDangling
)

func (k TargetKind) String() string {
	switch k {
	case TargetNextBlock:
		return "next_block"
	case TargetJump:
		return "jump"
	case TargetNextNode:
		return "next_node"
	case TargetTerminal:
		return "terminal"
	default:
		return "dangling"
	}
}

// Target is where control goes after a block.
// For TargetNextBlock, TargetJump and TargetNextNode, NodeIndex and BlockIndex
// address the destination; BlockIndex is -1 when the destination node has no
// blocks (a pass-through). For TargetDangling, Ref holds the unknown node id.
type Target struct {
	Kind       TargetKind
	NodeIndex  int
	NodeID     string
	BlockIndex int
	Ref        string
}

// Moves reports whether the target has a destination.
func (t Target) Moves() bool {
	return t.Kind == TargetNextBlock || t.Kind == TargetJump || t.Kind == TargetNextNode
}

// PassThrough reports whether the destination is a node without blocks.
func (t Target) PassThrough() bool {
	return t.Moves() && t.BlockIndex < 0
}

// Branch is the outcome of a CONDITION block.
type Branch uint8

const (
	// BranchNone is used for every block kind other than CONDITION.
	BranchNone Branch = iota
	BranchThen
	BranchElse
)

// BranchOf converts a rule outcome into a Branch.
func BranchOf(outcome bool) Branch {
	if outcome {
		return BranchThen
	}
	return BranchElse
}

// NodeRef is one entry of the declared node sequence.
type NodeRef struct {
	ID     string
	Blocks []domain.Block
}

// Resolver answers control-flow questions over an explicit node sequence.
type Resolver struct {
	order []NodeRef
	index map[string]int
}

// New builds a resolver from the declared node sequence. When ids repeat,
// jumps resolve to the first declaration.
func New(order []NodeRef) *Resolver {
	index := make(map[string]int, len(order))
	for i, n := range order {
		if _, seen := index[n.ID]; !seen {
			index[n.ID] = i
		}
	}
	return &Resolver{order: order, index: index}
}

// ForWorkflow derives the node sequence from the workflow's declaration order.
func ForWorkflow(wf *domain.Workflow) *Resolver {
	order := make([]NodeRef, len(wf.Nodes))
	for i, n := range wf.Nodes {
		order[i] = NodeRef{ID: n.ID, Blocks: n.Blocks}
	}
	return New(order)
}

// Len returns the number of nodes in the sequence.
func (r *Resolver) Len() int { return len(r.order) }

// Node returns the node at index i.
func (r *Resolver) Node(i int) NodeRef { return r.order[i] }

// Lookup returns the index of the node with the given id.
func (r *Resolver) Lookup(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Locate returns the index of a stored position. The recorded index wins
// when it still names a node with that id; otherwise the id is looked up.
func (r *Resolver) Locate(nodeIdx int, id string) (int, bool) {
	if nodeIdx >= 0 && nodeIdx < len(r.order) && r.order[nodeIdx].ID == id {
		return nodeIdx, true
	}
	return r.Lookup(id)
}

// Entry returns the target for a session that has not started yet.
func (r *Resolver) Entry() Target {
	if len(r.order) == 0 {
		return Target{Kind: TargetTerminal}
	}
	return r.enter(TargetNextNode, 0)
}

// Next resolves the successor of the block at (nodeIdx, blockIdx).
// branch selects the rule outcome for CONDITION blocks and is ignored otherwise.
// A blockIdx outside the node's blocks (including any index on an empty node)
// is treated as the end of the node.
func (r *Resolver) Next(nodeIdx, blockIdx int, branch Branch) Target {
	blocks := r.order[nodeIdx].Blocks
	if blockIdx < 0 || blockIdx >= len(blocks) {
		return r.fallThrough(nodeIdx)
	}

	switch b := blocks[blockIdx].(type) {
	case domain.GotoNode:
		return r.Jump(b.Target)
	case domain.EndWorkflow:
		return Target{Kind: TargetTerminal}
	case domain.Condition:
		if len(b.Rules) > 0 && branch != BranchNone {
			actions := b.Rules[0].Branch(branch == BranchThen)
			if ctl, ok := Control(actions); ok {
				return r.controlTarget(ctl)
			}
		}
	}

	if blockIdx+1 < len(blocks) {
		return Target{
			Kind:       TargetNextBlock,
			NodeIndex:  nodeIdx,
			NodeID:     r.order[nodeIdx].ID,
			BlockIndex: blockIdx + 1,
		}
	}
	return r.fallThrough(nodeIdx)
}

// Jump resolves an explicit reference to a node id.
func (r *Resolver) Jump(id string) Target {
	i, ok := r.index[id]
	if !ok {
		return Target{Kind: TargetDangling, Ref: id}
	}
	return r.enter(TargetJump, i)
}

// Control returns the block that decides where a branch goes: the first
// top-level GOTO_NODE, or failing that the first END_WORKFLOW.
// Actions nested inside further conditions do not count.
func Control(actions []domain.Block) (domain.Block, bool) {
	var end domain.Block
	for _, a := range actions {
		switch a.(type) {
		case domain.GotoNode:
			return a, true
		case domain.EndWorkflow:
			if end == nil {
				end = a
			}
		}
	}
	return end, end != nil
}

func (r *Resolver) controlTarget(ctl domain.Block) Target {
	if g, ok := ctl.(domain.GotoNode); ok {
		return r.Jump(g.Target)
	}
	return Target{Kind: TargetTerminal}
}

func (r *Resolver) fallThrough(nodeIdx int) Target {
	if nodeIdx+1 >= len(r.order) {
		return Target{Kind: TargetTerminal}
	}
	return r.enter(TargetNextNode, nodeIdx+1)
}

func (r *Resolver) enter(kind TargetKind, nodeIdx int) Target {
	t := Target{Kind: kind, NodeIndex: nodeIdx, NodeID: r.order[nodeIdx].ID}
	if len(r.order[nodeIdx].Blocks) == 0 {
		t.BlockIndex = -1
	}
	return t
}
