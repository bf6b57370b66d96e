package flow_test

import (
	"testing"

	"github.com/aretw0/journey/internal/flow"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func resolverFor(nodes ...flow.NodeRef) *flow.Resolver {
	return flow.New(nodes)
}

func TestResolver_Next(t *testing.T) {
	cond := domain.Condition{Rules: []domain.ConditionRule{{
		Variable: "x",
		Operator: domain.OpIsTrue,
		Then:     []domain.Block{domain.PresentContent{}, domain.GotoNode{Target: "c"}},
		Else:     []domain.Block{domain.PresentContent{}},
	}}}
	r := resolverFor(
		flow.NodeRef{ID: "a", Blocks: []domain.Block{
			domain.PresentContent{},
			cond,
			domain.GotoNode{Target: "b"},
			domain.GotoNode{Target: "ghost"},
			domain.EndWorkflow{},
			domain.PresentContent{},
		}},
		flow.NodeRef{ID: "b"},
		flow.NodeRef{ID: "c", Blocks: []domain.Block{domain.PresentContent{}}},
	)

	tests := []struct {
		name   string
		node   int
		block  int
		branch flow.Branch
		want   flow.Target
	}{
		{"plain block continues in node", 0, 0, flow.BranchNone,
			flow.Target{Kind: flow.TargetNextBlock, NodeIndex: 0, NodeID: "a", BlockIndex: 1}},
		{"condition then branch jump wins", 0, 1, flow.BranchThen,
			flow.Target{Kind: flow.TargetJump, NodeIndex: 2, NodeID: "c"}},
		{"condition else without control continues", 0, 1, flow.BranchElse,
			flow.Target{Kind: flow.TargetNextBlock, NodeIndex: 0, NodeID: "a", BlockIndex: 2}},
		{"goto to empty node is a pass-through", 0, 2, flow.BranchNone,
			flow.Target{Kind: flow.TargetJump, NodeIndex: 1, NodeID: "b", BlockIndex: -1}},
		{"goto unknown dangles", 0, 3, flow.BranchNone,
			flow.Target{Kind: flow.TargetDangling, Ref: "ghost"}},
		{"end is terminal despite following blocks", 0, 4, flow.BranchNone,
			flow.Target{Kind: flow.TargetTerminal}},
		{"last block falls to next node", 0, 5, flow.BranchNone,
			flow.Target{Kind: flow.TargetNextNode, NodeIndex: 1, NodeID: "b", BlockIndex: -1}},
		{"empty node falls through", 1, -1, flow.BranchNone,
			flow.Target{Kind: flow.TargetNextNode, NodeIndex: 2, NodeID: "c"}},
		{"last block of last node is terminal", 2, 0, flow.BranchNone,
			flow.Target{Kind: flow.TargetTerminal}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Next(tt.node, tt.block, tt.branch))
		})
	}
}

func TestResolver_BranchEnd(t *testing.T) {
	r := resolverFor(
		flow.NodeRef{ID: "a", Blocks: []domain.Block{domain.Condition{Rules: []domain.ConditionRule{{
			Then: []domain.Block{domain.EndWorkflow{}, domain.GotoNode{Target: "b"}},
		}}}}},
		flow.NodeRef{ID: "b", Blocks: []domain.Block{domain.PresentContent{}}},
	)

	got := r.Next(0, 0, flow.BranchThen)
	assert.Equal(t, flow.TargetJump, got.Kind, "a jump anywhere in the branch beats END_WORKFLOW")
	assert.Equal(t, "b", got.NodeID)
	assert.Equal(t, flow.TargetNextNode, r.Next(0, 0, flow.BranchElse).Kind, "empty else falls through")

	r = resolverFor(flow.NodeRef{ID: "a", Blocks: []domain.Block{domain.Condition{Rules: []domain.ConditionRule{{
		Then: []domain.Block{domain.PresentContent{}, domain.EndWorkflow{}, domain.PresentContent{}},
	}}}, domain.PresentContent{}}})
	assert.Equal(t, flow.TargetTerminal, r.Next(0, 0, flow.BranchThen).Kind)
}

func TestControl(t *testing.T) {
	ctl, ok := flow.Control([]domain.Block{
		domain.EndWorkflow{}, domain.GotoNode{Target: "x"}, domain.GotoNode{Target: "y"},
	})
	assert.True(t, ok)
	assert.Equal(t, domain.GotoNode{Target: "x"}, ctl)

	ctl, ok = flow.Control([]domain.Block{domain.PresentContent{}, domain.EndWorkflow{}})
	assert.True(t, ok)
	assert.Equal(t, domain.EndWorkflow{}, ctl)

	_, ok = flow.Control([]domain.Block{domain.PresentContent{}})
	assert.False(t, ok)
}

func TestResolver_Locate(t *testing.T) {
	r := resolverFor(
		flow.NodeRef{ID: "a"},
		flow.NodeRef{ID: "a"},
		flow.NodeRef{ID: "b"},
	)

	idx, ok := r.Locate(1, "a")
	assert.True(t, ok)
	assert.Equal(t, 1, idx, "recorded index keeps duplicates apart")

	idx, ok = r.Locate(2, "a")
	assert.True(t, ok)
	assert.Equal(t, 0, idx, "stale index falls back to the id")

	idx, ok = r.Locate(9, "b")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = r.Locate(0, "ghost")
	assert.False(t, ok)
}

func TestResolver_ConditionWithoutRules(t *testing.T) {
	r := resolverFor(flow.NodeRef{ID: "a", Blocks: []domain.Block{domain.Condition{}}})
	assert.Equal(t, flow.TargetTerminal, r.Next(0, 0, flow.BranchThen).Kind)
}

func TestResolver_NestedControlIgnored(t *testing.T) {
	nested := domain.Condition{Rules: []domain.ConditionRule{{
		Then: []domain.Block{domain.GotoNode{Target: "b"}},
	}}}
	r := resolverFor(
		flow.NodeRef{ID: "a", Blocks: []domain.Block{domain.Condition{Rules: []domain.ConditionRule{{
			Then: []domain.Block{nested},
		}}}}},
		flow.NodeRef{ID: "z"},
		flow.NodeRef{ID: "b"},
	)
	got := r.Next(0, 0, flow.BranchThen)
	assert.Equal(t, flow.TargetNextNode, got.Kind)
	assert.Equal(t, "z", got.NodeID)
}

func TestResolver_EntryAndLookup(t *testing.T) {
	assert.Equal(t, flow.TargetTerminal, resolverFor().Entry().Kind)

	r := resolverFor(
		flow.NodeRef{ID: "dup", Blocks: []domain.Block{domain.PresentContent{}}},
		flow.NodeRef{ID: "dup"},
	)
	entry := r.Entry()
	assert.Equal(t, flow.TargetNextNode, entry.Kind)
	assert.False(t, entry.PassThrough())
	assert.True(t, entry.Moves())

	idx, ok := r.Lookup("dup")
	assert.True(t, ok)
	assert.Equal(t, 0, idx, "first declaration wins")

	// The duplicate is still reachable by order.
	assert.Equal(t, 1, r.Next(0, 0, flow.BranchNone).NodeIndex)
}

func TestResolver_ForWorkflow(t *testing.T) {
	wf := &domain.Workflow{Nodes: []domain.Node{{ID: "only"}}}
	r := flow.ForWorkflow(wf)
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Entry().PassThrough())
	assert.Equal(t, flow.TargetTerminal, r.Next(0, -1, flow.BranchNone).Kind)
}
