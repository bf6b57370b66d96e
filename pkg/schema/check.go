package schema

import (
	"fmt"

	"github.com/aretw0/journey/pkg/domain"
)

// Severity grades a definition issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueCode classifies a definition issue.
type IssueCode string

const (
	IssueEmptyWorkflow   IssueCode = "empty_workflow"
	IssueMissingNodeID   IssueCode = "missing_node_id"
	IssueDuplicateNode   IssueCode = "duplicate_node"
	IssueDanglingTarget  IssueCode = "dangling_reference"
	IssueMissingField    IssueCode = "missing_field"
	IssueAmbiguousSource IssueCode = "ambiguous_source"
	IssueUnknownOperator IssueCode = "unknown_operator"
	IssueNonNumericValue IssueCode = "non_numeric_value"
	IssueIgnoredRules    IssueCode = "ignored_rules"
	IssueShadowedControl IssueCode = "shadowed_control"
	IssueNestedControl   IssueCode = "nested_control"
	IssueAwaitInBranch   IssueCode = "await_in_branch"
)

// Issue is a single problem found by Check.
// BlockIndex is the top-level block the problem belongs to, or -1 for node-level issues.
type Issue struct {
	Severity   Severity  `json:"severity"`
	Code       IssueCode `json:"code"`
	NodeID     string    `json:"node_id,omitempty"`
	BlockIndex int       `json:"block_index"`
	Message    string    `json:"message"`
}

func (i Issue) String() string {
	loc := i.NodeID
	if i.BlockIndex >= 0 {
		loc = fmt.Sprintf("%s[%d]", i.NodeID, i.BlockIndex)
	}
	if loc == "" {
		return fmt.Sprintf("%s %s: %s", i.Severity, i.Code, i.Message)
	}
	return fmt.Sprintf("%s %s at %s: %s", i.Severity, i.Code, loc, i.Message)
}

// Issues is the result of Check.
type Issues []Issue

// HasErrors reports whether any issue has error severity.
func (is Issues) HasErrors() bool {
	for _, i := range is {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Check reports definition problems in wf. Errors describe workflows that will
// fail at runtime on some path; warnings describe configuration that is
// accepted but has no effect.
func Check(wf *domain.Workflow) Issues {
	c := &checker{nodes: make(map[string]bool, len(wf.Nodes))}

	if len(wf.Nodes) == 0 {
		c.add(SeverityWarning, IssueEmptyWorkflow, "", -1, "workflow has no nodes")
	}
	for _, n := range wf.Nodes {
		switch {
		case n.ID == "":
			c.add(SeverityError, IssueMissingNodeID, "", -1, "node has no id")
		case c.nodes[n.ID]:
			c.add(SeverityError, IssueDuplicateNode, n.ID, -1,
				fmt.Sprintf("node id %q is declared more than once; jumps resolve to the first", n.ID))
		}
		c.nodes[n.ID] = true
	}

	for _, n := range wf.Nodes {
		for i, b := range n.Blocks {
			c.block(n.ID, i, b, 0)
		}
	}
	return c.issues
}

type checker struct {
	nodes  map[string]bool
	issues Issues
}

func (c *checker) add(sev Severity, code IssueCode, nodeID string, block int, msg string) {
	c.issues = append(c.issues, Issue{Severity: sev, Code: code, NodeID: nodeID, BlockIndex: block, Message: msg})
}

// block checks b; depth is the number of enclosing condition branches.
func (c *checker) block(nodeID string, idx int, b domain.Block, depth int) {
	switch blk := b.(type) {
	case domain.SetVariable:
		c.target(nodeID, idx, blk.Kind(), blk.Target)
		c.source(nodeID, idx, blk.Kind(), blk.Source)
	case domain.UpdateVariable:
		c.target(nodeID, idx, blk.Kind(), blk.Target)
		c.source(nodeID, idx, blk.Kind(), blk.Source)
	case domain.GetVariable:
		if blk.Source == "" {
			c.add(SeverityError, IssueMissingField, nodeID, idx, "GET_VARIABLE has no source variable")
		}
	case domain.GotoNode:
		c.jump(nodeID, idx, blk.Target)
	case domain.Condition:
		c.condition(nodeID, idx, blk, depth)
	}
}

func (c *checker) target(nodeID string, idx int, kind domain.BlockKind, target string) {
	if target == "" {
		c.add(SeverityError, IssueMissingField, nodeID, idx, fmt.Sprintf("%s has no target variable", kind))
	}
}

func (c *checker) source(nodeID string, idx int, kind domain.BlockKind, src domain.ValueSource) {
	if src.IsAction() && src.Literal != nil {
		c.add(SeverityWarning, IssueAmbiguousSource, nodeID, idx,
			fmt.Sprintf("%s sets both a literal source and action %q; the action is used", kind, src.Action))
	}
}

func (c *checker) jump(nodeID string, idx int, target string) {
	switch {
	case target == "":
		c.add(SeverityError, IssueMissingField, nodeID, idx, "GOTO_NODE has no target")
	case !c.nodes[target]:
		c.add(SeverityError, IssueDanglingTarget, nodeID, idx, fmt.Sprintf("target node %q does not exist", target))
	}
}

func (c *checker) condition(nodeID string, idx int, cond domain.Condition, depth int) {
	if len(cond.Rules) == 0 {
		return
	}
	if len(cond.Rules) > 1 {
		c.add(SeverityWarning, IssueIgnoredRules, nodeID, idx,
			fmt.Sprintf("only the first of %d rules is evaluated", len(cond.Rules)))
	}

	rule := cond.Rules[0]
	switch {
	case !rule.Operator.Known():
		c.add(SeverityError, IssueUnknownOperator, nodeID, idx, fmt.Sprintf("unknown operator %q", rule.Operator))
	case rule.Operator.Numeric():
		if rule.Value == nil || !isNumber(*rule.Value) {
			c.add(SeverityWarning, IssueNonNumericValue, nodeID, idx,
				fmt.Sprintf("%s needs a numeric comparison value", rule.Operator))
		}
	}

	for _, branch := range [][]domain.Block{rule.Then, rule.Else} {
		c.branch(nodeID, idx, branch, depth+1)
	}
}

func (c *checker) branch(nodeID string, idx int, actions []domain.Block, depth int) {
	controls := 0
	for i, a := range actions {
		switch a.(type) {
		case domain.GotoNode, domain.EndWorkflow:
			controls++
			if depth > 1 {
				c.add(SeverityWarning, IssueNestedControl, nodeID, idx,
					fmt.Sprintf("%s inside a nested condition does not change control flow", a.Kind()))
			} else if controls == 2 {
				c.add(SeverityWarning, IssueShadowedControl, nodeID, idx,
					"branch has more than one GOTO_NODE/END_WORKFLOW; the first GOTO_NODE, else the first END_WORKFLOW, takes effect")
			}
		case domain.AwaitUserInput:
			if i < len(actions)-1 {
				c.add(SeverityWarning, IssueAwaitInBranch, nodeID, idx,
					"actions after AWAIT_USER_INPUT in a branch are skipped")
			}
		}
		c.block(nodeID, idx, a, depth)
	}
}

func isNumber(s string) bool {
	_, ok := domain.String(s).Float()
	return ok
}
