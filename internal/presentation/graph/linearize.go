// Package graph derives a control-flow graph from a workflow definition and
// renders it as Mermaid text or as an image.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/journey/internal/flow"
	"github.com/aretw0/journey/pkg/domain"
)

// VertexKind is the display category of a vertex.
type VertexKind string

const (
	VertexStart       VertexKind = "start"
	VertexDecision    VertexKind = "decision"
	VertexTerminal    VertexKind = "terminal"
	VertexProcess     VertexKind = "process"
	VertexInput       VertexKind = "input"
	VertexPassThrough VertexKind = "passthrough"
)

// Shape names the outline used to draw a vertex kind.
type Shape string

const (
	ShapeDiamond   Shape = "diamond"
	ShapeRounded   Shape = "rounded"
	ShapeRectangle Shape = "rectangle"
)

// Shape returns the outline for the kind.
func (k VertexKind) Shape() Shape {
	switch k {
	case VertexDecision:
		return ShapeDiamond
	case VertexStart, VertexTerminal:
		return ShapeRounded
	default:
		return ShapeRectangle
	}
}

// Edge labels for condition outcomes.
const (
	LabelYes = "YES"
	LabelNo  = "NO"
)

// StartID is the identifier of the synthetic start vertex.
const StartID = "start"

// Vertex is one block (or one empty node) of the workflow.
// BlockIndex is -1 for pass-through and start vertices.
type Vertex struct {
	ID         string     `json:"id"`
	Kind       VertexKind `json:"kind"`
	Label      string     `json:"label"`
	NodeID     string     `json:"node_id,omitempty"`
	BlockIndex int        `json:"block_index"`
}

// Edge is a control-flow transition. Label is "YES"/"NO" for condition outcomes.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Warning is a definition problem found while linearizing. It never aborts.
type Warning struct {
	Code       domain.ErrorCode `json:"code"`
	NodeID     string           `json:"node_id"`
	BlockIndex int              `json:"block_index"`
	Message    string           `json:"message"`
}

// Graph is the static control-flow view of a workflow.
type Graph struct {
	Vertices []Vertex  `json:"vertices"`
	Edges    []Edge    `json:"edges"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// CodeDuplicateNode flags a node id declared more than once.
const CodeDuplicateNode domain.ErrorCode = "duplicate_node"

// Linearize walks every node and block of wf once and emits the transitions the
// interpreter could take from each, with both outcomes of every condition.
// The result depends only on wf, so repeated calls are identical.
func Linearize(wf *domain.Workflow) *Graph {
	r := flow.ForWorkflow(wf)
	prefixes := vertexPrefixes(wf)
	g := &Graph{Vertices: []Vertex{}, Edges: []Edge{}}

	seen := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		if seen[n.ID] {
			g.Warnings = append(g.Warnings, Warning{
				Code:       CodeDuplicateNode,
				NodeID:     n.ID,
				BlockIndex: -1,
				Message:    fmt.Sprintf("node id %q is declared more than once; jumps resolve to the first", n.ID),
			})
		}
		seen[n.ID] = true
	}

	target := func(t flow.Target) string {
		if t.PassThrough() {
			return prefixes[t.NodeIndex]
		}
		return prefixes[t.NodeIndex] + "_b" + strconv.Itoa(t.BlockIndex)
	}
	link := func(from string, at domain.Position, t flow.Target, label string) {
		switch {
		case t.Moves():
			g.Edges = append(g.Edges, Edge{From: from, To: target(t), Label: label})
		case t.Kind == flow.TargetDangling:
			g.Warnings = append(g.Warnings, Warning{
				Code:       domain.CodeDanglingReference,
				NodeID:     at.NodeID,
				BlockIndex: at.BlockIndex,
				Message:    fmt.Sprintf("target node %q does not exist", t.Ref),
			})
		}
	}

	g.Vertices = append(g.Vertices, Vertex{ID: StartID, Kind: VertexStart, Label: "Start", BlockIndex: -1})
	link(StartID, domain.Position{BlockIndex: -1}, r.Entry(), "")

	for i, n := range wf.Nodes {
		if len(n.Blocks) == 0 {
			id := prefixes[i]
			label := n.Title
			if label == "" {
				label = n.ID
			}
			g.Vertices = append(g.Vertices, Vertex{ID: id, Kind: VertexPassThrough, Label: label, NodeID: n.ID, BlockIndex: -1})
			link(id, domain.Position{NodeID: n.ID, BlockIndex: -1}, r.Next(i, -1, flow.BranchNone), "")
			continue
		}

		for b, block := range n.Blocks {
			id := prefixes[i] + "_b" + strconv.Itoa(b)
			at := domain.Position{NodeID: n.ID, BlockIndex: b}
			g.Vertices = append(g.Vertices, Vertex{
				ID:         id,
				Kind:       kindOf(block),
				Label:      labelOf(block),
				NodeID:     n.ID,
				BlockIndex: b,
			})

			if _, ok := block.(domain.Condition); ok {
				link(id, at, r.Next(i, b, flow.BranchThen), LabelYes)
				link(id, at, r.Next(i, b, flow.BranchElse), LabelNo)
				continue
			}
			link(id, at, r.Next(i, b, flow.BranchNone), "")
		}
	}

	return g
}

// Outgoing returns the edges leaving the vertex with the given id, in order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// VertexID returns the identifier of the vertex for a node's block.
// Use a negative block index for the pass-through vertex of an empty node.
func VertexID(nodeID string, blockIndex int) string {
	id := "n_" + escapeID(nodeID)
	if blockIndex < 0 {
		return id
	}
	return id + "_b" + strconv.Itoa(blockIndex)
}

// vertexPrefixes assigns each node a unique id prefix. Repeated node ids get
// a "_d<k>" suffix in declaration order.
func vertexPrefixes(wf *domain.Workflow) []string {
	out := make([]string, len(wf.Nodes))
	count := make(map[string]int, len(wf.Nodes))
	for i, n := range wf.Nodes {
		out[i] = VertexID(n.ID, -1)
		if k := count[n.ID]; k > 0 {
			out[i] += "_d" + strconv.Itoa(k)
		}
		count[n.ID]++
	}
	return out
}

// escapeID keeps ASCII letters and digits and encodes every other byte as _HH.
// Encoded ids contain '_' only before two uppercase hex digits, so the suffixes
// added by the linearizer cannot collide with an encoded node id.
func escapeID(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "_%02X", c)
	}
	return sb.String()
}

func kindOf(b domain.Block) VertexKind {
	switch b.(type) {
	case domain.Condition:
		return VertexDecision
	case domain.EndWorkflow:
		return VertexTerminal
	case domain.AwaitUserInput:
		return VertexInput
	default:
		return VertexProcess
	}
}

func labelOf(b domain.Block) string {
	switch blk := b.(type) {
	case domain.PresentContent:
		return blk.Content
	case domain.AwaitUserInput:
		if blk.Target == "" {
			return "Wait for input"
		}
		return "Input: " + blk.Target
	case domain.SetVariable:
		return "Set " + blk.Target + " = " + sourceLabel(blk.Source)
	case domain.UpdateVariable:
		op := blk.Operation
		if op == "" {
			op = domain.UpdateSet
		}
		return fmt.Sprintf("Update %s (%s) %s", blk.Target, op, sourceLabel(blk.Source))
	case domain.GetVariable:
		return "Get " + blk.Source
	case domain.Condition:
		if len(blk.Rules) == 0 {
			return "Condition"
		}
		rule := blk.Rules[0]
		label := rule.Variable + " " + string(rule.Operator)
		if rule.Value != nil {
			label += " " + *rule.Value
		}
		return label + "?"
	case domain.GotoNode:
		return "Go to " + blk.Target
	case domain.EndWorkflow:
		return "End"
	default:
		return string(b.Kind())
	}
}

func sourceLabel(src domain.ValueSource) string {
	switch {
	case src.IsAction():
		return src.Action + "()"
	case src.Literal != nil:
		return strconv.Quote(*src.Literal)
	default:
		return "null"
	}
}
