package graph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// ImageFormat selects the output of RenderImage.
type ImageFormat string

const (
	FormatSVG ImageFormat = "svg"
	FormatPNG ImageFormat = "png"
)

// RenderImage lays out the graph with graphviz (dot) and renders it.
func RenderImage(ctx context.Context, g *Graph, format ImageFormat) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, fmt.Errorf("graph: unsupported image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("graph: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)

	nodes := make(map[string]*cgraph.Node, len(g.Vertices))
	for _, v := range g.Vertices {
		n, err := graph.CreateNodeByName(v.ID)
		if err != nil {
			return nil, fmt.Errorf("graph: create node %s: %w", v.ID, err)
		}
		n.SetLabel(clip(firstLine(v.Label), maxLabel))
		applyShape(n, v.Kind)
		nodes[v.ID] = n
	}

	for _, e := range g.Edges {
		from, to := nodes[e.From], nodes[e.To]
		if from == nil || to == nil {
			continue
		}
		edge, err := graph.CreateEdgeByName("", from, to)
		if err != nil {
			return nil, fmt.Errorf("graph: create edge %s -> %s: %w", e.From, e.To, err)
		}
		if e.Label != "" {
			edge.SetLabel(e.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("graph: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func applyShape(n *cgraph.Node, kind VertexKind) {
	switch kind.Shape() {
	case ShapeDiamond:
		n.SetShape(cgraph.DiamondShape)
	case ShapeRounded:
		n.SetShape(cgraph.BoxShape)
		n.SetStyle(cgraph.RoundedNodeStyle)
	default:
		n.SetShape(cgraph.BoxShape)
	}
	switch kind {
	case VertexInput:
		n.SetShape(cgraph.ParallelogramShape)
	case VertexPassThrough:
		n.SetStyle(cgraph.DashedNodeStyle)
	}
}
