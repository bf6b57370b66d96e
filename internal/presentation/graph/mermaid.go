package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/journey/pkg/domain"
)

// maxLabel caps rendered label length; the structured graph keeps the full text.
const maxLabel = 48

// GraphOverlay contains dynamic session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	// Current is the session position; nil when the session has not started.
	Current *domain.Position
}

// OverlayFor builds an overlay from a session's history and position.
func OverlayFor(sess *domain.Session) *GraphOverlay {
	if sess == nil {
		return nil
	}
	overlay := &GraphOverlay{VisitedNodes: sess.History}
	if sess.Started() {
		pos := sess.Position()
		overlay.Current = &pos
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart from a linearized graph.
// It applies semantic styling:
// - Start/End: (["Stadium"])
// - Condition: {"Diamond"}
// - Input: [/"Parallelogram"/]
// - Default: ["Rectangle"]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(g *Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, v := range g.Vertices {
		label := escapeLabel(v.Label)
		switch v.Kind {
		case VertexDecision:
			fmt.Fprintf(&sb, "    %s{\"%s\"}\n", v.ID, label)
		case VertexStart, VertexTerminal:
			fmt.Fprintf(&sb, "    %s([\"%s\"])\n", v.ID, label)
		case VertexInput:
			fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", v.ID, label)
		case VertexPassThrough:
			fmt.Fprintf(&sb, "    %s[\"%s\"]:::passthrough\n", v.ID, label)
		default:
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", v.ID, label)
		}
	}

	for _, e := range g.Edges {
		if e.Label != "" {
			fmt.Fprintf(&sb, "    %s -->|%s| %s\n", e.From, e.Label, e.To)
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", e.From, e.To)
	}

	sb.WriteString("\n    classDef passthrough stroke-dasharray:5 5;\n")

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool, len(overlay.VisitedNodes))
		for _, id := range overlay.VisitedNodes {
			visited[id] = true
		}
		for _, v := range g.Vertices {
			if v.NodeID == "" {
				continue
			}
			if c := overlay.Current; c != nil && c.NodeID == v.NodeID && (c.BlockIndex == v.BlockIndex || v.BlockIndex < 0) {
				fmt.Fprintf(&sb, "    class %s current;\n", v.ID)
				continue
			}
			if visited[v.NodeID] {
				fmt.Fprintf(&sb, "    class %s visited;\n", v.ID)
			}
		}
	}

	return sb.String()
}

// escapeLabel makes free text safe inside a quoted Mermaid label.
func escapeLabel(s string) string {
	s = clip(firstLine(s), maxLabel)
	return strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;").Replace(s)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " ..."
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
