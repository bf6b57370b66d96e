package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/journey/internal/presentation/graph"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	g := graph.Linearize(sample())
	got := graph.GenerateMermaid(g, nil)

	tests := []struct {
		name string
		want string
	}{
		{"header", "graph TD\n"},
		{"start shape", `start(["Start"])`},
		{"decision shape", `n_intro_b2{"age greater_than 18?"}`},
		{"input shape", `n_intro_b1[/"Input: age"/]`},
		{"terminal shape", `n_minor_b0(["End"])`},
		{"pass-through", `n_waypoint["waypoint"]:::passthrough`},
		{"labeled edge", "n_intro_b2 -->|YES| n_adult_b0"},
		{"plain edge", "start --> n_intro_b0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(got, tt.want) {
				t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, tt.want)
			}
		})
	}
	assert.NotContains(t, got, "Overlay Styles")
}

func TestGenerateMermaid_EscapesLabels(t *testing.T) {
	wf := &domain.Workflow{Nodes: []domain.Node{{ID: "n", Blocks: []domain.Block{
		domain.PresentContent{Content: "Say \"hi\" <now>\nsecond line"},
		domain.PresentContent{Content: strings.Repeat("x", 100)},
	}}}}
	got := graph.GenerateMermaid(graph.Linearize(wf), nil)

	assert.Contains(t, got, `n_n_b0["Say #quot;hi#quot; #lt;now#gt; ..."]`)
	assert.Contains(t, got, `n_n_b1["`+strings.Repeat("x", 45)+`..."]`)
	assert.NotContains(t, got, "second line")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g := graph.Linearize(sample())
	sess := &domain.Session{
		CurrentNodeID: "intro",
		BlockIndex:    1,
		History:       []string{"intro"},
	}
	got := graph.GenerateMermaid(g, graph.OverlayFor(sess))

	assert.Contains(t, got, "classDef visited")
	assert.Contains(t, got, "class n_intro_b1 current;")
	assert.Contains(t, got, "class n_intro_b0 visited;")
	assert.Contains(t, got, "class n_intro_b2 visited;")
	assert.NotContains(t, got, "class n_adult_b0")

	assert.Nil(t, graph.OverlayFor(nil))
	assert.Nil(t, graph.OverlayFor(domain.NewSession("s", "w")).Current)
}
