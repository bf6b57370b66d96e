package graph_test

import (
	"context"
	"testing"

	"github.com/aretw0/journey/internal/presentation/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderImage_SVG(t *testing.T) {
	out, err := graph.RenderImage(context.Background(), graph.Linearize(sample()), graph.FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<svg")
	assert.Contains(t, string(out), "n_intro_b2")
}

func TestRenderImage_UnsupportedFormat(t *testing.T) {
	_, err := graph.RenderImage(context.Background(), graph.Linearize(sample()), "gif")
	assert.Error(t, err)
}
