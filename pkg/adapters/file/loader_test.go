package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/journey/pkg/adapters/file"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.WorkflowLoader = (*file.Loader)(nil)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greeting.yaml", "nodes:\n  - id: hello\n")
	writeFile(t, dir, "named.yml", "id: onboarding\nnodes:\n  - id: a\n")
	writeFile(t, dir, "survey.json", `{"nodes":[{"id":"q1"}]}`)
	writeFile(t, dir, "broken.yaml", "nodes: [{blocks: []}]")
	writeFile(t, dir, "README.md", "# not a workflow")
	ctx := context.Background()

	l := file.NewLoader(dir)

	ids, err := l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting", "onboarding", "survey"}, ids)

	wf, err := l.Load(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", wf.Nodes[0].ID)

	wf, err = l.Load(ctx, "onboarding")
	require.NoError(t, err)
	assert.Equal(t, "a", wf.Nodes[0].ID)

	_, err = l.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	_, err = l.Load(ctx, "broken")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "flow.json", `{"nodes":[{"id":"a","blocks":[{"type":"END_WORKFLOW"}]}]}`)

	wf, err := file.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "flow", wf.ID)
	assert.Equal(t, domain.EndWorkflow{}, wf.Nodes[0].Blocks[0])

	_, err = file.LoadFile(writeFile(t, dir, "flow.txt", "x"))
	assert.ErrorContains(t, err, "unsupported workflow file")

	_, err = file.LoadFile(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoader_MissingDir(t *testing.T) {
	_, err := file.NewLoader(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	assert.Error(t, err)
}
