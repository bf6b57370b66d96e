package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/journey/internal/logging"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := Build(testConfig(t, map[string]any{"store.driver": "file", "store.dir": t.TempDir()}), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRunSession_Text(t *testing.T) {
	app := newTestApp(t)

	var out bytes.Buffer
	sess, err := app.RunSession(context.Background(), RunOptions{
		WorkflowID: "greeting",
		Vars:       domain.Bindings{"suffix": domain.String("!")},
		In:         strings.NewReader("Ada\n"),
		Out:        &out,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, sess.Status)
	assert.Contains(t, out.String(), "What is your name?")
	assert.Contains(t, out.String(), "Hello, Ada!")
	assert.Contains(t, out.String(), ">>> Finished at 'greet' node.")
}

func TestRunSession_SuspendAndResume(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	var out bytes.Buffer
	sess, err := app.RunSession(ctx, RunOptions{
		WorkflowID: "greeting",
		SessionID:  "demo",
		In:         strings.NewReader(""),
		Out:        &out,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingInput, sess.Status)
	assert.Contains(t, out.String(), ">>> Session 'demo' active.")
	assert.Contains(t, out.String(), "suspended at 'ask' node")

	stored, err := app.Store.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingInput, stored.Status)

	out.Reset()
	sess, err = app.RunSession(ctx, RunOptions{
		SessionID: "demo",
		In:        strings.NewReader("Bob\n"),
		Out:       &out,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, sess.Status)
	assert.Contains(t, out.String(), "Resuming session 'demo' at 'ask' node")
	assert.Contains(t, out.String(), "Hello, Bob{suffix}")

	_, err = app.RunSession(ctx, RunOptions{SessionID: "demo", In: strings.NewReader(""), Out: &out})
	assert.ErrorContains(t, err, "is completed")

	_, err = app.RunSession(ctx, RunOptions{SessionID: "demo", WorkflowID: "broken", Out: &out})
	assert.ErrorContains(t, err, "belongs to workflow")
}

func TestRunSession_JSON(t *testing.T) {
	app := newTestApp(t)

	var out bytes.Buffer
	_, err := app.RunSession(context.Background(), RunOptions{
		WorkflowID: "greeting",
		JSON:       true,
		In:         strings.NewReader("\"Eve\"\n"),
		Out:        &out,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	var last []domain.Action
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))

	var shown []string
	for _, a := range last {
		if a.Kind == domain.ActionContentShown {
			shown = append(shown, a.Text)
		}
	}
	assert.Equal(t, []string{"Hello, Eve{suffix}"}, shown)
	assert.NotContains(t, out.String(), ">>>")
}

func TestRunSession_Errors(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	var out bytes.Buffer

	_, err := app.RunSession(ctx, RunOptions{Out: &out})
	assert.ErrorContains(t, err, "workflow id is required")

	_, err = app.RunSession(ctx, RunOptions{WorkflowID: "missing", Out: &out})
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	sess, err := app.RunSession(ctx, RunOptions{WorkflowID: "broken", In: strings.NewReader(""), Out: &out})
	assert.ErrorIs(t, err, ErrSessionFailed)
	require.NotNil(t, sess)
	assert.Equal(t, domain.CodeDanglingReference, sess.Error.Code)
}

func TestRunSession_Cancelled(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := app.RunSession(ctx, RunOptions{WorkflowID: "greeting", In: strings.NewReader(""), Out: &out})
	assert.NoError(t, err)
}

func TestParseVars(t *testing.T) {
	vars, err := ParseVars(`{"name":"Ada","age":36,"admin":true}`)
	require.NoError(t, err)
	assert.Equal(t, domain.String("Ada"), vars["name"])
	assert.Equal(t, domain.Number(36), vars["age"])
	assert.Equal(t, domain.Bool(true), vars["admin"])

	vars, err = ParseVars("")
	require.NoError(t, err)
	assert.Nil(t, vars)

	_, err = ParseVars("{not json")
	assert.Error(t, err)
}
