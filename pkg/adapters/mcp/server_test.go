package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/journey/internal/runtime"
	"github.com/aretw0/journey/pkg/adapters/memory"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quizYAML = `
id: quiz
nodes:
  - id: ask
    blocks:
      - type: AWAIT_USER_INPUT
        target: answer
        prompt: "2 + 2 = ?"
      - type: CONDITION
        rules:
          - variable: answer
            operator: equals
            value: "4"
            then:
              - type: GOTO_NODE
                target: right
            else:
              - type: GOTO_NODE
                target: wrong
  - id: right
    blocks:
      - type: PRESENT_CONTENT
        content: "Correct, {player}!"
      - type: END_WORKFLOW
  - id: wrong
    blocks:
      - type: PRESENT_CONTENT
        content: Try again.
      - type: GOTO_NODE
        target: ask
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	loader, err := memory.NewFromDocuments(map[string]string{"quiz": quizYAML})
	require.NoError(t, err)
	mgr := session.NewManager(memory.NewStore(), loader, runtime.NewEngine(nil))
	return NewServer(mgr, WithMaxInputSize(16))
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func decodeStep(t *testing.T, result *mcp.CallToolResult) domain.StepResult {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var res domain.StepResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	return res
}

func TestListWorkflows(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleListWorkflows(context.Background(), buildRequest("list_workflows", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `["quiz"]`, resultText(t, result))
}

func TestSessionTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleStart(ctx, buildRequest("start_session", map[string]any{
		"workflow_id": "quiz",
		"variables":   map[string]any{"player": "Ada"},
	}))
	require.NoError(t, err)
	started := decodeStep(t, result)
	require.NotNil(t, started.Session)
	assert.Equal(t, domain.StatusAwaitingInput, started.Session.Status)
	id := started.Session.ID

	result, err = s.handleInput(ctx, buildRequest("provide_input", map[string]any{
		"session_id": id,
		"value":      "5",
	}))
	require.NoError(t, err)
	wrong := decodeStep(t, result)
	assert.Equal(t, domain.StatusAwaitingInput, wrong.Session.Status)

	result, err = s.handleInput(ctx, buildRequest("provide_input", map[string]any{
		"session_id": id,
		"request_id": wrong.Session.Pending.ID,
		"value":      "4",
	}))
	require.NoError(t, err)
	done := decodeStep(t, result)
	assert.Equal(t, domain.StatusCompleted, done.Session.Status)

	var texts []string
	for _, a := range done.Actions {
		if a.Kind == domain.ActionContentShown {
			texts = append(texts, a.Text)
		}
	}
	assert.Equal(t, []string{"Correct, Ada!"}, texts)

	result, err = s.handleGetSession(ctx, buildRequest("get_session", map[string]any{"session_id": id}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"status":"completed"`)

	result, err = s.handleStep(ctx, buildRequest("step_session", map[string]any{"session_id": id}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleStart(ctx, buildRequest("start_session", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleStart(ctx, buildRequest("start_session", map[string]any{"workflow_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "workflow not found")

	result, err = s.handleStep(ctx, buildRequest("step_session", map[string]any{"session_id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	res, err := s.handleStart(ctx, buildRequest("start_session", map[string]any{"workflow_id": "quiz"}))
	started := decodeStep(t, mustCall(t, res, err))
	result, err = s.handleInput(ctx, buildRequest("provide_input", map[string]any{
		"session_id": started.Session.ID,
		"value":      strings.Repeat("x", 17),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "input rejected")

	result, err = s.handleInput(ctx, buildRequest("provide_input", map[string]any{"session_id": started.Session.ID}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGraphTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleGraph(ctx, buildRequest("get_graph", map[string]any{"workflow_id": "quiz"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := resultText(t, result)
	assert.True(t, strings.HasPrefix(text, "graph TD"))
	assert.Contains(t, text, "-->|YES|")

	result, err = s.handleGraph(ctx, buildRequest("get_graph", map[string]any{"workflow_id": "quiz", "format": "json"}))
	require.NoError(t, err)
	var g map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &g))
	assert.Contains(t, g, "vertices")

	res, err := s.handleStart(ctx, buildRequest("start_session", map[string]any{"workflow_id": "quiz"}))
	started := decodeStep(t, mustCall(t, res, err))
	result, err = s.handleGraph(ctx, buildRequest("get_graph", map[string]any{"session_id": started.Session.ID}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "current;")

	result, err = s.handleGraph(ctx, buildRequest("get_graph", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func mustCall(t *testing.T, result *mcp.CallToolResult, err error) *mcp.CallToolResult {
	t.Helper()
	require.NoError(t, err)
	return result
}
