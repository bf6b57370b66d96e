package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/journey/internal/runtime"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("greeting").Name("Greeting").Uses("name")

	b.Node("start").
		Present("Hello, DSL!")

	b.Node("ask_name").
		Await("name", "What is your name?")

	b.Node("greet").
		Present("Nice to meet you, {name}!").
		End()

	wf, issues, err := b.Workflow()
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.Equal(t, "greeting", wf.ID)
	assert.Equal(t, "Greeting", wf.Name)
	assert.Equal(t, []string{"name"}, wf.Variables)
	require.Len(t, wf.Nodes, 3)
	assert.Equal(t, []string{"start", "ask_name", "greet"}, []string{wf.Nodes[0].ID, wf.Nodes[1].ID, wf.Nodes[2].ID})
	assert.Equal(t, domain.AwaitUserInput{Target: "name", Prompt: "What is your name?"}, wf.Nodes[1].Blocks[0])
	assert.Equal(t, domain.EndWorkflow{}, wf.Nodes[2].Blocks[1])
}

func TestBuilder_NodeReuse(t *testing.T) {
	b := New("reuse")
	b.Node("a").Set("x", "1")
	b.Node("b").End()
	b.Node("a").Append("x", "2")

	wf, _, err := b.Workflow()
	require.NoError(t, err)
	require.Len(t, wf.Nodes, 2)
	assert.Equal(t, "a", wf.Nodes[0].ID)
	require.Len(t, wf.Nodes[0].Blocks, 2)

	upd, ok := wf.Nodes[0].Blocks[1].(domain.UpdateVariable)
	require.True(t, ok)
	assert.Equal(t, domain.UpdateAppend, upd.Operation)
	assert.Equal(t, "2", *upd.Source.Literal)
}

func TestBuilder_Condition(t *testing.T) {
	b := New("gate")
	b.Node("check").
		Set("role", "admin").
		If("role", domain.OpEquals, "ADMIN").
		Then(Goto("admin")).
		Else(Present("Welcome, guest."), End()).
		Node().
		Present("unreachable")
	b.Node("admin").Present("Hello, administrator.").End()

	wf, _, err := b.Workflow()
	require.NoError(t, err)

	cond, ok := wf.Nodes[0].Blocks[1].(domain.Condition)
	require.True(t, ok)
	require.Len(t, cond.Rules, 1)
	rule := cond.Rules[0]
	assert.Equal(t, "role", rule.Variable)
	assert.Equal(t, "ADMIN", *rule.Value)
	assert.Equal(t, []domain.Block{domain.GotoNode{Target: "admin"}}, rule.Then)
	assert.Len(t, rule.Else, 2)
	assert.Equal(t, domain.PresentContent{Content: "unreachable"}, wf.Nodes[0].Blocks[2])

	res, err := runtime.NewEngine(nil).Step(context.Background(), wf, runtime.NewEngine(nil).Start(wf))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Session.Status)
	assert.Equal(t, []string{"check", "admin"}, res.Session.History)
}

func TestBuilder_Invalid(t *testing.T) {
	b := New("broken")
	b.Node("a").Goto("nowhere")

	wf, issues, err := b.Workflow()
	assert.Error(t, err)
	assert.Nil(t, wf)
	require.NotEmpty(t, issues)
	assert.Equal(t, schema.IssueDanglingTarget, issues[0].Code)

	_, err = b.Loader()
	assert.Error(t, err)
}

func TestBuilder_Loader(t *testing.T) {
	b := New("lookup")
	b.Node("a").
		SetFrom("id", "new_id", map[string]any{"prefix": "X-"}).
		Get("id").
		End()

	loader, err := b.Loader()
	require.NoError(t, err)

	wf, err := loader.Load(context.Background(), "lookup")
	require.NoError(t, err)
	set, ok := wf.Nodes[0].Blocks[0].(domain.SetVariable)
	require.True(t, ok)
	assert.Equal(t, "new_id", set.Source.Action)
	assert.Equal(t, "X-", set.Source.Args["prefix"])
	assert.Equal(t, domain.GetVariable{Source: "id"}, wf.Nodes[0].Blocks[1])
}
