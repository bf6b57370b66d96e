package runner_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipe returns a reader that never yields data until the writer is closed.
func pipe() (io.Reader, io.Closer) {
	r, w := io.Pipe()
	return r, w
}

type upper struct{}

func (upper) Content(s string) string { return strings.ToUpper(s) }
func (upper) Prompt(s string) string  { return "?" + s }
func (upper) Warning(s string) string { return "!" + s }
func (upper) Error(s string) string   { return "!!" + s }

func TestTextHandler_Output(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(strings.NewReader(""), &out, runner.WithStyler(upper{}), runner.WithVariables())

	v := domain.Number(3)
	err := h.Output(context.Background(), []domain.Action{
		{Kind: domain.ActionContentShown, Text: "hello"},
		{Kind: domain.ActionVariableChanged, Variable: "n", Value: &v},
		{Kind: domain.ActionWarning, Code: domain.CodeTypeMismatch, Text: "not a number"},
		{Kind: domain.ActionError, Code: domain.CodeActionFailed, Text: "boom"},
		{Kind: domain.ActionNavigated, NodeID: "x"},
		{Kind: domain.ActionCompleted},
	})
	require.NoError(t, err)
	assert.Equal(t, "HELLO\n  n = 3\n!warning (type_mismatch): not a number\n!!error (action_failed): boom\n", out.String())
}

func TestTextHandler_HidesVariablesByDefault(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(strings.NewReader(""), &out)

	v := domain.String("x")
	require.NoError(t, h.Output(context.Background(), []domain.Action{{Kind: domain.ActionVariableRead, Variable: "n", Value: &v}}))
	assert.Empty(t, out.String())
}

func TestTextHandler_Input(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(strings.NewReader("Ada Lovelace\r\nlast"), &out)
	ctx := context.Background()

	v, err := h.Input(ctx, &domain.InputRequest{Prompt: "Name?"})
	require.NoError(t, err)
	assert.Equal(t, domain.String("Ada Lovelace"), v)

	v, err = h.Input(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.String("last"), v, "a final line without newline still counts")

	_, err = h.Input(ctx, nil)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "Name? > > ", out.String())
}

func TestJSONHandler_Input(t *testing.T) {
	h := runner.NewJSONHandler(strings.NewReader("\"quoted\"\ntrue\nplain text\n2.5"), &bytes.Buffer{})
	ctx := context.Background()

	want := []domain.Value{domain.String("quoted"), domain.Bool(true), domain.String("plain text"), domain.Number(2.5)}
	for _, w := range want {
		v, err := h.Input(ctx, nil)
		require.NoError(t, err)
		assert.True(t, w.Equal(v), "want %v got %v", w, v)
	}
	_, err := h.Input(ctx, nil)
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONHandler_OutputSkipsEmpty(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewJSONHandler(strings.NewReader(""), &out)
	require.NoError(t, h.Output(context.Background(), nil))
	assert.Empty(t, out.String())
}
