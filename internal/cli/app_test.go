package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/journey/internal/config"
	"github.com/aretw0/journey/internal/logging"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetingFlow = `
id: greeting
nodes:
  - id: ask
    blocks:
      - type: AWAIT_USER_INPUT
        target: name
        prompt: What is your name?
  - id: greet
    blocks:
      - type: PRESENT_CONTENT
        content: "Hello, {name}{suffix}"
      - type: END_WORKFLOW
`

const brokenFlow = `
id: broken
nodes:
  - id: start
    blocks:
      - type: GOTO_NODE
        target: nowhere
`

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.yaml"), []byte(greetingFlow), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(brokenFlow), 0o644))

	cfgFile := filepath.Join(t.TempDir(), "journey.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("workflows_dir: "+dir+"\n"), 0o644))

	v := config.New()
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.Load(v, cfgFile)
	require.NoError(t, err)
	return cfg
}

func TestBuild_Stores(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		app, err := Build(testConfig(t, nil), logging.NewNop())
		require.NoError(t, err)
		defer app.Close()
		assert.Nil(t, app.Locker)
		assert.True(t, app.Engine.Registry().Has("new_id"))
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		app, err := Build(testConfig(t, map[string]any{"store.driver": "file", "store.dir": dir}), logging.NewNop())
		require.NoError(t, err)
		defer app.Close()

		mgr, err := app.Manager()
		require.NoError(t, err)
		res, err := mgr.Start(context.Background(), "greeting", nil)
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(dir, res.Session.ID+".json"))
		assert.NoError(t, err)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		app, err := Build(testConfig(t, map[string]any{
			"store.driver":     "redis",
			"store.redis.addr": mr.Addr(),
		}), logging.NewNop())
		require.NoError(t, err)
		defer app.Close()
		require.NotNil(t, app.Locker)

		mgr, err := app.Manager()
		require.NoError(t, err)
		ctx := context.Background()
		res, err := mgr.Start(ctx, "greeting", nil)
		require.NoError(t, err)

		res, err = mgr.Input(ctx, res.Session.ID, res.Session.Pending.ID, domain.String("Ada"))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, res.Session.Status)

		ids, err := app.Store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{res.Session.ID}, ids)
	})

	t.Run("builtins disabled", func(t *testing.T) {
		app, err := Build(testConfig(t, map[string]any{"actions.builtin": false}), logging.NewNop())
		require.NoError(t, err)
		assert.False(t, app.Engine.Registry().Has("new_id"))
	})
}

func TestBuild_StoreMiddleware(t *testing.T) {
	dir := t.TempDir()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	app, err := Build(testConfig(t, map[string]any{
		"store.driver":         "file",
		"store.dir":            dir,
		"store.encryption_key": key,
		"store.mask_variables": []string{"^suffix$"},
	}), logging.NewNop())
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = app.RunSession(context.Background(), RunOptions{
		WorkflowID: "greeting",
		SessionID:  "secret",
		Vars:       domain.Bindings{"suffix": domain.String("!")},
		In:         strings.NewReader("Zelda\n"),
		Out:        &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Hello, Zelda!")

	raw, err := os.ReadFile(filepath.Join(dir, "secret.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Zelda")
	assert.Contains(t, string(raw), "__encrypted__")

	stored, err := app.Store.Load(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "Zelda", stored.Variables["name"].String())
	assert.Equal(t, "***", stored.Variables["suffix"].String())

	_, err = Build(testConfig(t, map[string]any{"store.encryption_key": "short"}), logging.NewNop())
	assert.ErrorContains(t, err, "store.encryption_key")
}

func TestBuild_MetricsRecorded(t *testing.T) {
	app, err := Build(testConfig(t, nil), logging.NewNop())
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = app.RunSession(context.Background(), RunOptions{
		WorkflowID: "greeting",
		In:         strings.NewReader("Ada\n"),
		Out:        &out,
	})
	require.NoError(t, err)

	families, err := app.Metrics.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "journey_sessions_ended_total")
}

func TestBuild_ProcessTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	toolsFile := filepath.Join(t.TempDir(), "tools.yaml")
	require.NoError(t, os.WriteFile(toolsFile, []byte(`
tools:
  - name: shout
    command: sh
    args: ["-c", "echo $JOURNEY_ARG_WORD | tr a-z A-Z"]
`), 0o644))

	app, err := Build(testConfig(t, map[string]any{"actions.tools_file": toolsFile}), logging.NewNop())
	require.NoError(t, err)
	require.True(t, app.Engine.Registry().Has("shout"))

	out, err := app.Engine.Registry().Execute(context.Background(), "shout", map[string]any{"word": "hey"})
	require.NoError(t, err)
	assert.Equal(t, "HEY", out)

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	app, err = Build(testConfig(t, map[string]any{"actions.tools_file": missing}), logging.NewNop())
	require.NoError(t, err)
	assert.False(t, app.Engine.Registry().Has("shout"))
}
