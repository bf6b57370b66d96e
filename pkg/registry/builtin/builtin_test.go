package builtin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/journey/pkg/registry"
	"github.com/aretw0/journey/pkg/registry/builtin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(opts ...builtin.Option) *registry.Registry {
	r := registry.NewRegistry()
	builtin.Register(r, opts...)
	return r
}

func TestRegister_Catalog(t *testing.T) {
	defs := newRegistry().Definitions()

	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
		assert.Equal(t, "builtin", d.Category)
		assert.NotEmpty(t, d.Description)
	}
	assert.Equal(t, []string{"http_get", "json_query", "new_id", "now"}, names)
}

func TestHTTPGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "token", r.Header.Get("X-Api-Key"))
		w.Write([]byte(`{"city":"` + r.URL.Query().Get("q") + `"}`))
	}))
	defer srv.Close()

	r := newRegistry(builtin.WithHTTPTimeout(time.Second))
	ctx := context.Background()

	got, err := r.Execute(ctx, builtin.HTTPGet, map[string]any{
		"url":     srv.URL + "/weather",
		"query":   map[string]any{"q": "Recife"},
		"headers": map[string]any{"X-Api-Key": "token"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"city":"Recife"}`, got)

	_, err = r.Execute(ctx, builtin.HTTPGet, map[string]any{"url": srv.URL + "/missing"})
	assert.ErrorContains(t, err, "404")

	_, err = r.Execute(ctx, builtin.HTTPGet, nil)
	assert.ErrorContains(t, err, "url is required")
}

func TestJSONQuery(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	tests := []struct {
		name  string
		args  map[string]any
		want  any
		error string
	}{
		{"string input", map[string]any{"query": ".name", "input": `{"name":"Ada"}`}, "Ada", ""},
		{"map input with ints", map[string]any{"query": ".n + 1", "input": map[string]any{"n": 41}}, float64(42), ""},
		{"multiple results", map[string]any{"query": ".[]", "input": `[1,2]`}, []any{float64(1), float64(2)}, ""},
		{"no results", map[string]any{"query": "empty", "input": `{}`}, nil, ""},
		{"env is sandboxed", map[string]any{"query": "$ENV | length", "input": `{}`}, 0, ""},
		{"missing query", map[string]any{"input": `{}`}, nil, "query is required"},
		{"parse error", map[string]any{"query": ".[", "input": `{}`}, nil, "parse error"},
		{"bad input", map[string]any{"query": ".", "input": `{oops`}, nil, "not valid JSON"},
		{"runtime error", map[string]any{"query": ".a.b", "input": `{"a":"x"}`}, nil, "evaluation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Execute(ctx, builtin.JSONQuery, tt.args)
			if tt.error != "" {
				assert.ErrorContains(t, err, tt.error)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewID(t *testing.T) {
	r := newRegistry()

	got, err := r.Execute(context.Background(), builtin.NewID, map[string]any{"prefix": "ord-"})
	require.NoError(t, err)
	id := got.(string)
	require.True(t, len(id) > 4 && id[:4] == "ord-", id)
	_, err = uuid.Parse(id[4:])
	assert.NoError(t, err)
}

func TestNow(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	r := newRegistry(builtin.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	got, err := r.Execute(ctx, builtin.Now, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:30:00Z", got)

	got, err = r.Execute(ctx, builtin.Now, map[string]any{"layout": "2006-01-02"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got)
}
