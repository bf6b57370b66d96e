package runtime_test

import (
	"testing"

	"github.com/aretw0/journey/internal/runtime"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	vars := domain.Bindings{
		"name":      domain.String("Alice"),
		"count":     domain.Number(3),
		"ratio":     domain.Number(0.25),
		"ok":        domain.Bool(true),
		"Full Name": domain.String("Alice Smith"),
		"nothing":   domain.Null(),
	}

	tests := []struct {
		in, want string
	}{
		{"hi {name}", "hi Alice"},
		{"{count} items at {ratio}", "3 items at 0.25"},
		{"ok={ok}", "ok=true"},
		{"dear {Full Name}", "dear Alice Smith"},
		{"{unknown} stays", "{unknown} stays"},
		{"{nothing} stays", "{nothing} stays"},
		{"{name}{name}", "AliceAlice"},
		{"{not-a-placeholder}", "{not-a-placeholder}"},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, runtime.Interpolate(tt.in, vars), tt.in)
	}

	assert.Equal(t, "hi {name}", runtime.Interpolate("hi {name}", nil))
}

func TestInterpolateArgs(t *testing.T) {
	vars := domain.Bindings{
		"count": domain.Number(3),
		"name":  domain.String("Alice"),
	}
	args := map[string]any{
		"n":     "{count}",
		"label": "{name} x{count}",
		"raw":   42,
		"nested": map[string]any{
			"list": []any{"{name}", "{missing}", true},
		},
	}

	got := runtime.InterpolateArgs(args, vars)
	assert.Equal(t, float64(3), got["n"])
	assert.Equal(t, "Alice x3", got["label"])
	assert.Equal(t, 42, got["raw"])
	assert.Equal(t, []any{"Alice", "{missing}", true}, got["nested"].(map[string]any)["list"])

	// Source arguments are not modified.
	assert.Equal(t, "{count}", args["n"])
	assert.Nil(t, runtime.InterpolateArgs(nil, vars))
}
