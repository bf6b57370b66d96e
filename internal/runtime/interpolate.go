package runtime

import (
	"regexp"

	"github.com/aretw0/journey/pkg/domain"
)

var placeholder = regexp.MustCompile(`\{([\w\s]+)\}`)

// Interpolate replaces {name} placeholders with the bound values.
// Placeholders for unbound or null variables are left untouched.
func Interpolate(text string, vars domain.Bindings) string {
	if len(vars) == 0 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		v, ok := vars.Get(m[1 : len(m)-1])
		if !ok || v.IsNull() {
			return m
		}
		return v.String()
	})
}

// InterpolateArgs deep-copies action arguments, interpolating every string.
// A string that is exactly one bound placeholder is replaced by the bound
// value itself, keeping its type.
func InterpolateArgs(args map[string]any, vars domain.Bindings) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = interpolateAny(v, vars)
	}
	return out
}

func interpolateAny(v any, vars domain.Bindings) any {
	switch t := v.(type) {
	case string:
		if m := placeholder.FindStringSubmatch(t); m != nil && m[0] == t {
			if bound, ok := vars.Get(m[1]); ok && !bound.IsNull() {
				return bound.Interface()
			}
		}
		return Interpolate(t, vars)
	case map[string]any:
		return InterpolateArgs(t, vars)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = interpolateAny(item, vars)
		}
		return out
	default:
		return v
	}
}
