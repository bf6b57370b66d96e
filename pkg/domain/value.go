package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ValueKind discriminates the dynamic type held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a variable binding: a string, a number, a boolean or null.
// The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a number.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// ValueOf converts an arbitrary Go value into a Value.
// Scalars map to their natural kind; maps and slices are JSON-encoded into a string
// so hosts can still display or forward them.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Number(f), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(t)
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return Value{}, fmt.Errorf("cannot encode %T: %w", v, err)
		}
		return String(string(raw)), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
	return String(string(raw)), nil
}

// Kind reports the dynamic type.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns the plain Go value (nil, string, float64 or bool).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// String renders the value the way it is substituted into text.
// Whole numbers print without a fractional part; null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Float coerces the value to a number. Strings are trimmed before parsing.
// Booleans and null never coerce.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return 0, false
		}
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Truth coerces the value to a boolean. Only booleans and the strings
// "true"/"false" (any case) coerce; everything else reports ok=false.
func (v Value) Truth() (value bool, ok bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// MarshalJSON encodes the value as its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a native JSON scalar. Objects and arrays are kept as JSON text.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Bindings maps variable names to values for one session.
type Bindings map[string]Value

// Get returns the binding for name and whether it exists.
func (b Bindings) Get(name string) (Value, bool) {
	v, ok := b[name]
	return v, ok
}

// Clone returns an independent copy.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Plain returns the bindings as plain Go values, for templating and transport.
func (b Bindings) Plain() map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		out[k] = v.Interface()
	}
	return out
}
