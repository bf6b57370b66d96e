package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/journey/pkg/domain"
)

// EvalWarning describes a recoverable problem found while evaluating a rule.
// The rule evaluates to false when a warning is returned.
type EvalWarning struct {
	Code    domain.ErrorCode
	Message string
}

// Evaluate compares the variable bound for rule.Variable with rule.Value.
//
// String operators compare case-insensitively and read an unbound variable as "".
// Numeric operators are false for an unbound variable, and false with a
// type_mismatch warning when either side is not numeric. is_true and is_false
// accept booleans or the strings "true"/"false".
func Evaluate(rule domain.ConditionRule, vars domain.Bindings) (bool, *EvalWarning) {
	bound, ok := vars.Get(rule.Variable)
	operand := ""
	if rule.Value != nil {
		operand = *rule.Value
	}

	switch op := rule.Operator; op {
	case domain.OpEquals:
		return strings.EqualFold(bound.String(), operand), nil
	case domain.OpNotEquals:
		return !strings.EqualFold(bound.String(), operand), nil
	case domain.OpContains:
		return strings.Contains(fold(bound.String()), fold(operand)), nil
	case domain.OpStartsWith:
		return strings.HasPrefix(fold(bound.String()), fold(operand)), nil
	case domain.OpEndsWith:
		return strings.HasSuffix(fold(bound.String()), fold(operand)), nil
	case domain.OpIsTrue, domain.OpIsFalse:
		truth, valid := bound.Truth()
		if !ok || !valid {
			return false, nil
		}
		return truth == (op == domain.OpIsTrue), nil
	case domain.OpGreaterThan, domain.OpLessThan, domain.OpGreaterThanOrEqual, domain.OpLessThanOrEqual:
		if !ok || bound.IsNull() {
			return false, nil
		}
		return compareNumbers(rule, bound, operand)
	default:
		return false, &EvalWarning{
			Code:    domain.CodeUnknownOperator,
			Message: fmt.Sprintf("unknown operator %q", string(op)),
		}
	}
}

func compareNumbers(rule domain.ConditionRule, bound domain.Value, operand string) (bool, *EvalWarning) {
	left, ok := bound.Float()
	if !ok {
		return false, mismatch(rule, fmt.Sprintf("variable %q is not numeric: %q", rule.Variable, bound.String()))
	}
	right, ok := domain.String(operand).Float()
	if !ok {
		return false, mismatch(rule, fmt.Sprintf("comparison value is not numeric: %q", operand))
	}

	switch rule.Operator {
	case domain.OpGreaterThan:
		return left > right, nil
	case domain.OpLessThan:
		return left < right, nil
	case domain.OpGreaterThanOrEqual:
		return left >= right, nil
	default:
		return left <= right, nil
	}
}

func mismatch(rule domain.ConditionRule, msg string) *EvalWarning {
	return &EvalWarning{
		Code:    domain.CodeTypeMismatch,
		Message: fmt.Sprintf("%s: %s", rule.Operator, msg),
	}
}

func fold(s string) string { return strings.ToLower(s) }
