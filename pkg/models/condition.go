// Package models provides conditional transition evaluation for workflow routing.
package models

import (
	"fmt"
	"strings"
)

// conditionOperators in match order. Two-character operators come first so
// ">=" is not split as ">".
var conditionOperators = []string{"==", "!=", ">=", "<=", ">", "<"}

// EvaluateCondition evaluates a transition condition against the execution
// data bag. The grammar is a single comparison: the left operand is a data
// bag key, the right operand is a literal (surrounding quotes stripped).
//
// Only equality semantics are supported: "==" and "!=" compare the stringified
// bag value against the literal. The ordered operators are recognized by the
// parser but rejected, since comparing arbitrary bag values as strings gives
// surprising orderings.
func EvaluateCondition(condition string, data map[string]any) (bool, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return false, fmt.Errorf("empty condition")
	}

	for _, op := range conditionOperators {
		idx := strings.Index(condition, op)
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(condition[:idx])
		literal := trimQuotes(strings.TrimSpace(condition[idx+len(op):]))

		if key == "" {
			return false, fmt.Errorf("condition %q has no left operand", condition)
		}

		value, ok := data[key]
		if !ok {
			// Absent keys never satisfy a condition.
			return false, nil
		}

		switch op {
		case "==":
			return stringify(value) == literal, nil
		case "!=":
			return stringify(value) != literal, nil
		default:
			return false, fmt.Errorf("condition operator %q is not supported, use == or !=", op)
		}
	}

	return false, fmt.Errorf("condition %q has no comparison operator", condition)
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}

	return s
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
