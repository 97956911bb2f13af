package automation

import (
	"fmt"
	"strings"

	"github.com/hupe1980/automesh/core"
)

// EvaluateConditions reports whether an input payload satisfies a condition
// list. An empty list always passes. Conditions are combined sequentially:
// condition i's Logic operator joins its accumulated result with condition
// i+1. OR short-circuits once the accumulated result is true, AND once it
// is false.
func EvaluateConditions(conditions []core.Condition, input map[string]any) bool {
	if len(conditions) == 0 {
		return true
	}

	result := evaluateCondition(conditions[0], input)
	for i := 1; i < len(conditions); i++ {
		logic := conditions[i-1].Logic
		if logic == "" {
			logic = core.LogicAnd
		}
		switch logic {
		case core.LogicOr:
			if result {
				return true
			}
			result = evaluateCondition(conditions[i], input)
		default:
			if !result {
				return false
			}
			result = result && evaluateCondition(conditions[i], input)
		}
	}

	return result
}

func evaluateCondition(c core.Condition, input map[string]any) bool {
	value, ok := resolvePath(input, c.Field)

	switch c.Op {
	case core.OpExists:
		return ok
	case core.OpNotExists:
		return !ok
	}
	if !ok {
		return false
	}

	switch c.Op {
	case core.OpEquals:
		return looseEqual(value, c.Value)
	case core.OpNotEquals:
		return !looseEqual(value, c.Value)
	case core.OpContains:
		return strings.Contains(stringify(value), stringify(c.Value))
	case core.OpGreaterThan:
		a, aok := toFloat(value)
		b, bok := toFloat(c.Value)
		return aok && bok && a > b
	case core.OpLessThan:
		a, aok := toFloat(value)
		b, bok := toFloat(c.Value)
		return aok && bok && a < b
	default:
		return false
	}
}

// resolvePath walks a dot-separated path through nested map[string]any
// values. It returns false when any segment is missing or a non-map value
// is reached before the final segment.
func resolvePath(input map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = input
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// looseEqual compares two values, treating all numeric types as float64 so
// JSON-decoded numbers compare equal to typed Go numbers.
func looseEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return stringify(a) == stringify(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
