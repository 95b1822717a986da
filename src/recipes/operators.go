package recipes

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"autonomity/src/datamodels"
)

type Operator string

const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
)

const equalityTolerance = 1e-9

// Compare applies op to a and b. Unknown operators compare false.
func Compare(op string, a, b float64) bool {
	switch Operator(strings.TrimSpace(op)) {
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpEqual:
		return math.Abs(a-b) < equalityTolerance
	case OpNotEqual:
		return math.Abs(a-b) >= equalityTolerance
	}
	return false
}

// conditionValue coerces a decoded literal to a number. A missing literal is 0.
func conditionValue(raw any) (float64, error) {
	if raw == nil {
		return 0, nil
	}
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	return cast.ToFloat64E(raw)
}

// EvaluateCondition is false for malformed literals and unknown operators.
func EvaluateCondition(cond datamodels.Condition, obs *datamodels.Observation) bool {
	value, err := conditionValue(cond.Value)
	if err != nil {
		return false
	}
	current := ResolveIndicator(cond.Indicator, obs)
	return Compare(cond.Op, current, value)
}
