package classifier

import (
	"encoding/json"
	"math"
	"strings"

	"monzo-manager/src/apperrors"
)

// Operator is one of the six comparison operators a rule may use.
type Operator int

const (
	Equal Operator = iota
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
)

var operatorSymbols = map[string]Operator{
	"=":  Equal,
	"==": Equal,
	"!=": NotEqual,
	"≠":  NotEqual,
	"<":  Less,
	"<=": LessEqual,
	"≤":  LessEqual,
	">":  Greater,
	">=": GreaterEqual,
	"≥":  GreaterEqual,
}

func ParseOperator(s string) (Operator, error) {
	op, ok := operatorSymbols[strings.TrimSpace(s)]
	if !ok {
		return 0, apperrors.Configuration("unknown rule operator %q", s)
	}
	return op, nil
}

func (op Operator) String() string {
	switch op {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	default:
		return "?"
	}
}

func (op Operator) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.String())
}

// Apply evaluates "value op literal". Numbers compare numerically and strings
// lexicographically. Values of different kinds are never equal or ordered.
func (op Operator) Apply(value, literal any) bool {
	c, ok := compare(value, literal)
	if !ok {
		return op == NotEqual
	}
	switch op {
	case Equal:
		return c == 0
	case NotEqual:
		return c != 0
	}
	if c == unordered {
		return false
	}
	switch op {
	case Less:
		return c < 0
	case LessEqual:
		return c <= 0
	case Greater:
		return c > 0
	case GreaterEqual:
		return c >= 0
	}
	return false
}

// unordered is returned by compare for values that can only be tested for equality.
const unordered = 2

// compare returns -1, 0 or 1 for ordered values, 0 or unordered for equality-only
// values, and false when the two values are of different kinds.
func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok || math.IsNaN(af) || math.IsNaN(bf) {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		return unordered, true
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	}
	return 0, false
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
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
