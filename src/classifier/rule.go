package classifier

import "strings"

// MissingFieldPolicy decides how a rule treats a transaction that lacks its field.
type MissingFieldPolicy int

const (
	// MissingFieldPass skips the rule.
	MissingFieldPass MissingFieldPolicy = iota
	// MissingFieldFail counts the rule as failed.
	MissingFieldFail
)

func ParseMissingFieldPolicy(s string) (MissingFieldPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "skip":
		return MissingFieldPass, true
	case "fail":
		return MissingFieldFail, true
	default:
		return MissingFieldPass, false
	}
}

func (p MissingFieldPolicy) String() string {
	if p == MissingFieldFail {
		return "fail"
	}
	return "pass"
}

// Rule tests one flattened field against a literal.
type Rule struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

func (r Rule) Matches(value any) bool {
	return r.Operator.Apply(value, r.Value)
}
