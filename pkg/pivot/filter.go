package pivot

import (
	"strconv"
	"strings"
)

// Operator names a filter condition.
type Operator string

const (
	OpNone Operator = ""

	OpGreater      Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpLess         Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "neq"
	OpBetween      Operator = "between"

	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpEquals     Operator = "equals"

	OpCompareGreater      Operator = "compare_gt"
	OpCompareGreaterEqual Operator = "compare_gte"
	OpCompareLess         Operator = "compare_lt"
	OpCompareLessEqual    Operator = "compare_lte"
	OpCompareEqual        Operator = "compare_eq"
)

// IsCompare reports a column-to-column operator.
func (o Operator) IsCompare() bool {
	return strings.HasPrefix(string(o), "compare_")
}

// IsNumeric reports an operator that always compares numbers.
// neq is shared with the string family and is numeric only for numeric cells.
func (o Operator) IsNumeric() bool {
	switch o {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual, OpBetween:
		return true
	}
	return false
}

// NumericOperators and TextOperators list the choices offered by the filter panel.
var (
	NumericOperators = []Operator{
		OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual, OpNotEqual, OpBetween,
		OpCompareGreater, OpCompareGreaterEqual, OpCompareLess, OpCompareLessEqual, OpCompareEqual,
	}
	TextOperators = []Operator{OpContains, OpStartsWith, OpEndsWith, OpEquals, OpNotEqual}
)

// TargetLevel selects where a rule applies: "leaf" or "all" before grouping,
// a decimal depth ("0", "1", ...) after grouping. Empty means depth 0.
type TargetLevel string

const (
	TargetLeaf TargetLevel = "leaf"
	TargetAll  TargetLevel = "all"
)

// Depth returns the hierarchy depth a group rule targets.
func (t TargetLevel) Depth() (int, bool) {
	if t == "" {
		return 0, true
	}
	d, err := strconv.Atoi(string(t))
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// IsRowLevel reports a rule evaluated against pivoted rows before grouping.
func (t TargetLevel) IsRowLevel() bool {
	return t == TargetLeaf || t == TargetAll
}

// LevelTarget returns the TargetLevel for a hierarchy depth.
func LevelTarget(depth int) TargetLevel {
	return TargetLevel(strconv.Itoa(depth))
}

// Rule is a single user-authored filter condition.
type Rule struct {
	ID           string      `json:"id"`
	Field        string      `json:"field"`
	Operator     Operator    `json:"operator"`
	Value        interface{} `json:"value"`
	Value2       interface{} `json:"value2,omitempty"`
	CompareField string      `json:"compareField,omitempty"`
	TargetLevel  TargetLevel `json:"targetLevel,omitempty"`
}

// ValueGetter resolves a column value for a leaf row or a group node.
type ValueGetter interface {
	GetValue(field string) interface{}
}

// RecordGetter reads raw record fields.
type RecordGetter struct{ *Record }

// GetValue implements ValueGetter.
func (g RecordGetter) GetValue(field string) interface{} {
	v, _ := g.Get(field)
	return v
}

// EvaluateRule decides whether row satisfies rule. Incomplete rules are satisfied.
func EvaluateRule(row ValueGetter, rule Rule) bool {
	if rule.Operator == OpNone {
		return true
	}

	raw := row.GetValue(rule.Field)
	num := 0.0
	rawIsNumber := false
	if f, ok := normalizeScalar(raw).(float64); ok {
		num, rawIsNumber = f, true
	}

	if rule.Operator.IsCompare() {
		if rule.CompareField == "" {
			return true
		}
		other := 0.0
		if f, ok := normalizeScalar(row.GetValue(rule.CompareField)).(float64); ok {
			other = f
		}
		switch rule.Operator {
		case OpCompareGreater:
			return num > other
		case OpCompareGreaterEqual:
			return num >= other
		case OpCompareLess:
			return num < other
		case OpCompareLessEqual:
			return num <= other
		case OpCompareEqual:
			return num == other
		}
		return true
	}

	if rawIsNumber || rule.Operator.IsNumeric() {
		term, ok := parseTerm(rule.Value)
		if !ok {
			return true
		}
		switch rule.Operator {
		case OpGreater:
			return num > term
		case OpGreaterEqual:
			return num >= term
		case OpLess:
			return num < term
		case OpLessEqual:
			return num <= term
		case OpEqual:
			return num == term
		case OpNotEqual:
			return num != term
		case OpBetween:
			upper, ok := parseTerm(rule.Value2)
			if !ok {
				return true
			}
			return num >= term && num <= upper
		}
		return true
	}

	term := strings.ToLower(text(rule.Value))
	if term == "" {
		return true
	}
	value := strings.ToLower(text(raw))
	switch rule.Operator {
	case OpContains:
		return strings.Contains(value, term)
	case OpStartsWith:
		return strings.HasPrefix(value, term)
	case OpEndsWith:
		return strings.HasSuffix(value, term)
	case OpEquals:
		return value == term
	case OpNotEqual:
		return value != term
	}
	return true
}

// EvaluateAll reports whether row satisfies every rule.
func EvaluateAll(row ValueGetter, rules []Rule) bool {
	for _, r := range rules {
		if !EvaluateRule(row, r) {
			return false
		}
	}
	return true
}
