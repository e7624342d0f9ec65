package pivot

import "strings"

// Operation is the arithmetic combining the two source fields of a metric.
type Operation string

const (
	OpAdd              Operation = "add"
	OpSubtract         Operation = "subtract"
	OpMultiply         Operation = "multiply"
	OpDivide           Operation = "divide"
	OpPercentageMargin Operation = "percentage_margin_on_field1"
)

// Operations lists the operations offered by the metric builder.
var Operations = []Operation{OpSubtract, OpAdd, OpMultiply, OpDivide, OpPercentageMargin}

// Valid reports a known operation.
func (o Operation) Valid() bool {
	for _, op := range Operations {
		if op == o {
			return true
		}
	}
	return false
}

// Apply evaluates the operation on one pair of values. Division by zero yields 0.
func (o Operation) Apply(v1, v2 float64) float64 {
	switch o {
	case OpSubtract:
		return v1 - v2
	case OpAdd:
		return v1 + v2
	case OpMultiply:
		return v1 * v2
	case OpDivide:
		if v2 == 0 {
			return 0
		}
		return v1 / v2
	case OpPercentageMargin:
		if v1 == 0 {
			return 0
		}
		return (v1 - v2) / v1 * 100
	}
	return 0
}

// Aggregate evaluates the operation for a group from its leaf records.
// Sums of the source fields are combined with the formula, so ratios and
// margins are never averaged. multiply is the only exception: the product of
// two sums has no meaning, so per-leaf products are summed instead.
func (o Operation) Aggregate(leaves []*Record, field1, field2 string) float64 {
	if o == OpMultiply {
		var total float64
		for _, r := range leaves {
			total += o.Apply(fieldNumber(r, field1), fieldNumber(r, field2))
		}
		return total
	}
	var s1, s2 float64
	for _, r := range leaves {
		s1 += fieldNumber(r, field1)
		s2 += fieldNumber(r, field2)
	}
	return o.Apply(s1, s2)
}

// CalculatedMetric is a user-defined column derived from two fields.
type CalculatedMetric struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Operation Operation `json:"operation"`
	Field1    string    `json:"field1"`
	Field2    string    `json:"field2"`
	Decimals  int       `json:"decimals"`
}

// IsPercentage reports a metric rendered as "N.NN%".
func (m CalculatedMetric) IsPercentage() bool {
	return strings.Contains(m.Label, "%")
}

// IsTemplate reports a metric whose fields carry no period prefix; it is
// instantiated once per period. Any underscore in a field name is read as a
// period prefix.
func (m CalculatedMetric) IsTemplate() bool {
	return !strings.Contains(m.Field1, "_") && !strings.Contains(m.Field2, "_")
}

func fieldNumber(r *Record, field string) float64 {
	v, _ := r.Get(field)
	return numberOrZero(v)
}
