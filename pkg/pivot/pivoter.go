package pivot

import (
	"sort"
	"strings"
)

// DefaultPeriodField is the fiscal-period column emitted by the legacy queries.
const DefaultPeriodField = "Esercizio"

// MissingPeriod labels rows whose period value is absent or empty.
const MissingPeriod = "N/A"

const compositeKeySep = "|||"

// PivotResult holds the reshaped rows and the sorted periods observed.
type PivotResult struct {
	Rows    []*Record
	Periods []string
}

// PivotRows reshapes rows carrying periodField into one row per dimension tuple,
// with measures keyed "{period}_{field}". Rows without the period field pass
// through unchanged and Periods is empty.
//
// Dimension keys are taken from the first row: every non-numeric field other than
// the period. Several raw rows sharing a tuple and a period are summed.
func PivotRows(rows []*Record, periodField string) PivotResult {
	if len(rows) == 0 {
		return PivotResult{}
	}
	if periodField == "" {
		periodField = DefaultPeriodField
	}
	if !anyHas(rows, periodField) {
		return PivotResult{Rows: rows}
	}

	var dimKeys []string
	first := rows[0]
	for _, k := range first.Keys() {
		if k == periodField {
			continue
		}
		if v, _ := first.Get(k); isNumber(v) {
			continue
		}
		dimKeys = append(dimKeys, k)
	}

	periods := make(map[string]struct{})
	index := make(map[string]*Record)
	var order []*Record

	for _, row := range rows {
		period := periodLabel(row, periodField)
		periods[period] = struct{}{}

		key := compositeKey(row, dimKeys)
		target, ok := index[key]
		if !ok {
			target = NewRecord()
			for _, k := range dimKeys {
				if v, present := row.Get(k); present {
					target.Set(k, v)
				}
			}
			index[key] = target
			order = append(order, target)
		}

		for _, k := range row.Keys() {
			if k == periodField {
				continue
			}
			v, _ := row.Get(k)
			f, ok := normalizeScalar(v).(float64)
			if !ok {
				continue
			}
			measure := period + "_" + k
			if prev, seen := target.Get(measure); seen {
				f += numberOrZero(prev)
			}
			target.Set(measure, f)
		}
	}

	sorted := make([]string, 0, len(periods))
	for p := range periods {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	return PivotResult{Rows: order, Periods: sorted}
}

func anyHas(rows []*Record, field string) bool {
	for _, r := range rows {
		if r.Has(field) {
			return true
		}
	}
	return false
}

func periodLabel(row *Record, field string) string {
	v, _ := row.Get(field)
	if f, ok := normalizeScalar(v).(float64); ok && f == 0 {
		return MissingPeriod
	}
	if s := text(v); s != "" {
		return s
	}
	return MissingPeriod
}

func compositeKey(row *Record, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		v, _ := row.Get(k)
		parts[i] = text(v)
	}
	return strings.Join(parts, compositeKeySep)
}
