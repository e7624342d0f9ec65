package pivot

// DefaultValueFields are the per-period measures shown when the report names none.
var DefaultValueFields = []string{"Venduto", "Costo"}

// ValueCol pairs a measure with its group aggregation.
type ValueCol struct {
	Field   string `json:"field" yaml:"field"`
	AggFunc string `json:"aggFunc" yaml:"aggFunc"`
}

// SortColumn names the column of a default sort.
type SortColumn struct {
	Field string `json:"field" yaml:"field"`
}

// DefaultSort is the report's initial ordering.
type DefaultSort struct {
	Column    SortColumn `json:"column" yaml:"column"`
	Direction string     `json:"direction" yaml:"direction"`
}

// InitialConfig is the grid layout saved with a report.
type InitialConfig struct {
	RowGroups   []string     `json:"rowGroups,omitempty" yaml:"rowGroups"`
	ValueCols   []ValueCol   `json:"valueCols,omitempty" yaml:"valueCols"`
	DefaultSort *DefaultSort `json:"defaultSort,omitempty" yaml:"defaultSort"`
}

// GridConfig is the report configuration read from ".rep" files and saved reports.
// Treat it as a value: use the With* methods, which copy before changing.
type GridConfig struct {
	InitialConfig     *InitialConfig     `json:"initialConfig,omitempty" yaml:"initialConfig"`
	AvailableFields   []string           `json:"availableFields,omitempty" yaml:"availableFields"`
	CalculatedMetrics []CalculatedMetric `json:"calculatedMetrics,omitempty" yaml:"calculatedMetrics"`
}

// RowGroups returns the hierarchy fields, outermost first.
func (c GridConfig) RowGroups() []string {
	if c.InitialConfig == nil {
		return nil
	}
	return c.InitialConfig.RowGroups
}

// ValueCols returns the configured measures.
func (c GridConfig) ValueCols() []ValueCol {
	if c.InitialConfig == nil {
		return nil
	}
	return c.InitialConfig.ValueCols
}

// InitialSorting converts the default sort, if any, into a sorting state.
func (c GridConfig) InitialSorting() []SortRule {
	if c.InitialConfig == nil || c.InitialConfig.DefaultSort == nil {
		return nil
	}
	ds := c.InitialConfig.DefaultSort
	if ds.Column.Field == "" {
		return nil
	}
	return []SortRule{{ColumnID: ds.Column.Field, Desc: ds.Direction == "desc"}}
}

// Clone returns a deep copy.
func (c GridConfig) Clone() GridConfig {
	out := GridConfig{
		AvailableFields:   append([]string(nil), c.AvailableFields...),
		CalculatedMetrics: append([]CalculatedMetric(nil), c.CalculatedMetrics...),
	}
	if c.AvailableFields == nil {
		out.AvailableFields = nil
	}
	if c.CalculatedMetrics == nil {
		out.CalculatedMetrics = nil
	}
	if c.InitialConfig != nil {
		ic := &InitialConfig{
			RowGroups: append([]string(nil), c.InitialConfig.RowGroups...),
			ValueCols: append([]ValueCol(nil), c.InitialConfig.ValueCols...),
		}
		if c.InitialConfig.DefaultSort != nil {
			ds := *c.InitialConfig.DefaultSort
			ic.DefaultSort = &ds
		}
		out.InitialConfig = ic
	}
	return out
}

// WithMetric returns a copy with m appended to the calculated metrics.
func (c GridConfig) WithMetric(m CalculatedMetric) GridConfig {
	out := c.Clone()
	out.CalculatedMetrics = append(out.CalculatedMetrics, m)
	return out
}

// WithRowGroups returns a copy with a new hierarchy.
func (c GridConfig) WithRowGroups(groups []string) GridConfig {
	out := c.Clone()
	if out.InitialConfig == nil {
		out.InitialConfig = &InitialConfig{}
	}
	out.InitialConfig.RowGroups = append([]string(nil), groups...)
	return out
}

// valueFields resolves the per-period measures and their aggregation.
func (c GridConfig) valueFields(periodField string) []ValueCol {
	groups := toSet(c.RowGroups())
	if c.AvailableFields != nil {
		var out []ValueCol
		for _, f := range c.AvailableFields {
			if groups[f] || f == periodField {
				continue
			}
			out = append(out, ValueCol{Field: f, AggFunc: AggSum})
		}
		return out
	}
	if vc := c.ValueCols(); len(vc) > 0 {
		out := make([]ValueCol, 0, len(vc))
		for _, v := range vc {
			if v.Field == "" || groups[v.Field] || v.Field == periodField {
				continue
			}
			out = append(out, v)
		}
		return out
	}
	out := make([]ValueCol, len(DefaultValueFields))
	for i, f := range DefaultValueFields {
		out[i] = ValueCol{Field: f, AggFunc: AggSum}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
