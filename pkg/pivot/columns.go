package pivot

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// TreeColumnID is the synthetic hierarchy column.
const TreeColumnID = "tree_column"

// Group aggregation names accepted in valueCols.
const (
	AggSum   = "sum"
	AggAvg   = "avg"
	AggMin   = "min"
	AggMax   = "max"
	AggCount = "count"
)

// Column widths in pixels.
const (
	TreeColumnWidth    = 350
	TreeColumnMinWidth = 200
	NumberColumnWidth  = 110
	TextColumnWidth    = 150
	ColumnMinWidth     = 100
)

// Accessor reads a leaf cell.
type Accessor func(r *Record) interface{}

// Aggregator summarizes the leaves under a group.
type Aggregator func(leaves []*Record) interface{}

// Formatter renders a cell value for display.
type Formatter func(v interface{}) string

// Column is a leaf column of the grid.
type Column struct {
	ID           string `json:"id"`
	Header       string `json:"header"`
	Group        string `json:"group,omitempty"`
	Period       string `json:"period,omitempty"`
	Width        int    `json:"width"`
	MinWidth     int    `json:"minWidth"`
	IsNumber     bool   `json:"isNumber"`
	IsCalculated bool   `json:"isCalculated,omitempty"`
	IsTree       bool   `json:"isTree,omitempty"`
	IsHierarchy  bool   `json:"isHierarchy,omitempty"`
	IsPercentage bool   `json:"isPercentage,omitempty"`

	Accessor   Accessor   `json:"-"`
	Aggregator Aggregator `json:"-"`
	Formatter  Formatter  `json:"-"`
}

// Value reads the column from a leaf record.
func (c *Column) Value(r *Record) interface{} {
	if c.Accessor != nil {
		return c.Accessor(r)
	}
	v, _ := r.Get(c.ID)
	return v
}

// Format renders v with the column formatter.
func (c *Column) Format(v interface{}) string {
	if c.Formatter != nil {
		return c.Formatter(v)
	}
	return text(v)
}

// HeaderGroup is a top-level header cell spanning one or more leaf columns.
type HeaderGroup struct {
	Label     string   `json:"label"`
	IsPeriod  bool     `json:"isPeriod,omitempty"`
	ColumnIDs []string `json:"columnIds"`
}

// ColumnModel is the ordered column list with its header groups.
type ColumnModel struct {
	Columns   []*Column     `json:"columns"`
	Groups    []HeaderGroup `json:"groups"`
	RowGroups []string      `json:"rowGroups"`
	Periods   []string      `json:"periods"`

	byID map[string]*Column
}

// Column returns the column with the given id.
func (m *ColumnModel) Column(id string) (*Column, bool) {
	if m == nil {
		return nil, false
	}
	c, ok := m.byID[id]
	return c, ok
}

// HasPeriodGroups reports a model with period header groups, which exports as two header rows.
func (m *ColumnModel) HasPeriodGroups() bool {
	for _, g := range m.Groups {
		if g.IsPeriod {
			return true
		}
	}
	return false
}

// DefaultVisibility hides the plain hierarchy columns, already shown by the tree column.
func (m *ColumnModel) DefaultVisibility() map[string]bool {
	vis := make(map[string]bool, len(m.RowGroups))
	for _, g := range m.RowGroups {
		vis[g] = false
	}
	return vis
}

// BuildColumns derives the column model from the pivoted rows.
func BuildColumns(rows []*Record, periods []string, cfg GridConfig, periodField string) *ColumnModel {
	if periodField == "" {
		periodField = DefaultPeriodField
	}
	m := &ColumnModel{
		RowGroups: append([]string(nil), cfg.RowGroups()...),
		Periods:   append([]string(nil), periods...),
		byID:      make(map[string]*Column),
	}
	if len(rows) == 0 {
		return m
	}

	hierarchy := m.RowGroups
	if len(hierarchy) > 0 {
		m.add(treeColumn(hierarchy), "")
		for _, f := range hierarchy {
			m.add(&Column{
				ID:          f,
				Header:      f,
				Width:       TextColumnWidth,
				MinWidth:    ColumnMinWidth,
				IsHierarchy: true,
				Formatter:   text,
			}, "")
		}
	}

	if len(periods) > 0 {
		for _, p := range periods {
			m.addPeriod(p, cfg, periodField)
		}
	} else {
		m.addPlain(rows[0], cfg, periodField)
	}

	for i := range cfg.CalculatedMetrics {
		metric := cfg.CalculatedMetrics[i]
		if len(periods) > 0 && metric.IsTemplate() {
			continue
		}
		m.add(metricColumn(metric.Name, "", metric, metric.Field1, metric.Field2), "")
	}
	return m
}

func (m *ColumnModel) add(c *Column, group string) {
	c.Group = group
	m.Columns = append(m.Columns, c)
	m.byID[c.ID] = c
	if group == "" {
		m.Groups = append(m.Groups, HeaderGroup{Label: c.Header, ColumnIDs: []string{c.ID}})
		return
	}
	last := len(m.Groups) - 1
	if last >= 0 && m.Groups[last].IsPeriod && m.Groups[last].Label == group {
		m.Groups[last].ColumnIDs = append(m.Groups[last].ColumnIDs, c.ID)
		return
	}
	m.Groups = append(m.Groups, HeaderGroup{Label: group, IsPeriod: true, ColumnIDs: []string{c.ID}})
}

func (m *ColumnModel) addPeriod(period string, cfg GridConfig, periodField string) {
	for _, vc := range cfg.valueFields(periodField) {
		id := period + "_" + vc.Field
		m.add(&Column{
			ID:         id,
			Header:     vc.Field,
			Period:     period,
			Width:      NumberColumnWidth,
			MinWidth:   ColumnMinWidth,
			IsNumber:   true,
			Aggregator: fieldAggregator(id, vc.AggFunc),
			Formatter:  FormatNumber,
		}, period)
	}
	for i := range cfg.CalculatedMetrics {
		metric := cfg.CalculatedMetrics[i]
		if !metric.IsTemplate() {
			continue
		}
		c := metricColumn(period+"_"+metric.Name, period, metric, period+"_"+metric.Field1, period+"_"+metric.Field2)
		m.add(c, period)
	}
}

func (m *ColumnModel) addPlain(first *Record, cfg GridConfig, periodField string) {
	groups := toSet(m.RowGroups)
	var keys []string
	if cfg.AvailableFields != nil {
		for _, k := range cfg.AvailableFields {
			if !groups[k] && first.Has(k) {
				keys = append(keys, k)
			}
		}
	} else {
		for _, k := range first.Keys() {
			if !groups[k] && k != periodField {
				keys = append(keys, k)
			}
		}
	}
	for _, k := range keys {
		v, _ := first.Get(k)
		c := &Column{
			ID:       k,
			Header:   strings.ReplaceAll(k, "_", " "),
			MinWidth: ColumnMinWidth,
			IsNumber: isNumber(v),
		}
		if c.IsNumber {
			c.Width = NumberColumnWidth
			c.Aggregator = fieldAggregator(k, AggSum)
			c.Formatter = FormatNumber
		} else {
			c.Width = TextColumnWidth
			c.Formatter = text
		}
		m.add(c, "")
	}
}

func treeColumn(hierarchy []string) *Column {
	deepest := hierarchy[len(hierarchy)-1]
	return &Column{
		ID:       TreeColumnID,
		Header:   strings.ToUpper(strings.Join(hierarchy, "  >  ")),
		Width:    TreeColumnWidth,
		MinWidth: TreeColumnMinWidth,
		IsTree:   true,
		Accessor: func(r *Record) interface{} {
			v, _ := r.Get(deepest)
			return v
		},
		Formatter: text,
	}
}

func metricColumn(id, period string, metric CalculatedMetric, field1, field2 string) *Column {
	op := metric.Operation
	decimals := metric.Decimals
	if decimals <= 0 {
		decimals = 2
	}
	c := &Column{
		ID:           id,
		Header:       metric.Label,
		Period:       period,
		Width:        NumberColumnWidth,
		MinWidth:     ColumnMinWidth,
		IsNumber:     true,
		IsCalculated: true,
		IsPercentage: metric.IsPercentage(),
		Accessor: func(r *Record) interface{} {
			return op.Apply(fieldNumber(r, field1), fieldNumber(r, field2))
		},
		Aggregator: func(leaves []*Record) interface{} {
			return op.Aggregate(leaves, field1, field2)
		},
	}
	if c.IsPercentage {
		c.Formatter = func(v interface{}) string { return FormatPercent(v, decimals) }
	} else {
		c.Formatter = FormatNumber
	}
	return c
}

func fieldAggregator(field, fn string) Aggregator {
	switch fn {
	case AggAvg:
		return func(leaves []*Record) interface{} {
			if len(leaves) == 0 {
				return 0.0
			}
			var s float64
			for _, r := range leaves {
				s += fieldNumber(r, field)
			}
			return s / float64(len(leaves))
		}
	case AggMin, AggMax:
		pick := math.Min
		if fn == AggMax {
			pick = math.Max
		}
		return func(leaves []*Record) interface{} {
			var out interface{}
			for _, r := range leaves {
				v, _ := r.Get(field)
				f, ok := normalizeScalar(v).(float64)
				if !ok {
					continue
				}
				if out == nil {
					out = f
					continue
				}
				out = pick(out.(float64), f)
			}
			return out
		}
	case AggCount:
		return func(leaves []*Record) interface{} {
			return float64(len(leaves))
		}
	}
	return func(leaves []*Record) interface{} {
		var s float64
		for _, r := range leaves {
			s += fieldNumber(r, field)
		}
		return s
	}
}

var periodColumnID = regexp.MustCompile(`^(\d{4})_(.+)$`)

// MetricOption is a numeric column offered as a metric source field.
type MetricOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MetricOptions lists the numeric leaf columns a metric can be built from.
func (m *ColumnModel) MetricOptions() []MetricOption {
	var out []MetricOption
	for _, c := range m.Columns {
		if c.IsTree || c.IsHierarchy || !c.IsNumber {
			continue
		}
		label := c.Header
		if match := periodColumnID.FindStringSubmatch(c.ID); match != nil {
			label = fmt.Sprintf("[%s] %s", match[1], c.Header)
		}
		out = append(out, MetricOption{ID: c.ID, Label: label})
	}
	return out
}

// TreeIndent is the hierarchy cell indentation per depth level, in pixels.
const TreeIndent = 20

// TreeCell is the rendered hierarchy cell of a row.
type TreeCell struct {
	Field      string `json:"field"`
	Label      string `json:"label"`
	Indent     int    `json:"indent"`
	CanExpand  bool   `json:"canExpand"`
	Expanded   bool   `json:"expanded"`
	ChildCount int    `json:"childCount,omitempty"`
}

// TreeCellFor renders the hierarchy cell of n. The field is the row group at
// the node depth, clamped to the deepest level. Nodes of the deepest level
// never get a toggle, and the child count shows only next to a toggle.
func (m *ColumnModel) TreeCellFor(n *Node, expanded bool) TreeCell {
	cell := TreeCell{Indent: n.Depth * TreeIndent}
	if len(m.RowGroups) == 0 {
		cell.Label = n.Label()
		return cell
	}
	maxDepth := len(m.RowGroups) - 1
	depth := n.Depth
	if depth > maxDepth {
		depth = maxDepth
	}
	if depth < 0 {
		depth = 0
	}
	cell.Field = m.RowGroups[depth]
	cell.Label = text(n.GetValue(cell.Field))
	if n.HasChildren() && n.Depth < maxDepth {
		cell.CanExpand = true
		cell.Expanded = expanded
		cell.ChildCount = len(n.Children)
	}
	return cell
}
