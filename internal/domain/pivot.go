package domain

import (
	"github.com/locvowork/pivotgrid/pkg/pivot"
)

// Viewport is the scroll state of the grid body.
type Viewport struct {
	ScrollOffset int `json:"scrollOffset"`
	Height       int `json:"height"`
}

// PivotRequest carries the raw rows and the grid state a view is computed from.
type PivotRequest struct {
	Data             []*pivot.Record  `json:"data"`
	Config           pivot.GridConfig `json:"config"`
	Filters          []pivot.Rule     `json:"filters"`
	Expanded         pivot.Expansion  `json:"expanded"`
	Sorting          []pivot.SortRule `json:"sorting"`
	ColumnVisibility map[string]bool  `json:"columnVisibility"`
	Viewport         Viewport         `json:"viewport"`
}

// Input converts the request into an engine input.
func (r *PivotRequest) Input(periodField string) pivot.Input {
	return pivot.Input{
		Rows:             r.Data,
		Config:           r.Config,
		PeriodField:      periodField,
		Filters:          r.Filters,
		Expanded:         r.Expanded,
		Sorting:          r.Sorting,
		ColumnVisibility: r.ColumnVisibility,
	}
}

// Cell is a column value of a rendered row.
type Cell struct {
	Value   interface{} `json:"value"`
	Display string      `json:"display"`
}

// RenderedRow is one row of the virtualized window.
type RenderedRow struct {
	ID     string          `json:"id"`
	Index  int             `json:"index"`
	Depth  int             `json:"depth"`
	Start  int             `json:"start"`
	Size   int             `json:"size"`
	IsLeaf bool            `json:"isLeaf"`
	Tree   pivot.TreeCell  `json:"tree"`
	Cells  map[string]Cell `json:"cells"`
}

// PivotView is the response of a grid recomputation.
type PivotView struct {
	Periods       []string             `json:"periods"`
	Columns       *pivot.ColumnModel   `json:"columns"`
	Visibility    map[string]bool      `json:"columnVisibility"`
	Sorting       []pivot.SortRule     `json:"sorting"`
	MetricOptions []pivot.MetricOption `json:"metricOptions"`
	RecordCount   int                  `json:"recordCount"`
	TotalSize     int                  `json:"totalSize"`
	Rows          []RenderedRow        `json:"rows"`
	Total         map[string]Cell      `json:"total"`
}

// MetricRequest asks to add a calculated metric to a configuration.
type MetricRequest struct {
	Config    pivot.GridConfig `json:"config"`
	Label     string           `json:"label" validate:"required"`
	Field1    string           `json:"field1" validate:"required"`
	Field2    string           `json:"field2" validate:"required"`
	Operation pivot.Operation  `json:"operation"`
}

// Draft is the metric builder draft of the request.
func (r *MetricRequest) Draft() pivot.MetricDraft {
	return pivot.MetricDraft{
		Label:     r.Label,
		Field1:    r.Field1,
		Field2:    r.Field2,
		Operation: r.Operation,
	}
}

// MetricResult is the configuration-changed event of a metric commit.
type MetricResult struct {
	Committed bool                    `json:"committed"`
	Config    pivot.GridConfig        `json:"config"`
	Metric    *pivot.CalculatedMetric `json:"metric,omitempty"`
}
