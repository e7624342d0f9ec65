package pivot

import (
	"sync"
	"time"
)

// Input is everything a grid view is computed from.
type Input struct {
	Rows        []*Record
	Config      GridConfig
	PeriodField string
	Filters     []Rule
	Expanded    Expansion
	// Sorting nil falls back to the configured default sort.
	Sorting []SortRule
	// ColumnVisibility nil hides the plain hierarchy columns.
	ColumnVisibility map[string]bool
}

// View is a fully computed grid.
type View struct {
	Rows       []*Record
	Periods    []string
	Columns    *ColumnModel
	Visibility map[string]bool
	Sorting    []SortRule
	Expanded   Expansion
	Rules      RuleSet
	Tree       *Tree
	// Visible is the flattened row set in display order.
	Visible []*Node
}

// Compute runs the whole pipeline: pivot, columns, row filters, grouping,
// sorting, group filters and flattening. It has no side effects.
func Compute(in Input) *View {
	pivoted := PivotRows(in.Rows, in.PeriodField)
	columns := BuildColumns(pivoted.Rows, pivoted.Periods, in.Config, in.PeriodField)
	rules := SplitRules(in.Filters)

	filtered := FilterRows(pivoted.Rows, rules.Row, columns)
	tree := BuildTree(filtered, columns)

	sorting := in.Sorting
	if sorting == nil {
		sorting = in.Config.InitialSorting()
	}
	tree.Sort(sorting)

	visibility := in.ColumnVisibility
	if visibility == nil {
		visibility = columns.DefaultVisibility()
	}

	return &View{
		Rows:       pivoted.Rows,
		Periods:    pivoted.Periods,
		Columns:    columns,
		Visibility: visibility,
		Sorting:    sorting,
		Expanded:   in.Expanded,
		Rules:      rules,
		Tree:       tree,
		Visible:    Flatten(tree, rules, in.Expanded),
	}
}

// IsVisible reports whether a column is shown. Columns default to visible.
func (v *View) IsVisible(id string) bool {
	shown, ok := v.Visibility[id]
	return !ok || shown
}

// VisibleColumns lists the shown leaf columns, the tree column included.
func (v *View) VisibleColumns() []*Column {
	out := make([]*Column, 0, len(v.Columns.Columns))
	for _, c := range v.Columns.Columns {
		if v.IsVisible(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

// Keys are the stable ids of the visible rows.
func (v *View) Keys() []string {
	keys := make([]string, len(v.Visible))
	for i, n := range v.Visible {
		keys[i] = n.ID
	}
	return keys
}

// ExportNodes is the row set written to a workbook.
func (v *View) ExportNodes() []*Node {
	return ExportNodes(v.Tree, v.Rules)
}

// Option configures a Grid.
type Option func(*Grid)

// WithPeriodField overrides the pivot field.
func WithPeriodField(field string) Option {
	return func(g *Grid) { g.periodField = field }
}

// WithFilterDebounce sets the quiet period of EditFilter.
func WithFilterDebounce(d time.Duration) Option {
	return func(g *Grid) { g.filters.SetEditDelay(d) }
}

// WithConfigChange registers the callback receiving every new configuration
// produced by the grid, such as after a metric commit.
func WithConfigChange(fn func(GridConfig)) Option {
	return func(g *Grid) { g.onConfigChange = fn }
}

// Grid is the interactive state of a grid over one result set. Every change
// recomputes the view synchronously.
type Grid struct {
	mu sync.Mutex

	rows        []*Record
	config      GridConfig
	periodField string

	filters    *FilterBuffers
	metrics    *MetricBuilder
	expanded   Expansion
	sorting    []SortRule
	visibility map[string]bool
	widths     map[string]int

	onConfigChange func(GridConfig)
	view           *View
}

// NewGrid computes the initial view of rows under cfg.
func NewGrid(rows []*Record, cfg GridConfig, opts ...Option) *Grid {
	g := &Grid{
		rows:    rows,
		config:  cfg,
		filters: NewFilterBuffers(nil),
		metrics: NewMetricBuilder(),
		widths:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.sorting = cfg.InitialSorting()
	g.recompute()
	g.setVisibility(g.view.Columns.DefaultVisibility())
	return g
}

// View returns the current view.
func (g *Grid) View() *View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// Config returns the current configuration.
func (g *Grid) Config() GridConfig {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config
}

// Filters exposes the draft and active filter rules. Call ApplyFilters to commit.
// Value keystrokes go through EditFilter.
func (g *Grid) Filters() *FilterBuffers { return g.filters }

// Metrics exposes the metric draft. Call CommitMetric to commit.
func (g *Grid) Metrics() *MetricBuilder { return g.metrics }

// SetData replaces the result set.
func (g *Grid) SetData(rows []*Record) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rows = rows
	g.recompute()
}

// SetConfig replaces the configuration and resets column visibility.
func (g *Grid) SetConfig(cfg GridConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.config = cfg
	g.recompute()
	g.setVisibility(g.view.Columns.DefaultVisibility())
}

// EditFilter debounces an edit of a draft rule. Edits still pending when
// ApplyFilters runs are committed with it.
func (g *Grid) EditFilter(r Rule) {
	g.filters.UpdateDebounced(r)
}

// ApplyFilters commits the draft filters.
func (g *Grid) ApplyFilters() {
	g.filters.Apply()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recompute()
}

// ToggleExpanded opens or closes the node with id.
func (g *Grid) ToggleExpanded(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expanded = g.expanded.Toggle(id, g.view.Tree.IDs())
	g.recompute()
}

// SetExpanded replaces the expansion state.
func (g *Grid) SetExpanded(e Expansion) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expanded = e
	g.recompute()
}

// ToggleSort cycles a column through ascending, descending and unsorted.
func (g *Grid) ToggleSort(columnID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var next []SortRule
	switch {
	case len(g.sorting) == 0 || g.sorting[0].ColumnID != columnID:
		next = []SortRule{{ColumnID: columnID}}
	case !g.sorting[0].Desc:
		next = []SortRule{{ColumnID: columnID, Desc: true}}
	default:
		next = []SortRule{}
	}
	g.sorting = next
	g.recompute()
}

// SetSorting replaces the sorting state.
func (g *Grid) SetSorting(rules []SortRule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sorting = append([]SortRule{}, rules...)
	g.recompute()
}

// SetColumnVisibility shows or hides a column.
func (g *Grid) SetColumnVisibility(id string, visible bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	next := make(map[string]bool, len(g.visibility)+1)
	for k, v := range g.visibility {
		next[k] = v
	}
	next[id] = visible
	g.setVisibility(next)
}

// setVisibility swaps in a copy of the view so a view already handed out
// never changes.
func (g *Grid) setVisibility(vis map[string]bool) {
	g.visibility = vis
	nv := *g.view
	nv.Visibility = vis
	g.view = &nv
}

// ResizeColumn sets a column width, clamped to its minimum, and returns it.
func (g *Grid) ResizeColumn(id string, width int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.view.Columns.Column(id)
	if !ok {
		return 0
	}
	if width < c.MinWidth {
		width = c.MinWidth
	}
	g.widths[id] = width
	return width
}

// ColumnWidth returns the current width of a column.
func (g *Grid) ColumnWidth(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if w, ok := g.widths[id]; ok {
		return w
	}
	if c, ok := g.view.Columns.Column(id); ok {
		return c.Width
	}
	return 0
}

// CommitMetric commits the metric draft. On success the new configuration
// replaces the current one and is handed to the config-change callback.
func (g *Grid) CommitMetric() (CalculatedMetric, bool) {
	g.mu.Lock()
	cfg, m, ok := g.metrics.Commit(g.config)
	if !ok {
		g.mu.Unlock()
		return CalculatedMetric{}, false
	}
	g.config = cfg
	g.recompute()
	notify := g.onConfigChange
	g.mu.Unlock()

	if notify != nil {
		notify(cfg)
	}
	return m, true
}

func (g *Grid) recompute() {
	vis := g.visibility
	if vis == nil {
		vis = map[string]bool{}
	}
	g.view = Compute(Input{
		Rows:             g.rows,
		Config:           g.config,
		PeriodField:      g.periodField,
		Filters:          g.filters.Active(),
		Expanded:         g.expanded,
		Sorting:          append([]SortRule{}, g.sorting...),
		ColumnVisibility: vis,
	})
}
