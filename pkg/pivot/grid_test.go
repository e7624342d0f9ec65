package pivot

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRoundTrip(t *testing.T) {
	cfg := GridConfig{InitialConfig: &InitialConfig{RowGroups: []string{"Cliente"}}}

	view := Compute(Input{Rows: salesRows(), Config: cfg})
	require.Len(t, view.Rows, 1)
	require.Len(t, view.Visible, 1)
	group := view.Visible[0]
	assert.Equal(t, "Cliente:A", group.ID)
	assert.Equal(t, 100.0, group.GetValue("2023_Venduto"))
	assert.False(t, view.IsVisible("Cliente"))

	cfg = cfg.WithMetric(CalculatedMetric{Name: "calc", Label: "Margine", Operation: OpSubtract, Field1: "Venduto", Field2: "Costo"})
	view = Compute(Input{Rows: salesRows(), Config: cfg})
	group = view.Visible[0]
	assert.Equal(t, 40.0, group.GetValue("2023_calc"))
	assert.Equal(t, 50.0, group.GetValue("2024_calc"))
}

func TestComputeCompareRule(t *testing.T) {
	view := Compute(Input{
		Rows: salesRows(),
		Filters: []Rule{{
			Field:        "2023_Venduto",
			Operator:     OpCompareGreater,
			CompareField: "2023_Costo",
			TargetLevel:  TargetLeaf,
		}},
	})
	assert.Len(t, view.Visible, 1)

	view = Compute(Input{
		Rows: salesRows(),
		Filters: []Rule{{
			Field:        "2023_Costo",
			Operator:     OpCompareGreater,
			CompareField: "2023_Venduto",
			TargetLevel:  TargetLeaf,
		}},
	})
	assert.Empty(t, view.Visible)
}

func TestComputeDefaultSort(t *testing.T) {
	rows := []*Record{
		RecordOf("Cliente", "B", "Venduto", 1),
		RecordOf("Cliente", "A", "Venduto", 2),
	}
	cfg := GridConfig{InitialConfig: &InitialConfig{
		RowGroups:   []string{"Cliente"},
		DefaultSort: &DefaultSort{Column: SortColumn{Field: "Cliente"}, Direction: "asc"},
	}}

	view := Compute(Input{Rows: rows, Config: cfg})
	assert.Equal(t, []string{"Cliente:A", "Cliente:B"}, view.Keys())

	view = Compute(Input{Rows: rows, Config: cfg, Sorting: []SortRule{}})
	assert.Equal(t, []string{"Cliente:B", "Cliente:A"}, view.Keys())
}

func TestGrid(t *testing.T) {
	cfg := GridConfig{InitialConfig: &InitialConfig{RowGroups: []string{"Zona", "Cliente"}}}

	t.Run("ExpandCollapse", func(t *testing.T) {
		g := NewGrid(regionRows(), cfg)
		assert.Len(t, g.View().Visible, 2)

		g.ToggleExpanded("Zona:Nord")
		assert.Len(t, g.View().Visible, 4)

		g.ToggleExpanded("Zona:Nord")
		assert.Len(t, g.View().Visible, 2)
	})

	t.Run("FiltersApplyOnCommit", func(t *testing.T) {
		g := NewGrid(regionRows(), cfg)
		f := g.Filters()

		f.Open()
		r := f.Add(g.View().Columns)
		assert.Equal(t, "Zona", r.Field)
		assert.Equal(t, LevelTarget(0), r.TargetLevel)

		r.Field = "Zona"
		r.Operator = OpEquals
		r.Value = "sud"
		require.True(t, f.Update(r))
		assert.Len(t, g.View().Visible, 2)

		g.ApplyFilters()
		assert.Len(t, g.View().Visible, 1)
		assert.False(t, f.IsOpen())
	})

	t.Run("SortAndResize", func(t *testing.T) {
		g := NewGrid(regionRows(), cfg)

		g.ToggleSort("2023_Venduto")
		assert.Equal(t, "Zona:Nord", g.View().Keys()[0])
		g.ToggleSort("2023_Venduto")
		assert.Equal(t, "Zona:Sud", g.View().Keys()[0])

		assert.Equal(t, TreeColumnMinWidth, g.ResizeColumn(TreeColumnID, 50))
		assert.Equal(t, 420, g.ResizeColumn(TreeColumnID, 420))
		assert.Equal(t, 420, g.ColumnWidth(TreeColumnID))
		assert.Equal(t, ColumnMinWidth, g.ResizeColumn("2023_Costo", 10))
	})

	t.Run("Visibility", func(t *testing.T) {
		g := NewGrid(regionRows(), cfg)
		assert.False(t, g.View().IsVisible("Zona"))

		g.SetColumnVisibility("Zona", true)
		assert.True(t, g.View().IsVisible("Zona"))
		g.SetColumnVisibility("2023_Costo", false)
		for _, c := range g.View().VisibleColumns() {
			assert.NotEqual(t, "2023_Costo", c.ID)
		}
	})

	t.Run("VisibilityKeepsHeldView", func(t *testing.T) {
		g := NewGrid(regionRows(), cfg)
		held := g.View()
		require.True(t, held.IsVisible("2023_Venduto"))

		g.SetColumnVisibility("2023_Venduto", false)
		assert.True(t, held.IsVisible("2023_Venduto"))
		assert.False(t, g.View().IsVisible("2023_Venduto"))
		assert.NotSame(t, held, g.View())

		held = g.View()
		g.SetConfig(cfg)
		assert.False(t, held.IsVisible("2023_Venduto"))
		assert.True(t, g.View().IsVisible("2023_Venduto"))
	})

	t.Run("EditFilterDebounced", func(t *testing.T) {
		g := NewGrid(regionRows(), cfg, WithFilterDebounce(10*time.Millisecond))
		f := g.Filters()
		f.Open()
		r := f.Add(g.View().Columns)
		r.Operator = OpEquals
		for _, v := range []string{"s", "su", "sud"} {
			r.Value = v
			g.EditFilter(r)
		}

		assert.Eventually(t, func() bool {
			return f.Draft()[0].Value == "sud"
		}, time.Second, 5*time.Millisecond)
		g.ApplyFilters()
		assert.Len(t, g.View().Visible, 1)
	})

	t.Run("CommitMetricEmitsConfig", func(t *testing.T) {
		var emitted []GridConfig
		g := NewGrid(regionRows(), cfg, WithConfigChange(func(c GridConfig) {
			emitted = append(emitted, c)
		}))
		before := g.Config()

		_, ok := g.CommitMetric()
		assert.False(t, ok)
		assert.Empty(t, emitted)

		g.Metrics().SetDraft(MetricDraft{Label: "Margine", Field1: "Venduto", Field2: "Costo", Operation: OpSubtract})
		m, ok := g.CommitMetric()
		require.True(t, ok)
		require.Len(t, emitted, 1)
		assert.Len(t, emitted[0].CalculatedMetrics, 1)
		assert.Empty(t, before.CalculatedMetrics)

		_, found := g.View().Columns.Column("2023_" + m.Name)
		assert.True(t, found)
		assert.Equal(t, MetricDraft{Operation: OpSubtract}, g.Metrics().Draft())
	})
}

func TestMetricBuilder(t *testing.T) {
	b := NewMetricBuilder()
	cfg := GridConfig{}

	b.SetDraft(MetricDraft{Label: "Margine", Field1: "Venduto"})
	next, _, ok := b.Commit(cfg)
	assert.False(t, ok)
	assert.Empty(t, next.CalculatedMetrics)

	b.SetDraft(MetricDraft{Label: "Margine", Field1: "Venduto", Field2: "Costo", Operation: "bogus"})
	next, m, ok := b.Commit(cfg)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(m.Name, MetricIDPrefix))
	assert.Equal(t, OpSubtract, m.Operation)
	assert.Equal(t, 2, m.Decimals)
	assert.Len(t, next.CalculatedMetrics, 1)
	assert.Empty(t, cfg.CalculatedMetrics)

	b.SetDraft(MetricDraft{Label: "Altro", Field1: "Venduto", Field2: "Costo"})
	_, other, ok := b.Commit(next)
	require.True(t, ok)
	assert.NotEqual(t, m.Name, other.Name)
}

func TestFilterBuffers(t *testing.T) {
	b := NewFilterBuffers([]Rule{{ID: "x", Field: "Venduto"}})

	b.Open()
	assert.Len(t, b.Draft(), 1)
	r := b.Add(nil)
	assert.Equal(t, TargetLeaf, r.TargetLevel)
	b.Remove("x")
	assert.Len(t, b.Draft(), 1)
	assert.Len(t, b.Active(), 1)

	b.Close()
	assert.Equal(t, "x", b.Active()[0].ID)
	assert.Empty(t, b.Draft())

	b.Open()
	b.Clear()
	assert.Empty(t, b.Apply())
	assert.Empty(t, b.Active())
}

func TestFilterBuffersDebouncedEdits(t *testing.T) {
	b := NewFilterBuffers(nil)
	b.SetEditDelay(time.Hour)
	b.Open()
	r := b.Add(nil)
	r.Operator = OpEquals

	t.Run("ApplyFlushesLastEdit", func(t *testing.T) {
		for _, v := range []string{"N", "No", "Nord"} {
			r.Value = v
			b.UpdateDebounced(r)
		}
		assert.Nil(t, b.Draft()[0].Value)

		active := b.Apply()
		require.Len(t, active, 1)
		assert.Equal(t, "Nord", active[0].Value)
	})

	t.Run("CloseDropsPendingEdit", func(t *testing.T) {
		b.Open()
		r.Value = "Sud"
		b.UpdateDebounced(r)
		b.Close()

		b.Open()
		b.FlushEdits()
		assert.Equal(t, "Nord", b.Draft()[0].Value)
	})
}

func TestMetricBuilderConcurrentUse(t *testing.T) {
	b := NewMetricBuilder()
	draft := MetricDraft{Label: "Margine", Field1: "Venduto", Field2: "Costo", Operation: OpSubtract}

	var wg sync.WaitGroup
	var committed int32
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.SetDraft(draft)
		}()
		go func() {
			defer wg.Done()
			if _, _, ok := b.Commit(GridConfig{}); ok {
				atomic.AddInt32(&committed, 1)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&committed), int32(8))
}

func TestMetricDraftBlankFields(t *testing.T) {
	tests := []struct {
		name  string
		draft MetricDraft
		ok    bool
	}{
		{"blank label", MetricDraft{Label: "   ", Field1: "Venduto", Field2: "Costo"}, false},
		{"blank field", MetricDraft{Label: "Margine", Field1: "\t", Field2: "Costo"}, false},
		{"padded", MetricDraft{Label: " Margine ", Field1: " Venduto", Field2: "Costo "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.draft.CanCommit())
		})
	}

	m := tests[2].draft.Metric()
	assert.Equal(t, "Margine", m.Label)
	assert.Equal(t, "Venduto", m.Field1)
	assert.Equal(t, "Costo", m.Field2)
}

func TestDebouncerFlush(t *testing.T) {
	var calls int32
	d := NewDebouncer(time.Hour)
	d.Call(func() { atomic.AddInt32(&calls, 1) })
	d.Call(func() { atomic.AddInt32(&calls, 10) })

	d.Flush()
	assert.Equal(t, int32(10), atomic.LoadInt32(&calls))
	d.Flush()
	assert.Equal(t, int32(10), atomic.LoadInt32(&calls))

	d.Call(func() { atomic.AddInt32(&calls, 1) })
	d.Stop()
	d.Flush()
	assert.Equal(t, int32(10), atomic.LoadInt32(&calls))
}

func TestDebouncer(t *testing.T) {
	var calls, last int32
	d := NewDebouncer(20 * time.Millisecond)
	for i := int32(1); i <= 5; i++ {
		v := i
		d.Call(func() {
			atomic.AddInt32(&calls, 1)
			atomic.StoreInt32(&last, v)
		})
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), atomic.LoadInt32(&last))
	d.Stop()
}

func TestVirtualizer(t *testing.T) {
	keys := make([]string, 100)
	for i := range keys {
		keys[i] = string(rune('a' + i%26))
	}
	v := NewVirtualizer(0, -1)

	w := v.Window(keys, 0, 360)
	assert.Equal(t, 3600, w.TotalSize)
	require.Len(t, w.Items, 30)
	assert.Equal(t, VirtualItem{Index: 0, Key: "a", Start: 0, Size: 36}, w.Items[0])

	w = v.Window(keys, 36*50, 360)
	assert.Equal(t, 30, w.Items[0].Index)
	assert.Equal(t, 79, w.Items[len(w.Items)-1].Index)
	assert.Equal(t, 30*36, w.Items[0].Start)

	empty := v.Window(nil, 100, 360)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 0, empty.TotalSize)
}
