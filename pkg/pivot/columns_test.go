package pivot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnIDs(m *ColumnModel) []string {
	ids := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		ids[i] = c.ID
	}
	return ids
}

func TestBuildColumns(t *testing.T) {
	t.Run("PeriodGroups", func(t *testing.T) {
		res := PivotRows(salesRows(), "")
		cfg := GridConfig{InitialConfig: &InitialConfig{RowGroups: []string{"Cliente"}}}
		m := BuildColumns(res.Rows, res.Periods, cfg, "")

		assert.Equal(t, []string{TreeColumnID, "Cliente", "2023_Venduto", "2023_Costo", "2024_Venduto", "2024_Costo"}, columnIDs(m))

		tree, _ := m.Column(TreeColumnID)
		assert.Equal(t, "CLIENTE", tree.Header)
		assert.Equal(t, TreeColumnWidth, tree.Width)
		assert.Equal(t, TreeColumnMinWidth, tree.MinWidth)

		require.Len(t, m.Groups, 4)
		assert.Equal(t, HeaderGroup{Label: "2023", IsPeriod: true, ColumnIDs: []string{"2023_Venduto", "2023_Costo"}}, m.Groups[2])
		assert.True(t, m.HasPeriodGroups())
		assert.Equal(t, map[string]bool{"Cliente": false}, m.DefaultVisibility())
	})

	t.Run("TreeHeaderJoinsLevels", func(t *testing.T) {
		rows := []*Record{RecordOf("Zona", "Nord", "Cliente", "A", "Venduto", 1)}
		cfg := GridConfig{InitialConfig: &InitialConfig{RowGroups: []string{"Zona", "Cliente"}}}
		m := BuildColumns(rows, nil, cfg, "")

		tree, _ := m.Column(TreeColumnID)
		assert.Equal(t, "ZONA  >  CLIENTE", tree.Header)
	})

	t.Run("AvailableFieldsAllowList", func(t *testing.T) {
		res := PivotRows(salesRows(), "")
		cfg := GridConfig{AvailableFields: []string{"Esercizio", "Costo"}}
		m := BuildColumns(res.Rows, res.Periods, cfg, "")

		assert.Equal(t, []string{"2023_Costo", "2024_Costo"}, columnIDs(m))
	})

	t.Run("ValueColsAggregation", func(t *testing.T) {
		res := PivotRows(salesRows(), "")
		cfg := GridConfig{InitialConfig: &InitialConfig{ValueCols: []ValueCol{{Field: "Venduto", AggFunc: AggMax}}}}
		m := BuildColumns(res.Rows, res.Periods, cfg, "")

		assert.Equal(t, []string{"2023_Venduto", "2024_Venduto"}, columnIDs(m))
		c, _ := m.Column("2024_Venduto")
		assert.Equal(t, 120.0, c.Aggregator(res.Rows))
	})

	t.Run("PlainWithoutPeriods", func(t *testing.T) {
		rows := []*Record{RecordOf("Codice_Articolo", "X1", "Prezzo_Medio", 9.5)}
		m := BuildColumns(rows, nil, GridConfig{}, "")

		require.Len(t, m.Columns, 2)
		assert.Equal(t, "Codice Articolo", m.Columns[0].Header)
		assert.False(t, m.Columns[0].IsNumber)
		assert.Equal(t, TextColumnWidth, m.Columns[0].Width)
		assert.True(t, m.Columns[1].IsNumber)
		assert.False(t, m.HasPeriodGroups())
	})

	t.Run("TemplateMetricPerPeriod", func(t *testing.T) {
		res := PivotRows(salesRows(), "")
		cfg := GridConfig{CalculatedMetrics: []CalculatedMetric{
			{Name: "calc", Label: "Margine", Operation: OpSubtract, Field1: "Venduto", Field2: "Costo"},
		}}
		m := BuildColumns(res.Rows, res.Periods, cfg, "")

		c23, ok := m.Column("2023_calc")
		require.True(t, ok)
		c24, ok := m.Column("2024_calc")
		require.True(t, ok)
		assert.Equal(t, "2023", c23.Group)
		assert.Equal(t, 40.0, c23.Value(res.Rows[0]))
		assert.Equal(t, 50.0, c24.Value(res.Rows[0]))

		_, global := m.Column("calc")
		assert.False(t, global)
	})

	t.Run("PeriodSpecificMetricIsGlobal", func(t *testing.T) {
		res := PivotRows(salesRows(), "")
		cfg := GridConfig{CalculatedMetrics: []CalculatedMetric{
			{Name: "delta", Label: "Delta %", Operation: OpPercentageMargin, Field1: "2024_Venduto", Field2: "2023_Venduto"},
		}}
		m := BuildColumns(res.Rows, res.Periods, cfg, "")

		c, ok := m.Column("delta")
		require.True(t, ok)
		assert.Empty(t, c.Group)
		assert.True(t, c.IsPercentage)
		assert.InDelta(t, 16.6667, c.Value(res.Rows[0]).(float64), 0.001)
		assert.Equal(t, "16.67%", c.Format(c.Value(res.Rows[0])))
	})

	t.Run("NoPeriodsEveryMetricIsGlobal", func(t *testing.T) {
		rows := []*Record{RecordOf("Cliente", "A", "Venduto", 10, "Costo", 0)}
		cfg := GridConfig{CalculatedMetrics: []CalculatedMetric{
			{Name: "ratio", Label: "Rapporto", Operation: OpDivide, Field1: "Venduto", Field2: "Costo"},
		}}
		m := BuildColumns(rows, nil, cfg, "")

		c, ok := m.Column("ratio")
		require.True(t, ok)
		assert.Equal(t, 0.0, c.Value(rows[0]))
	})

	t.Run("Empty", func(t *testing.T) {
		m := BuildColumns(nil, nil, GridConfig{}, "")
		assert.Empty(t, m.Columns)
	})
}

func TestMetricOptions(t *testing.T) {
	res := PivotRows(salesRows(), "")
	cfg := GridConfig{InitialConfig: &InitialConfig{RowGroups: []string{"Cliente"}}}
	m := BuildColumns(res.Rows, res.Periods, cfg, "")

	opts := m.MetricOptions()
	require.Len(t, opts, 4)
	assert.Equal(t, MetricOption{ID: "2023_Venduto", Label: "[2023] Venduto"}, opts[0])
}

func TestMetricAggregateUsesSums(t *testing.T) {
	leaves := []*Record{
		RecordOf("v", 100, "c", 90),
		RecordOf("v", 10, "c", 0),
	}

	assert.InDelta(t, 18.1818, OpPercentageMargin.Aggregate(leaves, "v", "c"), 0.001)
	assert.Equal(t, 20.0, OpSubtract.Aggregate(leaves, "v", "c"))
	assert.InDelta(t, 1.2222, OpDivide.Aggregate(leaves, "v", "c"), 0.001)
	assert.Equal(t, 9000.0, OpMultiply.Aggregate(leaves, "v", "c"))
	assert.Equal(t, 0.0, OpDivide.Apply(1, 0))
	assert.Equal(t, 0.0, OpPercentageMargin.Apply(0, 5))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12,50", FormatNumber(12.5))
	assert.Equal(t, "1.234.567,89", FormatNumber(1234567.891))
	assert.Equal(t, "testo", FormatNumber("testo"))
	assert.Equal(t, "3.14%", FormatPercent(3.14159, 2))
}
