package pivot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionRows() []*Record {
	return []*Record{
		RecordOf("Esercizio", "2023", "Zona", "Nord", "Cliente", "A", "Venduto", 100, "Costo", 90),
		RecordOf("Esercizio", "2023", "Zona", "Nord", "Cliente", "B", "Venduto", 10, "Costo", 0),
		RecordOf("Esercizio", "2023", "Zona", "Sud", "Cliente", "C", "Venduto", 500, "Costo", 100),
		RecordOf("Esercizio", "2023", "Zona", "Sud", "Cliente", "C", "Venduto", 5, "Costo", 5),
	}
}

func regionConfig() GridConfig {
	return GridConfig{
		InitialConfig: &InitialConfig{RowGroups: []string{"Zona", "Cliente"}},
		CalculatedMetrics: []CalculatedMetric{
			{Name: "margin", Label: "Margine %", Operation: OpPercentageMargin, Field1: "Venduto", Field2: "Costo"},
		},
	}
}

func nodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func buildRegionTree(t *testing.T, rules []Rule) (*Tree, RuleSet) {
	t.Helper()
	res := PivotRows(regionRows(), "")
	m := BuildColumns(res.Rows, res.Periods, regionConfig(), "")
	rs := SplitRules(rules)
	return BuildTree(FilterRows(res.Rows, rs.Row, m), m), rs
}

func TestBuildTree(t *testing.T) {
	tree, _ := buildRegionTree(t, nil)

	require.Len(t, tree.Roots, 2)
	nord := tree.Node(tree.Roots[0])
	assert.Equal(t, "Zona:Nord", nord.ID)
	assert.Equal(t, 0, nord.Depth)
	assert.Equal(t, "Nord", nord.GetValue("Zona"))
	assert.Equal(t, "A", nord.GetValue("Cliente"))
	assert.Equal(t, 110.0, nord.GetValue("2023_Venduto"))

	// Ratio of sums, not sum of per-leaf margins.
	assert.InDelta(t, 18.1818, nord.GetValue("2023_margin").(float64), 0.001)

	require.Len(t, nord.Children, 2)
	a := tree.Node(nord.Children[0])
	assert.Equal(t, "Zona:Nord>Cliente:A", a.ID)
	assert.Equal(t, 1, a.Depth)
	require.Len(t, a.Children, 1)
	leaf := tree.Node(a.Children[0])
	assert.True(t, leaf.IsLeaf())
	assert.Equal(t, "Zona:Nord>Cliente:A>0", leaf.ID)
	assert.Equal(t, "A", leaf.Label())

	assert.Equal(t, 615.0, tree.Total.GetValue("2023_Venduto"))
	assert.Equal(t, TotalLabel, tree.Total.Label())
}

func TestSortTree(t *testing.T) {
	tree, _ := buildRegionTree(t, nil)
	tree.Sort([]SortRule{{ColumnID: "2023_Venduto", Desc: true}})

	assert.Equal(t, "Zona:Sud", tree.Node(tree.Roots[0]).ID)
	nord := tree.Node(tree.Roots[1])
	assert.Equal(t, "Zona:Nord>Cliente:A", tree.Node(nord.Children[0]).ID)

	assert.Equal(t, 1, compareValues(nil, 1.0, false))
	assert.Equal(t, 1, compareValues(nil, 1.0, true))
	assert.Equal(t, -1, compareValues("alpha", "Beta", false))
}

func TestFlatten(t *testing.T) {
	t.Run("CollapsedShowsRoots", func(t *testing.T) {
		tree, rs := buildRegionTree(t, nil)
		assert.Equal(t, []string{"Zona:Nord", "Zona:Sud"}, nodeIDs(Flatten(tree, rs, Expansion{})))
	})

	t.Run("ExpandedNodeShowsChildren", func(t *testing.T) {
		tree, rs := buildRegionTree(t, nil)
		exp := Expansion{IDs: map[string]bool{"Zona:Nord": true}}
		assert.Equal(t, []string{"Zona:Nord", "Zona:Nord>Cliente:A", "Zona:Nord>Cliente:B", "Zona:Sud"}, nodeIDs(Flatten(tree, rs, exp)))
	})

	t.Run("LeafRuleRecomputesAggregates", func(t *testing.T) {
		tree, _ := buildRegionTree(t, []Rule{{Field: "2023_Venduto", Operator: OpGreater, Value: "50", TargetLevel: TargetLeaf}})

		require.Len(t, tree.Roots, 2)
		nord := tree.Node(tree.Roots[0])
		assert.Equal(t, "Zona:Nord", nord.ID)
		assert.Equal(t, 100.0, nord.GetValue("2023_Venduto"))
		assert.Len(t, nord.Children, 1)
	})

	t.Run("GroupRuleOnlyTouchesDepth", func(t *testing.T) {
		rules := []Rule{{Field: "2023_Venduto", Operator: OpGreater, Value: "200", TargetLevel: LevelTarget(1)}}
		tree, rs := buildRegionTree(t, rules)

		got := nodeIDs(Flatten(tree, rs, ExpandAll()))
		assert.Equal(t, []string{"Zona:Nord", "Zona:Sud", "Zona:Sud>Cliente:C", "Zona:Sud>Cliente:C>0"}, got)
	})

	t.Run("PrunedGroupDropsSubtree", func(t *testing.T) {
		rules := []Rule{{Field: "2023_margin", Operator: OpLess, Value: "50", TargetLevel: LevelTarget(0)}}
		tree, rs := buildRegionTree(t, rules)

		got := nodeIDs(Flatten(tree, rs, ExpandAll()))
		assert.Equal(t, []string{"Zona:Nord", "Zona:Nord>Cliente:A", "Zona:Nord>Cliente:A>0", "Zona:Nord>Cliente:B", "Zona:Nord>Cliente:B>0"}, got)
	})

	t.Run("EmptyValueNeverHides", func(t *testing.T) {
		rules := []Rule{
			{Field: "2023_Venduto", Operator: OpGreater, Value: "", TargetLevel: TargetLeaf},
			{Field: "2023_Venduto", Operator: OpLess, Value: "", TargetLevel: LevelTarget(0)},
		}
		tree, rs := buildRegionTree(t, rules)
		base, baseRules := buildRegionTree(t, nil)

		assert.Len(t, Flatten(tree, rs, ExpandAll()), len(Flatten(base, baseRules, ExpandAll())))
	})

	t.Run("UnknownFieldIgnored", func(t *testing.T) {
		tree, _ := buildRegionTree(t, []Rule{{Field: "Assente", Operator: OpEquals, Value: "x", TargetLevel: TargetAll}})
		assert.Len(t, tree.Roots, 2)
	})
}

func TestExportNodes(t *testing.T) {
	tree, rs := buildRegionTree(t, nil)
	got := ExportNodes(tree, rs)

	assert.Equal(t, []string{"Zona:Nord", "Zona:Nord>Cliente:A", "Zona:Nord>Cliente:B", "Zona:Sud", "Zona:Sud>Cliente:C"}, nodeIDs(got))
	for _, n := range got {
		assert.False(t, n.IsLeaf())
	}

	t.Run("NoHierarchyExportsLeaves", func(t *testing.T) {
		rows := []*Record{RecordOf("Cliente", "A", "Venduto", 1), RecordOf("Cliente", "B", "Venduto", 2)}
		m := BuildColumns(rows, nil, GridConfig{}, "")
		flat := BuildTree(rows, m)

		got := ExportNodes(flat, SplitRules(nil))
		require.Len(t, got, 2)
		assert.Equal(t, TotalLabel, got[0].Label())
	})
}

func TestExpansionJSON(t *testing.T) {
	var e Expansion
	require.NoError(t, json.Unmarshal([]byte(`true`), &e))
	assert.True(t, e.All)

	require.NoError(t, json.Unmarshal([]byte(`{"Zona:Nord":true}`), &e))
	assert.False(t, e.All)
	assert.True(t, e.IsExpanded("Zona:Nord"))
	assert.False(t, e.IsExpanded("Zona:Sud"))

	next := ExpandAll().Toggle("Zona:Sud", []string{"Zona:Nord", "Zona:Sud"})
	assert.True(t, next.IsExpanded("Zona:Nord"))
	assert.False(t, next.IsExpanded("Zona:Sud"))
}

func TestTreeCellFor(t *testing.T) {
	res := PivotRows(regionRows(), "")
	m := BuildColumns(res.Rows, res.Periods, regionConfig(), "")
	tree := BuildTree(res.Rows, m)

	nord := tree.Node(tree.Roots[0])
	cell := m.TreeCellFor(nord, true)
	assert.Equal(t, TreeCell{Field: "Zona", Label: "Nord", CanExpand: true, Expanded: true, ChildCount: 2}, cell)

	a := tree.Node(nord.Children[0])
	cell = m.TreeCellFor(a, false)
	assert.Equal(t, TreeCell{Field: "Cliente", Label: "A", Indent: TreeIndent}, cell)
}
