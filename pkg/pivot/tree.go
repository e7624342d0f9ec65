package pivot

import (
	"sort"
	"strconv"
	"strings"
)

// TotalLabel names the grand-total node and unlabelled export rows.
const TotalLabel = "Totale"

const nodePathSep = ">"

// Node is a group or a leaf in the grouping tree. Children are indexes into
// the owning Tree; a node never points back at its parent.
type Node struct {
	ID            string
	Depth         int
	GroupingField string
	GroupingValue interface{}
	Children      []int
	// Leaves are the pivoted rows under the node; a leaf holds exactly one.
	Leaves []*Record
	// Record is set on leaves only.
	Record *Record

	columns   *ColumnModel
	rowGroups map[string]bool
	cache     map[string]interface{}
}

// IsLeaf reports a node that wraps a single pivoted row.
func (n *Node) IsLeaf() bool { return n.Record != nil }

// HasChildren reports a node with sub-rows.
func (n *Node) HasChildren() bool { return len(n.Children) > 0 }

// GetValue resolves a column for the node. Leaves read the column accessor;
// groups return the grouping value of their own field, the first leaf value
// of any other hierarchy field, and the cached aggregate for aggregated columns.
func (n *Node) GetValue(field string) interface{} {
	col, known := n.columns.Column(field)
	if n.IsLeaf() {
		if known {
			return col.Value(n.Record)
		}
		v, _ := n.Record.Get(field)
		return v
	}

	if field == TreeColumnID {
		return n.GroupingValue
	}
	if field == n.GroupingField {
		return n.GroupingValue
	}
	if n.rowGroups[field] {
		if len(n.Leaves) == 0 {
			return nil
		}
		v, _ := n.Leaves[0].Get(field)
		return v
	}
	if !known || col.Aggregator == nil {
		return nil
	}
	if v, ok := n.cache[field]; ok {
		return v
	}
	v := col.Aggregator(n.Leaves)
	if n.cache == nil {
		n.cache = make(map[string]interface{})
	}
	n.cache[field] = v
	return v
}

// Label is the text shown in the hierarchy column.
func (n *Node) Label() string {
	if n.IsLeaf() {
		if v := n.GetValue(TreeColumnID); v != nil {
			return text(v)
		}
		return TotalLabel
	}
	if n.GroupingValue == nil {
		return TotalLabel
	}
	return text(n.GroupingValue)
}

// Tree is an arena of nodes grouped by the row-group fields in order.
type Tree struct {
	Nodes []*Node
	// Roots are the depth-0 node indexes.
	Roots []int
	// Total aggregates every leaf.
	Total *Node

	RowGroups []string
	columns   *ColumnModel
}

// BuildTree groups rows by rowGroups. Groups keep the order in which their
// value first appears; rows below the last level become leaves.
func BuildTree(rows []*Record, columns *ColumnModel) *Tree {
	if columns == nil {
		columns = &ColumnModel{}
	}
	t := &Tree{RowGroups: columns.RowGroups, columns: columns}
	groups := toSet(t.RowGroups)
	t.Total = &Node{
		ID:        "",
		Depth:     -1,
		Leaves:    rows,
		columns:   columns,
		rowGroups: groups,
	}
	t.Roots = t.group(rows, 0, "", groups)
	t.Total.Children = t.Roots
	return t
}

func (t *Tree) group(rows []*Record, depth int, parentID string, groups map[string]bool) []int {
	if depth >= len(t.RowGroups) {
		ids := make([]int, 0, len(rows))
		for i, r := range rows {
			id := strconv.Itoa(i)
			if parentID != "" {
				id = parentID + nodePathSep + id
			}
			ids = append(ids, t.push(&Node{
				ID:        id,
				Depth:     depth,
				Leaves:    []*Record{r},
				Record:    r,
				columns:   t.columns,
				rowGroups: groups,
			}))
		}
		return ids
	}

	field := t.RowGroups[depth]
	type bucket struct {
		value interface{}
		rows  []*Record
	}
	index := make(map[string]int)
	var buckets []*bucket
	for _, r := range rows {
		v, _ := r.Get(field)
		key := text(v)
		if v == nil {
			key = "\x00"
		}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, &bucket{value: v})
		}
		buckets[i].rows = append(buckets[i].rows, r)
	}

	ids := make([]int, 0, len(buckets))
	for _, b := range buckets {
		id := field + ":" + text(b.value)
		if parentID != "" {
			id = parentID + nodePathSep + id
		}
		n := &Node{
			ID:            id,
			Depth:         depth,
			GroupingField: field,
			GroupingValue: b.value,
			Leaves:        b.rows,
			columns:       t.columns,
			rowGroups:     groups,
		}
		idx := t.push(n)
		n.Children = t.group(b.rows, depth+1, id, groups)
		ids = append(ids, idx)
	}
	return ids
}

func (t *Tree) push(n *Node) int {
	t.Nodes = append(t.Nodes, n)
	return len(t.Nodes) - 1
}

// Node returns the node at index i.
func (t *Tree) Node(i int) *Node { return t.Nodes[i] }

// IDs lists every node id in arena order.
func (t *Tree) IDs() []string {
	ids := make([]string, len(t.Nodes))
	for i, n := range t.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// MaxDepth is the deepest group level, -1 without a hierarchy.
func (t *Tree) MaxDepth() int { return len(t.RowGroups) - 1 }

// SortRule orders siblings by a column.
type SortRule struct {
	ColumnID string `json:"id"`
	Desc     bool   `json:"desc"`
}

// Sort orders siblings at every level. Ties keep their grouping order and
// nil values sort last in both directions.
func (t *Tree) Sort(rules []SortRule) {
	if len(rules) == 0 {
		return
	}
	t.Roots = t.sortLevel(t.Roots, rules)
	t.Total.Children = t.Roots
}

func (t *Tree) sortLevel(ids []int, rules []SortRule) []int {
	sorted := append([]int(nil), ids...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := t.Nodes[sorted[i]], t.Nodes[sorted[j]]
		for _, r := range rules {
			c := compareValues(a.GetValue(r.ColumnID), b.GetValue(r.ColumnID), r.Desc)
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	for _, id := range sorted {
		n := t.Nodes[id]
		if n.HasChildren() {
			n.Children = t.sortLevel(n.Children, rules)
		}
	}
	return sorted
}

// compareValues orders numbers numerically and everything else as
// case-insensitive text. nil is always greater.
func compareValues(a, b interface{}, desc bool) int {
	an, bn := normalizeScalar(a), normalizeScalar(b)
	switch {
	case an == nil && bn == nil:
		return 0
	case an == nil:
		return 1
	case bn == nil:
		return -1
	}
	c := 0
	af, aok := an.(float64)
	bf, bok := bn.(float64)
	if aok && bok {
		switch {
		case af < bf:
			c = -1
		case af > bf:
			c = 1
		}
	} else {
		c = strings.Compare(strings.ToLower(text(an)), strings.ToLower(text(bn)))
	}
	if desc {
		c = -c
	}
	return c
}
