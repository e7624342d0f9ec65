package pivot

import (
	"bytes"
	"encoding/json"
)

// RuleSet partitions filter rules by the phase that evaluates them.
type RuleSet struct {
	// Row rules run against pivoted rows before grouping.
	Row []Rule
	// Group rules run against tree nodes of the keyed depth.
	Group map[int][]Rule
}

// SplitRules partitions rules. "leaf" and "all" rules filter rows; numeric
// levels filter groups at that depth. Rules with an unreadable level are dropped.
func SplitRules(rules []Rule) RuleSet {
	rs := RuleSet{Group: make(map[int][]Rule)}
	for _, r := range rules {
		if r.TargetLevel.IsRowLevel() {
			rs.Row = append(rs.Row, r)
			continue
		}
		if d, ok := r.TargetLevel.Depth(); ok {
			rs.Group[d] = append(rs.Group[d], r)
		}
	}
	return rs
}

// HasGroupRules reports whether the post-aggregation phase has any work.
func (rs RuleSet) HasGroupRules() bool {
	return len(rs.Group) > 0
}

type leafGetter struct {
	rec     *Record
	columns *ColumnModel
}

func (g leafGetter) GetValue(field string) interface{} {
	if c, ok := g.columns.Column(field); ok {
		return c.Value(g.rec)
	}
	v, _ := g.rec.Get(field)
	return v
}

// FilterRows keeps the rows satisfying every row rule. A rule whose field is
// not a column of the model is ignored.
func FilterRows(rows []*Record, rules []Rule, columns *ColumnModel) []*Record {
	var active []Rule
	for _, r := range rules {
		if !r.TargetLevel.IsRowLevel() {
			continue
		}
		if c, ok := columns.Column(r.Field); !ok || c.IsTree {
			continue
		}
		active = append(active, r)
	}
	if len(active) == 0 {
		return rows
	}
	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		if EvaluateAll(leafGetter{rec: row, columns: columns}, active) {
			out = append(out, row)
		}
	}
	return out
}

// Expansion is the set of expanded node ids, or every node when All is set.
// It decodes from either a boolean or an object of id to boolean.
type Expansion struct {
	All bool
	IDs map[string]bool
}

// ExpandAll expands every node.
func ExpandAll() Expansion { return Expansion{All: true} }

// IsExpanded reports whether the node with id is open.
func (e Expansion) IsExpanded(id string) bool {
	return e.All || e.IDs[id]
}

// Toggle returns the expansion with id flipped. Collapsing a node while
// everything is open keeps the rest of known open.
func (e Expansion) Toggle(id string, known []string) Expansion {
	out := Expansion{IDs: make(map[string]bool, len(e.IDs)+1)}
	if e.All {
		for _, k := range known {
			out.IDs[k] = true
		}
	}
	for k, v := range e.IDs {
		if v {
			out.IDs[k] = true
		}
	}
	if e.IsExpanded(id) {
		delete(out.IDs, id)
	} else {
		out.IDs[id] = true
	}
	return out
}

func (e Expansion) MarshalJSON() ([]byte, error) {
	if e.All {
		return []byte("true"), nil
	}
	if e.IDs == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.IDs)
}

func (e *Expansion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*e = Expansion{}
		return nil
	case bytes.Equal(data, []byte("true")):
		*e = Expansion{All: true}
		return nil
	case bytes.Equal(data, []byte("false")):
		*e = Expansion{}
		return nil
	}
	var ids map[string]bool
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*e = Expansion{IDs: ids}
	return nil
}

// Flatten produces the visible row set: pre-order over expanded nodes, with
// each node tested against the group rules for its own depth. A node that
// fails is dropped together with its subtree.
func Flatten(t *Tree, rs RuleSet, expanded Expansion) []*Node {
	var out []*Node
	var walk func(ids []int)
	walk = func(ids []int) {
		for _, id := range ids {
			n := t.Nodes[id]
			if !passesLevel(n, rs) {
				continue
			}
			out = append(out, n)
			if n.HasChildren() && expanded.IsExpanded(n.ID) {
				walk(n.Children)
			}
		}
	}
	walk(t.Roots)
	return out
}

// ExportNodes walks the tree for export: every retained group down to the
// deepest hierarchy level regardless of expansion, never the leaves under it.
// Without a hierarchy the leaves themselves are exported.
func ExportNodes(t *Tree, rs RuleSet) []*Node {
	maxDepth := t.MaxDepth()
	var out []*Node
	var walk func(ids []int)
	walk = func(ids []int) {
		for _, id := range ids {
			n := t.Nodes[id]
			if !passesLevel(n, rs) {
				continue
			}
			out = append(out, n)
			if n.Depth < maxDepth && n.HasChildren() {
				walk(n.Children)
			}
		}
	}
	walk(t.Roots)
	return out
}

func passesLevel(n *Node, rs RuleSet) bool {
	rules := rs.Group[n.Depth]
	if len(rules) == 0 {
		return true
	}
	return EvaluateAll(n, rules)
}
