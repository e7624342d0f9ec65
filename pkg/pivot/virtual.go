package pivot

// Defaults of the row virtualizer.
const (
	DefaultRowHeight = 36
	DefaultOverscan  = 20
)

// VirtualItem is a rendered row slot.
type VirtualItem struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Start int    `json:"start"`
	Size  int    `json:"size"`
}

// Window is the slice of rows to render for a viewport.
type Window struct {
	Items     []VirtualItem `json:"items"`
	TotalSize int           `json:"totalSize"`
}

// Virtualizer computes the rows intersecting a viewport with a fixed row height.
type Virtualizer struct {
	RowHeight int
	Overscan  int
}

// NewVirtualizer falls back to the defaults for non-positive values.
func NewVirtualizer(rowHeight, overscan int) Virtualizer {
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	if overscan < 0 {
		overscan = DefaultOverscan
	}
	return Virtualizer{RowHeight: rowHeight, Overscan: overscan}
}

// Window returns the items for the rows keyed by keys, scrolled to
// scrollOffset in a viewport of viewportHeight pixels, plus the overscan on
// both sides. Keys give rows a stable identity across recomputations.
func (v Virtualizer) Window(keys []string, scrollOffset, viewportHeight int) Window {
	h := v.RowHeight
	if h <= 0 {
		h = DefaultRowHeight
	}
	count := len(keys)
	w := Window{TotalSize: count * h, Items: []VirtualItem{}}
	if count == 0 {
		return w
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}
	if viewportHeight < 0 {
		viewportHeight = 0
	}

	first := scrollOffset / h
	last := (scrollOffset + viewportHeight - 1) / h
	if viewportHeight == 0 {
		last = first
	}
	first -= v.Overscan
	last += v.Overscan
	if first < 0 {
		first = 0
	}
	if last > count-1 {
		last = count - 1
	}
	for i := first; i <= last; i++ {
		w.Items = append(w.Items, VirtualItem{Index: i, Key: keys[i], Start: i * h, Size: h})
	}
	return w
}
