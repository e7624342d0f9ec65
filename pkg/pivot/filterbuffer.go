package pivot

import (
	"strconv"
	"sync"
	"time"
)

// FilterBuffers holds the active filter rules and the draft edited in the
// filter panel. Edits touch only the draft; Apply replaces the active rules in
// one step. Both slices are replaced, never modified in place, so a caller
// holding Active() never sees a partial edit.
type FilterBuffers struct {
	mu     sync.Mutex
	active []Rule
	draft  []Rule
	open   bool
	seq    int

	editDelay time.Duration
	editMu    sync.Mutex
	edits     map[string]*Debouncer
}

// NewFilterBuffers starts with the given active rules.
func NewFilterBuffers(active []Rule) *FilterBuffers {
	return &FilterBuffers{
		active:    cloneRules(active),
		editDelay: DefaultDebounce,
		edits:     make(map[string]*Debouncer),
	}
}

// SetEditDelay changes the quiet period of UpdateDebounced.
func (b *FilterBuffers) SetEditDelay(d time.Duration) {
	b.editMu.Lock()
	defer b.editMu.Unlock()
	b.editDelay = d
}

// Active returns the committed rules.
func (b *FilterBuffers) Active() []Rule {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Draft returns the rules being edited.
func (b *FilterBuffers) Draft() []Rule {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft
}

// IsOpen reports whether a draft is being edited.
func (b *FilterBuffers) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Open seeds the draft from the active rules.
func (b *FilterBuffers) Open() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft = cloneRules(b.active)
	b.open = true
}

// Add appends a blank rule to the draft. The field defaults to the first
// non-tree column, the level to "0" with a hierarchy and "leaf" without.
func (b *FilterBuffers) Add(columns *ColumnModel) Rule {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	r := Rule{ID: "f" + strconv.Itoa(b.seq), TargetLevel: TargetLeaf}
	if columns != nil {
		for _, c := range columns.Columns {
			if !c.IsTree {
				r.Field = c.ID
				break
			}
		}
		if len(columns.RowGroups) > 0 {
			r.TargetLevel = LevelTarget(0)
		}
	}
	b.draft = append(cloneRules(b.draft), r)
	return r
}

// Update replaces the draft rule with the same id. Unknown ids are ignored.
func (b *FilterBuffers) Update(r Rule) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := cloneRules(b.draft)
	for i := range next {
		if next[i].ID == r.ID {
			next[i] = r
			b.draft = next
			return true
		}
	}
	return false
}

// UpdateDebounced is Update for value keystrokes: each rule keeps only the
// last edit of a burst, written to the draft once the burst goes quiet.
func (b *FilterBuffers) UpdateDebounced(r Rule) {
	b.editMu.Lock()
	d, ok := b.edits[r.ID]
	if !ok {
		d = NewDebouncer(b.editDelay)
		b.edits[r.ID] = d
	}
	b.editMu.Unlock()
	d.Call(func() { b.Update(r) })
}

// FlushEdits writes every pending debounced edit to the draft.
func (b *FilterBuffers) FlushEdits() {
	for _, d := range b.takeEdits() {
		d.Flush()
	}
}

func (b *FilterBuffers) stopEdits() {
	for _, d := range b.takeEdits() {
		d.Stop()
	}
}

func (b *FilterBuffers) takeEdits() []*Debouncer {
	b.editMu.Lock()
	defer b.editMu.Unlock()
	out := make([]*Debouncer, 0, len(b.edits))
	for id, d := range b.edits {
		out = append(out, d)
		delete(b.edits, id)
	}
	return out
}

// Remove drops the draft rule with id.
func (b *FilterBuffers) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]Rule, 0, len(b.draft))
	for _, r := range b.draft {
		if r.ID != id {
			next = append(next, r)
		}
	}
	b.draft = next
}

// Clear empties the draft. The active rules stay until Apply.
func (b *FilterBuffers) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft = nil
}

// Apply commits the draft, pending edits included, and closes the panel.
func (b *FilterBuffers) Apply() []Rule {
	b.FlushEdits()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = cloneRules(b.draft)
	b.open = false
	return b.active
}

// Close discards the draft and any pending edit.
func (b *FilterBuffers) Close() {
	b.stopEdits()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft = nil
	b.open = false
}

func cloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	return append(make([]Rule, 0, len(rules)), rules...)
}
