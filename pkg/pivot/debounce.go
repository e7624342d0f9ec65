package pivot

import (
	"sync"
	"time"
)

// DefaultDebounce is the delay applied to filter value keystrokes.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs only the last of a burst of calls once the burst has been
// quiet for the delay.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// NewDebouncer returns a Debouncer with delay, or DefaultDebounce when delay <= 0.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Call schedules fn, cancelling any call still pending.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timer != t {
			d.mu.Unlock()
			return
		}
		d.timer, d.pending = nil, nil
		d.mu.Unlock()
		fn()
	})
	d.timer, d.pending = t, fn
}

// Flush runs a pending call now.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	if d.timer != nil {
		// A callback already firing sees the cleared timer and skips.
		d.timer.Stop()
	}
	d.timer, d.pending = nil, nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop cancels a pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer, d.pending = nil, nil
}
