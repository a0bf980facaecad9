package query

import (
	"sync"
	"time"
)

// SearchDebounceInterval is how long search input must settle before a
// request is propagated.
const SearchDebounceInterval = 400 * time.Millisecond

// Debouncer coalesces a burst of values into a single trailing-edge fire
// carrying the final value. It backs search propagation and mutation-burst
// cache bumps.
type Debouncer struct {
	interval time.Duration
	fn       func(string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	armed   bool
}

// NewDebouncer constructs a Debouncer firing fn after interval of quiet.
func NewDebouncer(interval time.Duration, fn func(value string)) *Debouncer {
	if interval <= 0 {
		interval = SearchDebounceInterval
	}
	return &Debouncer{interval: interval, fn: fn}
}

// Trigger records a value and restarts the quiet window. Only the final
// value of a burst is delivered.
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = value
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

// Flush fires any pending value immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}

// Stop cancels any pending fire without delivering it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.armed = false
	d.mu.Unlock()
	d.fn(value)
}
