// Package schedule coalesces rapid field edits before they reach the buffer.
// It replaces implicit UI timers with an explicit cancellable task per field
// path, so "no stale edit fires after a document switch" is an invariant the
// caller can rely on (and tests can exercise without wall-clock delays).
package schedule

import (
	"sync"
	"time"
)

// Timer is the cancellable handle a Clock hands back.
type Timer interface {
	Stop() bool
}

// Clock abstracts timer creation. Production code uses RealClock; tests
// substitute a manual clock and fire tasks deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the wall-clock implementation backed by time.AfterFunc.
func RealClock() Clock { return realClock{} }

// Opt bundles optional Debouncer knobs.
type Opt struct {
	Clock Clock
}

type task struct {
	gen   uint64
	timer Timer
	fn    func()
}

// Debouncer holds at most one pending task per key. Scheduling a key that
// already has a pending task supersedes it; the superseded callback never
// runs. All state is guarded by one mutex; callbacks run outside it.
type Debouncer struct {
	delay time.Duration
	clock Clock

	mu      sync.Mutex
	pending map[string]*task
	gen     uint64
}

// NewDebouncer creates a debouncer with the given delay window.
func NewDebouncer(delay time.Duration, opts ...Opt) *Debouncer {
	var opt Opt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	clock := opt.Clock
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{
		delay:   delay,
		clock:   clock,
		pending: make(map[string]*task),
	}
}

// Schedule queues fn to run after the delay window, replacing any pending
// task for the same key.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	d.gen++
	t := &task{gen: d.gen, fn: fn}
	gen := d.gen
	t.timer = d.clock.AfterFunc(d.delay, func() { d.fire(key, gen) })
	d.pending[key] = t
	d.mu.Unlock()
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	t, ok := d.pending[key]
	if !ok || t.gen != gen {
		// superseded or drained between the timer firing and now
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	fn := t.fn
	d.mu.Unlock()
	fn()
}

// Cancel drops the pending task for key without running it.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	t, ok := d.pending[key]
	if ok {
		t.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()
	return ok
}

// Flush runs the pending task for key immediately instead of waiting out the
// delay window.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	t, ok := d.pending[key]
	if !ok {
		d.mu.Unlock()
		return false
	}
	t.timer.Stop()
	delete(d.pending, key)
	fn := t.fn
	d.mu.Unlock()
	fn()
	return true
}

// DrainAll cancels every pending task. Required on document or object
// switch: after DrainAll returns, no previously scheduled callback will
// start, so a delayed edit cannot land on a buffer for a different object.
func (d *Debouncer) DrainAll() {
	d.mu.Lock()
	for key, t := range d.pending {
		t.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()
}

// Pending reports the number of keys with a queued task.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
