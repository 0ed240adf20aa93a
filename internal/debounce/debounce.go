// Package debounce coalesces bursts of work per key.
package debounce

import (
	"sync"
	"time"
)

type entry struct {
	timer *time.Timer
	fn    func()
}

// Debouncer runs at most one pending function per key, delay after the last
// Schedule call for that key. Scheduling again replaces the pending function.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	idle    *sync.Cond
	pending map[string]*entry
	running int
	stopped bool
}

func New(delay time.Duration) *Debouncer {
	d := &Debouncer{
		delay:   delay,
		pending: make(map[string]*entry),
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Delay returns the quiet period
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending function for key and arms fn in its place.
// It returns false once the debouncer has been stopped.
func (d *Debouncer) Schedule(key string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	if old, ok := d.pending[key]; ok {
		old.timer.Stop()
	}
	e := &entry{fn: fn}
	e.timer = time.AfterFunc(d.delay, func() { d.fire(key, e) })
	d.pending[key] = e
	return true
}

func (d *Debouncer) fire(key string, e *entry) {
	d.mu.Lock()
	if d.pending[key] != e {
		// replaced, flushed or cancelled while the timer was firing
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.running++
	d.mu.Unlock()

	defer d.done()
	e.fn()
}

func (d *Debouncer) done() {
	d.mu.Lock()
	d.running--
	if d.running == 0 {
		d.idle.Broadcast()
	}
	d.mu.Unlock()
}

// Cancel drops the pending function for key without running it
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending returns how many keys have an armed function
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush runs every pending function now, on the calling goroutine, and waits
// for functions already fired by their timers.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.pending))
	for key, e := range d.pending {
		e.timer.Stop()
		fns = append(fns, e.fn)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	d.Wait()
}

// Stop cancels every pending function, refuses new ones and waits for the
// functions already running.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for key, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()
	d.Wait()
}

// Wait blocks until no timer-fired function is running
func (d *Debouncer) Wait() {
	d.mu.Lock()
	for d.running > 0 {
		d.idle.Wait()
	}
	d.mu.Unlock()
}
