package pipeline

import (
	"sync"
	"time"
)

type pending[V any] struct {
	value V
	timer *time.Timer
	gen   uint64
}

// Debouncer holds at most one pending value per key. Each Push replaces the
// value and restarts that key's timer; fire runs once the timer elapses with
// no further Push.
type Debouncer[K comparable, V any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(K, V)
	entries map[K]*pending[V]
	gen     uint64
	flushed bool
}

func NewDebouncer[K comparable, V any](delay time.Duration, fire func(K, V)) *Debouncer[K, V] {
	return &Debouncer[K, V]{
		delay:   delay,
		fire:    fire,
		entries: make(map[K]*pending[V]),
	}
}

// Push replaces key's pending value and resets its timer. It reports false
// once the debouncer has been flushed.
func (d *Debouncer[K, V]) Push(key K, value V) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.flushed {
		return false
	}

	if e, ok := d.entries[key]; ok {
		e.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.entries[key] = &pending[V]{
		value: value,
		gen:   gen,
		timer: time.AfterFunc(d.delay, func() { d.elapse(key, gen) }),
	}

	return true
}

func (d *Debouncer[K, V]) elapse(key K, gen uint64) {
	d.mu.Lock()
	e, ok := d.entries[key]
	if !ok || e.gen != gen {
		// replaced or flushed after the timer had already started firing
		d.mu.Unlock()
		return
	}
	delete(d.entries, key)
	d.mu.Unlock()

	d.fire(key, e.value)
}

// Pending reports how many keys are waiting for their timer.
func (d *Debouncer[K, V]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Flush cancels every timer and fires the pending values immediately. No
// further Push is accepted.
func (d *Debouncer[K, V]) Flush() {
	d.mu.Lock()
	d.flushed = true
	entries := d.entries
	d.entries = make(map[K]*pending[V])
	for _, e := range entries {
		e.timer.Stop()
	}
	d.mu.Unlock()

	for key, e := range entries {
		d.fire(key, e.value)
	}
}
