// Package ringbuf holds the last N ticks' worth of samples in a fixed
// circular buffer indexed by tick modulo capacity. Older entries are
// silently overwritten; reads of an evicted tick report a miss instead of
// returning the overwriting tick's value.
package ringbuf

type slot[T any] struct {
	tick  uint32
	valid bool
	value T
}

type Buffer[T any] struct {
	slots []slot[T]
}

func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	return &Buffer[T]{slots: make([]slot[T], capacity)}
}

func (b *Buffer[T]) Cap() int { return len(b.slots) }

// Put stores value at tick's slot, evicting whatever tick occupied it.
func (b *Buffer[T]) Put(tick uint32, value T) {
	b.slots[int(tick)%len(b.slots)] = slot[T]{
		tick:  tick,
		valid: true,
		value: value,
	}
}

// Get returns the value stored for tick. The second return is false when the
// slot was never written or has since been overwritten by a different tick.
func (b *Buffer[T]) Get(tick uint32) (T, bool) {
	s := b.slots[int(tick)%len(b.slots)]
	if !s.valid || s.tick != tick {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Reset drops every sample. Used at session teardown.
func (b *Buffer[T]) Reset() {
	clear(b.slots)
}
