package buffer

// Ring is a bounded FIFO buffer. Append is O(1); when the ring is at capacity
// the oldest item is evicted.
type Ring[T any] struct {
	items []T
	head  int
	size  int
}

// NewRing creates a ring with the given capacity. Capacity must be positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		items: make([]T, capacity),
	}
}

// Append adds an item, evicting the oldest when full.
func (r *Ring[T]) Append(item T) {
	if r.size < len(r.items) {
		r.items[(r.head+r.size)%len(r.items)] = item
		r.size++
		return
	}
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Items returns a copy of the buffered items, oldest first. The ring is not
// mutated.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}
	return out
}

// Last returns the most recently appended item.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.head+r.size-1)%len(r.items)], true
}

// First returns the oldest buffered item.
func (r *Ring[T]) First() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[r.head], true
}
