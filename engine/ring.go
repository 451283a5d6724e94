package engine

import "sync/atomic"

// spscRing is a bounded single-producer/single-consumer queue. The
// producer only writes tail, the consumer only writes head, so a
// load/store pair per side is enough for correctness. Capacity is
// rounded up to a power of two.
type spscRing[T any] struct {
	buf  []T
	mask uint64
	head atomic.Uint64
	tail atomic.Uint64
}

func newSPSCRing[T any](capacity int) *spscRing[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &spscRing[T]{buf: make([]T, size), mask: uint64(size - 1)}
}

// push enqueues v from the producer side. It never blocks and returns
// false when the ring is full.
func (r *spscRing[T]) push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.buf)) {
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// drain calls fn for every queued element from the consumer side.
func (r *spscRing[T]) drain(fn func(T)) {
	head := r.head.Load()
	tail := r.tail.Load()
	for ; head != tail; head++ {
		fn(r.buf[head&r.mask])
	}
	r.head.Store(head)
}

func (r *spscRing[T]) length() int {
	return int(r.tail.Load() - r.head.Load())
}
