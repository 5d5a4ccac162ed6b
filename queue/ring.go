// Package queue implements the lock-free single-producer/single-consumer
// queue algebra the scheduler is built on: a bounded power-of-two ring
// and an unbounded chain of such rings with a node free-list.
//
// Every type here assumes exactly one goroutine ever calls the producer
// methods and exactly one (possibly different) goroutine ever calls the
// consumer methods; mixing producer calls across goroutines, or
// consumer calls across goroutines, is undefined behavior.
package queue

import "sync/atomic"

// Ring is a bounded, wait-free single-producer/single-consumer queue
// whose capacity, reported by Cap, is a power of two. The zero value is
// not usable; use [NewRing].
type Ring[T any] struct {
	tail atomic.Uint32 // producer-owned
	buf  []T
	mask uint32
	head atomic.Uint32 // consumer-owned
}

// NewRing returns a Ring whose capacity is 1<<sizeLg2.
func NewRing[T any](sizeLg2 uint) *Ring[T] {
	size := uint32(1) << sizeLg2
	return &Ring[T]{
		buf:  make([]T, size),
		mask: size - 1,
	}
}

// Cap returns the ring's fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// TryPush stores val in the ring. It returns false without blocking if
// the ring is full. Must only be called by the single producer.
func (r *Ring[T]) TryPush(val T) bool {
	curTail := r.tail.Load() // relaxed would suffice; only the producer writes tail
	curHead := r.head.Load() // acquire: the consumer may be advancing it concurrently

	if curTail-curHead >= uint32(len(r.buf)) {
		return false
	}

	r.buf[curTail&r.mask] = val
	r.tail.Store(curTail + 1) // release: publish the slot to the consumer
	return true
}

// TryPop removes and returns the oldest pushed value. ok is false
// without blocking if the ring is empty. Must only be called by the
// single consumer.
func (r *Ring[T]) TryPop() (val T, ok bool) {
	curTail := r.tail.Load() // acquire: observe the producer's latest publish
	curHead := r.head.Load() // relaxed would suffice; only the consumer writes head

	if curTail == curHead {
		return val, false
	}

	val = r.buf[curHead&r.mask]
	var zero T
	r.buf[curHead&r.mask] = zero // drop the reference so it can be GC'd
	r.head.Store(curHead + 1)   // release: free the slot back to the producer
	return val, true
}

// Size returns the current occupancy. It is a snapshot and may be
// stale by the time the caller observes it.
func (r *Ring[T]) Size() int {
	tail := r.tail.Load()
	head := r.head.Load()
	return int(tail - head)
}
