package queue

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestRingFullEmpty(t *testing.T) {
	r := NewRing[int](2) // capacity 4

	for i := 0; i < 4; i++ {
		qt.Assert(t, qt.IsTrue(r.TryPush(i)))
	}
	qt.Assert(t, qt.IsFalse(r.TryPush(4)))

	for i := 0; i < 4; i++ {
		v, ok := r.TryPop()
		qt.Assert(t, qt.IsTrue(ok))
		qt.Assert(t, qt.Equals(v, i))
	}
	_, ok := r.TryPop()
	qt.Assert(t, qt.IsFalse(ok))
}

func TestRingSize(t *testing.T) {
	r := NewRing[int](2)
	qt.Assert(t, qt.Equals(r.Size(), 0))
	r.TryPush(1)
	r.TryPush(2)
	qt.Assert(t, qt.Equals(r.Size(), 2))
	r.TryPop()
	qt.Assert(t, qt.Equals(r.Size(), 1))
}

func TestRingConcurrentProducerConsumer(t *testing.T) {
	const n = 100000
	r := NewRing[int](4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		next := 0
		for next < n {
			if v, ok := r.TryPop(); ok {
				qt.Assert(t, qt.Equals(v, next))
				next++
			}
		}
	}()

	for i := 0; i < n; i++ {
		for !r.TryPush(i) {
		}
	}
	<-done
}
