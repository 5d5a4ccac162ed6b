package queue

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestUnboundedPushPopOrder(t *testing.T) {
	q := NewUnbounded[int]()
	qt.Assert(t, qt.IsTrue(q.IsEmpty()))

	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	qt.Assert(t, qt.IsFalse(q.IsEmpty()))

	for i := 0; i < 10; i++ {
		v, ok := q.TryPop()
		qt.Assert(t, qt.IsTrue(ok))
		qt.Assert(t, qt.Equals(v, i))
	}
	qt.Assert(t, qt.IsTrue(q.IsEmpty()))
	_, ok := q.TryPop()
	qt.Assert(t, qt.IsFalse(ok))
}

// TestUnboundedCrossesNodes pushes one more element than a single
// node's ring capacity holds, forcing a second node to be allocated,
// then drains the queue and checks that a subsequent push recycles the
// first node rather than allocating a third.
func TestUnboundedCrossesNodes(t *testing.T) {
	q := NewUnbounded[int]()
	capacity := 1 << blockSizeLg2

	for i := 0; i < capacity+1; i++ {
		q.Push(i)
	}
	firstNodeAfterFill := q.first

	for i := 0; i < capacity+1; i++ {
		v, ok := q.TryPop()
		qt.Assert(t, qt.IsTrue(ok))
		qt.Assert(t, qt.Equals(v, i))
	}
	qt.Assert(t, qt.IsTrue(q.IsEmpty()))

	// The second node has room for capacity more elements, so the
	// capacity+1-th push below needs a new node, which must be the
	// drained first node.
	for i := 0; i < capacity+1; i++ {
		q.Push(1000 + i)
	}
	qt.Assert(t, qt.Equals(q.tail.Load(), firstNodeAfterFill))

	for i := 0; i < capacity+1; i++ {
		v, ok := q.TryPop()
		qt.Assert(t, qt.IsTrue(ok))
		qt.Assert(t, qt.Equals(v, 1000+i))
	}
}
