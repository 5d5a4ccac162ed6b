package stackpool

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestAcquireReturnReuse(t *testing.T) {
	fl := NewFreeList()

	r1, err := fl.Acquire(256*1024, 64*1024)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(r1.Committed > 0))
	qt.Assert(t, qt.IsTrue(len(r1.Bytes()) > 0))

	fl.Return(r1)
	qt.Assert(t, qt.Equals(len(fl.free), 1))

	r2, err := fl.Acquire(256*1024, 64*1024)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(r2, r1))
	qt.Assert(t, qt.Equals(len(fl.free), 0))

	fl.Return(r2)
	fl.ReleaseAll()
	qt.Assert(t, qt.Equals(len(fl.free), 0))
}

func TestAcquireFullyCommitted(t *testing.T) {
	fl := NewFreeList()
	defer fl.ReleaseAll()

	r, err := fl.Acquire(128*1024, 0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(r.Committed, r.Total))
}
