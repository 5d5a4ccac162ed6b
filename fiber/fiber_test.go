package fiber

import (
	"unsafe"

	"testing"

	"github.com/go-quicktest/qt"

	"github.com/fiberflow/fiberflow/internal/stackpool"
)

const testStackSize = 256 * 1024

func newTestRegion(t *testing.T) *stackpool.Region {
	t.Helper()
	fl := stackpool.NewFreeList()
	r, err := fl.Acquire(testStackSize, 0)
	qt.Assert(t, qt.IsNil(err))
	t.Cleanup(func() {
		fl.Return(r)
		fl.ReleaseAll()
	})
	return r
}

// TestRoundRobin builds a relay of four fibers, each appending its
// index and switching to the next, with the last returning normally.
// This exercises the round-robin scenario end to end: every fiber
// resumes exactly where its predecessor left off, and the last fiber's
// normal return leaves the engine at the caller of Start, since every
// Switch passes the first fiber's return slot on to the next.
func TestRoundRobin(t *testing.T) {
	api := GetAPI(None)

	const n = 4
	order := make([]int, 0, n)
	fibers := make([]*Fiber, n)

	type ctx struct {
		idx   int
		next  *Fiber // nil for the last fiber in the chain
		order *[]int
	}
	ctxs := make([]*ctx, n)
	for i := range ctxs {
		ctxs[i] = &ctx{idx: i, order: &order}
	}

	for i := 0; i < n; i++ {
		region := newTestRegion(t)
		fibers[i] = api.Create(region, func(p unsafe.Pointer) {
			c := (*ctx)(p)
			*c.order = append(*c.order, c.idx)
			if c.next != nil {
				api.Switch(fibers[c.idx], c.next)
			}
		}, unsafe.Pointer(ctxs[i]))
	}
	for i := 0; i < n-1; i++ {
		ctxs[i].next = fibers[i+1]
	}

	api.Start(fibers[0])

	qt.Assert(t, qt.Equals(len(order), n))
	for i, v := range order {
		qt.Assert(t, qt.Equals(v, i))
	}
}

// TestFPUControlPreserved verifies PreserveFPUControl keeps a fiber's
// own MXCSR rounding mode from leaking into, or being clobbered by,
// another fiber it switches through: fiber a sets a distinctive
// control word, switches to fiber b (which sets a different one and
// switches back), and must observe its own value intact on resume.
func TestFPUControlPreserved(t *testing.T) {
	api := GetAPI(PreserveFPUControl)
	regionA := newTestRegion(t)
	regionB := newTestRegion(t)

	const valueA = roundTowardZeroMXCSR
	const valueB = 0x1F80 // default MXCSR: round-to-nearest, all exceptions masked

	var afterResume uint32
	var a, b *Fiber

	a = api.Create(regionA, func(p unsafe.Pointer) {
		setMXCSR(valueA)
		api.Switch(a, b)
		afterResume = getMXCSR()
	}, nil)
	b = api.Create(regionB, func(p unsafe.Pointer) {
		setMXCSR(valueB)
		api.Switch(b, a)
	}, nil)

	api.Start(a)

	qt.Assert(t, qt.Equals(afterResume, uint32(valueA)))
}
