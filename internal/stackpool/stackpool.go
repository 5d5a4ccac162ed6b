// Package stackpool implements the stack region allocator the fiber
// engine and task threads consume: acquire a committed-and-reserved
// memory region for a fiber's stack, return it to a per-thread
// free-list on fiber exit, and release everything at shutdown.
//
// This keeps the hard engineering core (package fiber) decoupled from
// OS virtual-memory calls: they live behind the tiny [Region] /
// [FreeList] surface below so that
// [github.com/fiberflow/fiberflow/fiber] never imports an OS package
// directly.
package stackpool

import "unsafe"

// sliceBase returns the address of a non-empty byte slice's backing
// array, used by each backend to populate Region.Base.
func sliceBase(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

// pageSize is the coarse alignment new regions are rounded up to. 64
// KiB is also Windows's VirtualAlloc granularity, so a single constant
// serves both backends.
const pageSize = 64 * 1024

// Region is a contiguous block of memory backing one fiber's stack.
// Base is the low address; the region is Total bytes long, of which
// the top Committed bytes are backed by read/write pages. A region
// obtained from [FreeList.Acquire] must eventually be passed to exactly one of
// [FreeList.Return] or, for teardown, dropped via [FreeList.ReleaseAll].
type Region struct {
	Base      uintptr
	Total     uint64
	Committed uint64

	raw []byte // keeps the backing allocation (or mmap mapping) alive/identifiable
}

// Bytes exposes the full backing slice. Callers that need to poke at
// the guard-page boundary for tests use this; production code only
// ever touches the region through the stack pointer arithmetic in
// package fiber.
func (r *Region) Bytes() []byte { return r.raw }

// roundUp64K rounds n up to the nearest multiple of pageSize.
func roundUp64K(n uint64) uint64 {
	return (n + pageSize - 1) &^ (pageSize - 1)
}

// FreeList is a single thread's cache of reusable stack regions, each
// left no-access by Return until a later Acquire recommits it. It is
// not safe for concurrent use; each task thread
// owns exactly one.
type FreeList struct {
	backend backend
	free    []*Region
}

// NewFreeList returns an empty free-list backed by the host OS's
// virtual memory facilities.
func NewFreeList() *FreeList {
	return &FreeList{backend: osBackend{}}
}

// Acquire returns a region of totalSize bytes (rounded up to the 64
// KiB allocation granularity) with the top initialSize bytes committed
// read/write and a guard page at the commit/reserve boundary. A region
// already sitting in the free-list is reused in preference to asking
// the OS for a fresh mapping. If initialSize == 0, the whole region is
// committed and no guard page is placed.
func (fl *FreeList) Acquire(totalSize, initialSize uint64) (*Region, error) {
	if n := len(fl.free); n > 0 {
		r := fl.free[n-1]
		fl.free = fl.free[:n-1]
		if r.Total >= roundUp64K(totalSize) {
			if err := fl.backend.recommit(r, initialSize); err != nil {
				return nil, err
			}
			return r, nil
		}
		// Too small to reuse; release it for good and fall through to a
		// fresh allocation.
		fl.backend.release(r)
	}
	return fl.backend.acquire(totalSize, initialSize)
}

// Return marks all but the first page of region no-access, for early
// fault detection of pointers into a freed stack, and pushes it onto
// the free-list for reuse by a later Acquire.
func (fl *FreeList) Return(r *Region) {
	fl.backend.guardAll(r)
	fl.free = append(fl.free, r)
}

// ReleaseAll decommits and releases every region currently sitting in
// the free-list. Regions already loaned out to live fibers are not
// affected; callers must ensure no fiber is running before calling
// this.
func (fl *FreeList) ReleaseAll() {
	for _, r := range fl.free {
		fl.backend.release(r)
	}
	fl.free = nil
}

// backend is the OS-specific half of the allocator: everything that
// needs real virtual-memory calls.
type backend interface {
	acquire(totalSize, initialSize uint64) (*Region, error)
	recommit(r *Region, initialSize uint64) error
	guardAll(r *Region)
	release(r *Region)
}
