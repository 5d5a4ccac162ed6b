//go:build unix

package stackpool

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// osBackend implements backend using mmap/mprotect/munmap: reserve
// totalSize bytes, commit the top initialSize bytes read/write, and
// place a guard page at the commit/reserve boundary.
type osBackend struct{}

func (osBackend) acquire(totalSize, initialSize uint64) (*Region, error) {
	total := roundUp64K(totalSize)

	// Reserve the whole region with no access first, matching the
	// "reserved, not committed" semantics of VirtualAlloc(MEM_RESERVE):
	// mmap it PROT_NONE, then mprotect the committed tail to RW.
	raw, err := unix.Mmap(-1, 0, int(total), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("stackpool: reserve %d bytes: %w", total, err)
	}

	r := &Region{
		Base:  uintptr(0),
		Total: total,
		raw:   raw,
	}
	if len(raw) > 0 {
		r.Base = sliceBase(raw)
	}

	if err := (osBackend{}).recommit(r, initialSize); err != nil {
		unix.Munmap(raw)
		return nil, err
	}
	return r, nil
}

func (osBackend) recommit(r *Region, initialSize uint64) error {
	committed := initialSize
	if committed == 0 || committed > r.Total {
		committed = r.Total
	}
	committed = roundUp64K(committed)
	if committed > r.Total {
		committed = r.Total
	}

	committedStart := int(r.Total - committed)
	if committedStart < 0 {
		committedStart = 0
	}

	// Commit the top `committed` bytes read/write.
	if committed > 0 {
		if err := unix.Mprotect(r.raw[committedStart:], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return fmt.Errorf("stackpool: commit %d bytes: %w", committed, err)
		}
	}
	// Leave one guard page PROT_NONE right below the committed region,
	// if there's room for one, so stack overflow faults instead of
	// corrupting the next region.
	if committedStart > 0 {
		guardEnd := committedStart
		guardStart := guardEnd - pageSize
		if guardStart < 0 {
			guardStart = 0
		}
		if err := unix.Mprotect(r.raw[guardStart:guardEnd], unix.PROT_NONE); err != nil {
			return fmt.Errorf("stackpool: guard page: %w", err)
		}
	}

	r.Committed = committed
	return nil
}

func (osBackend) guardAll(r *Region) {
	if len(r.raw) <= pageSize {
		return
	}
	// Leave the very first page alone and mark the rest no-access.
	_ = unix.Mprotect(r.raw[pageSize:], unix.PROT_NONE)
}

func (osBackend) release(r *Region) {
	if r.raw != nil {
		unix.Munmap(r.raw)
		r.raw = nil
	}
}
