//go:build windows

package stackpool

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// osBackend implements backend using VirtualAlloc/VirtualProtect/
// VirtualFree, the Windows counterpart of the unix mmap/mprotect
// backend in backend_unix.go.
type osBackend struct{}

func (osBackend) acquire(totalSize, initialSize uint64) (*Region, error) {
	total := roundUp64K(totalSize)

	base, err := windows.VirtualAlloc(0, uintptr(total), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, fmt.Errorf("stackpool: reserve %d bytes: %w", total, err)
	}

	r := &Region{
		Base:  base,
		Total: total,
		raw:   unsafe.Slice((*byte)(unsafe.Pointer(base)), total),
	}
	if err := (osBackend{}).recommit(r, initialSize); err != nil {
		windows.VirtualFree(base, 0, windows.MEM_RELEASE)
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

	committedStart := r.Total - committed

	if committed > 0 {
		addr := r.Base + uintptr(committedStart)
		if _, err := windows.VirtualAlloc(addr, uintptr(committed), windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
			return fmt.Errorf("stackpool: commit %d bytes: %w", committed, err)
		}
	}
	if committedStart > 0 {
		guardStart := committedStart - pageSize
		var old uint32
		addr := r.Base + uintptr(guardStart)
		if err := windows.VirtualProtect(addr, pageSize, windows.PAGE_NOACCESS, &old); err != nil {
			return fmt.Errorf("stackpool: guard page: %w", err)
		}
	}

	r.Committed = committed
	return nil
}

func (osBackend) guardAll(r *Region) {
	if r.Total <= pageSize {
		return
	}
	var old uint32
	addr := r.Base + pageSize
	_ = windows.VirtualProtect(addr, uintptr(r.Total-pageSize), windows.PAGE_NOACCESS, &old)
}

func (osBackend) release(r *Region) {
	if r.Base != 0 {
		windows.VirtualFree(r.Base, 0, windows.MEM_RELEASE)
		r.Base = 0
		r.raw = nil
	}
}
