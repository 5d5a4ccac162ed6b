//go:build linux

package sched

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// lockOSThreadForScheduling dedicates the calling goroutine's OS
// thread to it for the thread's whole lifetime, so a CPU affinity set
// below and the foreign-stack switching in package fiber both apply to
// a thread that never migrates goroutines underneath us.
func lockOSThreadForScheduling() {
	runtime.LockOSThread()
}

// setAffinity binds the calling (locked) OS thread to a single CPU.
// Errors are deliberately swallowed: an affinity failure (e.g. cpu out
// of range, or CAP_SYS_NICE missing in a container) degrades to
// unpinned scheduling rather than aborting the thread.
func setAffinity(cpu int) {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	_ = unix.SchedSetaffinity(0, &set)
}
