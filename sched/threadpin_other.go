//go:build !linux

package sched

import "runtime"

func lockOSThreadForScheduling() {
	runtime.LockOSThread()
}

// setAffinity is a no-op outside Linux; Scheduler.PinThread still
// records the request, it just has no effect here.
func setAffinity(cpu int) {}
