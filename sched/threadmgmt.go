package sched

import "sync/atomic"

// AddThread grows the task-thread pool by one, starting its goroutine
// immediately if the scheduler is already running. The new thread
// joins the work pump's rotation on its very next pass.
func (s *Scheduler) AddThread() int {
	idx := len(s.threads)
	th := newTaskThread(s, idx)
	s.threads = append(s.threads, th)
	active := &atomic.Bool{}
	active.Store(true)
	s.active = append(s.active, active)
	if s.running.Load() {
		s.wg.Add(1)
		go th.loop()
	}
	return idx
}

// DetachThread removes task thread i from the work pump's rotation:
// the work pump stops assigning it new awaiting tasks, but the thread
// keeps running whatever it already has until it idles out naturally.
// Use DestroyThread to also reclaim what it's holding.
func (s *Scheduler) DetachThread(i int) {
	s.active[i].Store(false)
}

// DestroyThread detaches thread i and asks it to stop: the thread's
// own loop notices stopped on its next iteration, rehomes whatever is
// still sitting in its own queues onto sibling threads itself (see
// taskThread.rehomeAndStop), and returns. Rehoming happens on the
// owning thread rather than here so that every queue keeps exactly the
// single consumer it was built for — DestroyThread may be called from
// any goroutine, and that goroutine must never reach directly into
// another thread's queues while that thread's own loop might still be
// running.
func (s *Scheduler) DestroyThread(i int) {
	s.DetachThread(i)
	src := s.threads[i]
	src.stopped.Store(true)
	src.wake()
}

// PinThread requests that task thread i's OS thread be bound to cpu
// (a CPU index per golang.org/x/sys/unix's SchedSetaffinity) the next
// time it reaches pinToCurrentThread — which happens at thread start,
// so this only has an effect when called before Start or on a thread
// added afterward via AddThread. Outside Linux this records the
// request but has no effect; see threadpin_other.go.
func (s *Scheduler) PinThread(i int, cpu int) {
	s.threads[i].cpu = cpu
}
