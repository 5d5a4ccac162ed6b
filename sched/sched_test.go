package sched

import (
	"testing"
	"time"

	"github.com/go-quicktest/qt"
)

// TestRunSingleTask exercises one task on one task thread with no
// reactor: it must execute exactly once, and Wait must return with the
// task marked done.
func TestRunSingleTask(t *testing.T) {
	opts := DefaultOptions()
	opts.TaskThreads = 1
	opts.ReactorThreads = 0
	s := New(opts)
	s.Start()
	defer s.Stop()

	var ran int
	ref := s.Create(func(h *TaskHandle) { ran++ })
	ref.Wait()

	qt.Assert(t, qt.Equals(ran, 1))
	qt.Assert(t, qt.Equals(ref.Done(), true))
}

// TestYieldStaysOnTaskThread checks that a yielding task resumes on
// its own task thread's round robin without ever touching a reactor:
// with zero reactors configured, a yield-then-finish task must still
// complete.
func TestYieldStaysOnTaskThread(t *testing.T) {
	opts := DefaultOptions()
	opts.TaskThreads = 1
	opts.ReactorThreads = 0
	s := New(opts)
	s.Start()
	defer s.Stop()

	var yields int
	ref := s.Create(func(h *TaskHandle) {
		for i := 0; i < 3; i++ {
			yields++
			h.Yield()
		}
	})
	ref.Wait()
	qt.Assert(t, qt.Equals(yields, 3))
}

// TestWaitForRoutesThroughReactor checks that WaitFor completes
// correctly when a reactor thread is available to host the blocking
// wait, exercising the stalled -> reactor -> finished -> task thread
// round trip.
func TestWaitForRoutesThroughReactor(t *testing.T) {
	opts := DefaultOptions()
	opts.TaskThreads = 1
	opts.ReactorThreads = 1
	s := New(opts)
	s.Start()
	defer s.Stop()

	inner := s.Create(func(h *TaskHandle) {
		time.Sleep(10 * time.Millisecond)
	})

	var sawDone bool
	outer := s.Create(func(h *TaskHandle) {
		h.WaitFor(inner)
		sawDone = inner.Done()
	})
	outer.Wait()

	qt.Assert(t, qt.Equals(sawDone, true))
}

// TestManyTasksAcrossThreads runs a larger batch across several task
// and reactor threads to shake out races in the work pump's three
// phases.
func TestManyTasksAcrossThreads(t *testing.T) {
	opts := DefaultOptions()
	opts.TaskThreads = 4
	opts.ReactorThreads = 2
	s := New(opts)
	s.Start()
	defer s.Stop()

	const n = 200
	refs := make([]TaskRef, n)
	for i := range refs {
		refs[i] = s.Create(func(h *TaskHandle) {
			h.Yield()
			h.Yield()
		})
	}
	for _, ref := range refs {
		ref.Wait()
		qt.Assert(t, qt.Equals(ref.Done(), true))
	}
}

// TestAddAndDestroyThread exercises growing the task-thread pool at
// runtime and then retiring one: tasks submitted before and after
// DestroyThread must still complete.
func TestAddAndDestroyThread(t *testing.T) {
	opts := DefaultOptions()
	opts.TaskThreads = 2
	opts.ReactorThreads = 1
	s := New(opts)
	s.Start()
	defer s.Stop()

	idx := s.AddThread()
	qt.Assert(t, qt.Equals(idx, 2))

	var before []TaskRef
	for i := 0; i < 10; i++ {
		before = append(before, s.createOn(func(h *TaskHandle) { h.Yield() }, 0, idx))
	}

	s.DestroyThread(idx)

	for _, ref := range before {
		ref.Wait()
	}

	after := s.Create(func(h *TaskHandle) {})
	after.Wait()
	qt.Assert(t, qt.Equals(after.Done(), true))
}

// TestCreateStackUsesOverride exercises CreateStack's per-task stack
// size, which must not disturb a normally-sized sibling task.
func TestCreateStackUsesOverride(t *testing.T) {
	opts := DefaultOptions()
	s := New(opts)
	s.Start()
	defer s.Stop()

	big := s.CreateStack(func(h *TaskHandle) {}, 512*1024)
	small := s.Create(func(h *TaskHandle) {})
	big.Wait()
	small.Wait()
	qt.Assert(t, qt.Equals(big.Done(), true))
	qt.Assert(t, qt.Equals(small.Done(), true))
}
