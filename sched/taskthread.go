package sched

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/fiberflow/fiberflow/fiber"
	"github.com/fiberflow/fiberflow/internal/stackpool"
	"github.com/fiberflow/fiberflow/queue"
)

// idleParkInterval bounds how long a thread with both local queues
// empty sleeps before re-checking them and attempting the work pump
// again. This approximates a futex-style park/unpark; see doc.go.
const idleParkInterval = 2 * time.Millisecond

// taskThread runs a round-robin set of task fibers, handing off to
// the owning Scheduler's work pump whenever its local queues need
// redistribution. Each taskThread is meant to map to one pinned OS
// thread; see Scheduler.Start and pinToCurrentThread.
type taskThread struct {
	id  int
	s   *Scheduler
	api fiber.API

	root   fiber.Fiber // zero value: isNative() stand-in for this thread's own stack
	stacks *stackpool.FreeList

	tasksAwaitingExecution *queue.Ring[*Task]              // pump -> self
	unassignedTasks        *queue.Unbounded[*Task]         // Scheduler.Create/DestroyThread -> pump
	unassignedMu           sync.Mutex                      // serializes the many external callers of unassignedTasks.Push
	runningTasks           *queue.Unbounded[*Task]         // pump or self -> self
	stalledTasks           *queue.Unbounded[*stalledEntry] // self -> pump

	cpu     int         // -1 means unpinned; see pinToCurrentThread
	stopped atomic.Bool // set by Scheduler.DestroyThread; checked independent of s.stop

	wakeCh chan struct{}
}

func newTaskThread(s *Scheduler, id int) *taskThread {
	return &taskThread{
		id:                     id,
		s:                      s,
		api:                    s.api,
		stacks:                 newStackFreeList(),
		tasksAwaitingExecution: queue.NewRing[*Task](s.opts.RingSizeLg2),
		unassignedTasks:        queue.NewUnbounded[*Task](),
		runningTasks:           queue.NewUnbounded[*Task](),
		stalledTasks:           queue.NewUnbounded[*stalledEntry](),
		cpu:                    -1,
		wakeCh:                 make(chan struct{}, 1),
	}
}

// wake nudges the thread out of an idle park. Safe to call from any
// goroutine; never blocks.
func (th *taskThread) wake() {
	select {
	case th.wakeCh <- struct{}{}:
	default:
	}
}

// pushUnassigned adds t to this thread's unassigned queue. Unlike
// every other queue in the scheduler, unassignedTasks has neither a
// single fixed producer nor a single fixed consumer: Scheduler.Create
// is called concurrently by arbitrary caller goroutines, and
// DestroyThread's rehoming both produces (onto a sibling) and consumes
// (draining the thread being destroyed) concurrently with the work
// pump's own drain in Scheduler.assignUnassigned. unassignedMu
// serializes all of it rather than relying on queue.Unbounded's
// single-producer/single-consumer contract for this one queue.
func (th *taskThread) pushUnassigned(t *Task) {
	th.unassignedMu.Lock()
	th.unassignedTasks.Push(t)
	th.unassignedMu.Unlock()
}

// tryPopUnassigned is the consumer counterpart to pushUnassigned; see
// its doc comment for why this queue alone needs a lock at all.
func (th *taskThread) tryPopUnassigned() (*Task, bool) {
	th.unassignedMu.Lock()
	defer th.unassignedMu.Unlock()
	return th.unassignedTasks.TryPop()
}

// loop is the body run on the goroutine Scheduler.Start spins up for
// this thread: drain already-fibered tasks, drain newly awaiting ones
// (building a fiber for each), attempt the work pump, then park if
// there is truly nothing to do.
func (th *taskThread) loop() {
	defer th.s.wg.Done()
	th.pinToCurrentThread()

	for {
		th.drainActive()
		th.drainAwaiting()

		th.s.tryPump()

		if th.tasksAwaitingExecution.Size() == 0 && th.runningTasks.IsEmpty() {
			if th.s.stop.Load() {
				return
			}
			if th.stopped.Load() {
				th.rehomeAndStop()
				return
			}
			select {
			case <-th.wakeCh:
			case <-time.After(idleParkInterval):
			}
		}
	}
}

// rehomeAndStop is called by this thread's own loop, on this thread's
// own goroutine, once Scheduler.DestroyThread has marked it stopped
// and both local queues have drained down to the awaiting-ring/running
// snapshot taken just before this call. It moves anything still
// sitting in this thread's own queues onto an active sibling; if a
// task or Create call races in after this point it is rehomed on a
// later pump pass instead (assignUnassigned only targets active
// threads).
func (th *taskThread) rehomeAndStop() {
	siblings := make([]*taskThread, 0, len(th.s.threads)-1)
	for j, sib := range th.s.threads {
		if sib != th && th.s.active[j].Load() {
			siblings = append(siblings, sib)
		}
	}
	if len(siblings) == 0 {
		return
	}

	next := func() *taskThread {
		return siblings[int(th.s.nextCreate.Add(1)-1)%len(siblings)]
	}

	// Tasks still unstarted (no fiber yet) can simply be resubmitted as
	// if freshly created.
	for {
		t, ok := th.tryPopUnassigned()
		if !ok {
			break
		}
		dst := next()
		dst.pushUnassigned(t)
		dst.wake()
	}
	for {
		t, ok := th.tasksAwaitingExecution.TryPop()
		if !ok {
			break
		}
		dst := next()
		dst.pushUnassigned(t)
		dst.wake()
	}
	// A task already in runningTasks has a live fiber suspended
	// mid-flight: it must be handed straight to a sibling's runningTasks
	// under its new owner, never back through startTask, which would
	// acquire a second stack and re-invoke its Func from the top.
	for {
		t, ok := th.runningTasks.TryPop()
		if !ok {
			break
		}
		dst := next()
		t.owner = dst
		dst.runningTasks.Push(t)
		dst.wake()
	}
}

// drainActive resumes every task whose fiber already exists and is
// sitting in runningTasks, in arrival order.
func (th *taskThread) drainActive() {
	for {
		t, ok := th.runningTasks.TryPop()
		if !ok {
			return
		}
		th.runOne(t)
	}
}

// drainAwaiting builds a fresh fiber for every task the pump has
// placed in this thread's awaiting ring and runs each once.
func (th *taskThread) drainAwaiting() {
	for {
		t, ok := th.tasksAwaitingExecution.TryPop()
		if !ok {
			return
		}
		th.startTask(t)
		th.runOne(t)
	}
}

// startTask acquires a stack and builds t's fiber. It does not run it;
// the caller switches in immediately after.
func (th *taskThread) startTask(t *Task) {
	stackSize := t.stackSize
	if stackSize == 0 {
		stackSize = th.s.opts.StackSize
	}
	region, err := th.stacks.Acquire(stackSize, stackSize)
	if err != nil {
		t.mu.Lock()
		t.panicVal = err
		t.finished = true
		t.cond.Broadcast()
		t.mu.Unlock()
		t.fb = nil
		return
	}
	t.region = region
	t.owner = th

	h := &TaskHandle{s: th.s, task: t}
	t.fb = th.api.Create(region, t.run, unsafe.Pointer(h))
}

// runOne switches into t's fiber (which must exist) and, once it
// switches back, either frees t's stack because it finished or routes
// it onward via stalledTasks according to the destination the task
// itself recorded (TaskHandle.Yield/WaitFor).
//
// A task can also arrive here already finished: TaskHandle.WaitFor
// hands a task off to a reactor thread, and the task's function may
// return while still hosted there, so the normal-return unwind that
// ends its fiber happens on the reactor's root, not this thread's.
// Such a fiber must never be switched into again.
func (th *taskThread) runOne(t *Task) {
	if t.fb == nil {
		// startTask failed to acquire a stack; nothing to run.
		return
	}
	if t.isFinished() {
		th.stacks.Return(t.region)
		t.region = nil
		return
	}

	t.curRoot = &th.root
	th.api.Switch(&th.root, t.fb)

	if t.isFinished() {
		th.stacks.Return(t.region)
		t.region = nil
		return
	}

	th.stalledTasks.Push(&stalledEntry{
		task:           t,
		originThreadID: th.id,
		destIsReactor:  t.pendingDestIsReactor,
		destID:         t.pendingDestID,
	})
}

// pinToCurrentThread locks this goroutine to its current OS thread and,
// if Scheduler.PinThread requested a CPU before Start, applies that
// affinity; see threadpin_linux.go/threadpin_other.go.
func (th *taskThread) pinToCurrentThread() {
	lockOSThreadForScheduling()
	if th.cpu >= 0 {
		setAffinity(th.cpu)
	}
}
