package sched

import (
	"sync"
	"unsafe"

	"github.com/google/uuid"

	"github.com/fiberflow/fiberflow/fiber"
	"github.com/fiberflow/fiberflow/internal/stackpool"
)

// Func is the body of a task: it runs on a fiber stack and may call
// TaskHandle methods to cooperatively hand control back to the
// scheduler.
type Func func(t *TaskHandle)

// Task is one schedulable unit of work: a function plus (once it has
// run at least once) the fiber it runs on. A Task is created detached
// from any thread; Scheduler.Create hands it to some task thread's
// unassignedTasks, from which the work pump eventually moves it onto
// that thread's tasksAwaitingExecution ring.
type Task struct {
	id uuid.UUID
	fn Func

	owner     *taskThread // the task thread this task's fiber belongs to
	fb        *fiber.Fiber
	region    *stackpool.Region
	stackSize uint64 // 0 means use the owning thread's default

	// curRoot is whichever root fiber (a task thread's or a reactor's)
	// is presently hosting this task: set by that thread/reactor
	// immediately before switching into fb, and read by
	// TaskHandle.Yield/WaitFor to switch back to the right place. A
	// task hosted on a reactor for a wait must switch back to the
	// reactor's root, not its owning task thread's, so the reactor loop
	// regains control and can hand it back through the work pump.
	curRoot *fiber.Fiber

	// pendingDest* are set by TaskHandle.Yield/WaitFor just before the
	// task switches back to its current root, and read by whichever
	// thread/reactor loop resumes after that switch, to build the
	// stalledTasks/finishedTasks entry the work pump will route.
	pendingDestIsReactor bool
	pendingDestID        int

	mu       sync.Mutex
	cond     *sync.Cond
	finished bool
	panicVal any
}

// TaskRef is an opaque, comparable handle to a Task, safe to pass
// between threads and store in queues; the Task it names is only ever
// touched by the scheduler machinery and the task's own Func.
type TaskRef struct {
	t *Task
}

// TaskHandle is passed to a running Func, giving it the operations a
// task may perform on itself: yielding the task thread to the next
// ready task, and waiting for another task to finish.
type TaskHandle struct {
	s    *Scheduler
	task *Task
}

// ID returns the task's identity, stable for its whole lifetime.
func (h *TaskHandle) ID() uuid.UUID { return h.task.id }

// Yield suspends the calling task at this point and resumes its task
// thread's root fiber; the task becomes runnable again on the same
// thread without passing through a reactor.
func (h *TaskHandle) Yield() {
	t := h.task
	t.pendingDestIsReactor = false
	t.pendingDestID = t.owner.id
	h.s.api.Switch(t.fb, t.curRoot)
}

// WaitFor blocks the calling task until ref's task has finished,
// without blocking the underlying task thread: the wait is handed to
// a reactor thread, which drives the actual blocking wait on the
// task's own stack, per the reactor-hosted-wait design.
func (h *TaskHandle) WaitFor(ref TaskRef) {
	t := h.task
	if ref.t.isFinished() {
		return
	}
	reactor := h.s.pickReactor()
	if reactor == nil {
		// No reactor configured: fall back to yielding repeatedly. Still
		// correct, just busier than a reactor-hosted wait would be.
		for !ref.t.isFinished() {
			h.Yield()
		}
		return
	}
	t.pendingDestIsReactor = true
	t.pendingDestID = reactor.id
	h.s.api.Switch(t.fb, t.curRoot)
	// Resumed here means the reactor thread that popped this task off
	// its runningTasks has set t.curRoot to its own root and switched
	// us in; perform the real blocking wait on this fiber's own stack,
	// then switch back to the reactor's root so its loop regains
	// control and routes us back through the work pump.
	ref.Wait()
	h.s.api.Switch(t.fb, t.curRoot)
}

// newTask allocates a Task around fn; id is freshly generated.
func newTask(fn Func) *Task {
	t := &Task{id: uuid.New(), fn: fn}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *Task) isFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

// run is the trampoline fiber.Create invokes: it calls the task's own
// function, then records completion, broadcasting to any waiter.
func (t *Task) run(userData unsafe.Pointer) {
	h := (*TaskHandle)(userData)
	defer func() {
		if r := recover(); r != nil {
			t.mu.Lock()
			t.panicVal = r
			t.mu.Unlock()
		}
		t.mu.Lock()
		t.finished = true
		t.cond.Broadcast()
		t.mu.Unlock()
	}()
	t.fn(h)
}

// Wait blocks the caller until ref's task has run to completion,
// re-panicking with the task's own panic value if it failed rather
// than returned. Safe to call from a plain goroutine or from a task
// running on a reactor thread (see TaskHandle.WaitFor).
func (ref TaskRef) Wait() {
	t := ref.t
	t.mu.Lock()
	for !t.finished {
		t.cond.Wait()
	}
	p := t.panicVal
	t.mu.Unlock()
	if p != nil {
		panic(p)
	}
}

// Done reports whether the task has run to completion.
func (ref TaskRef) Done() bool {
	return ref.t.isFinished()
}
