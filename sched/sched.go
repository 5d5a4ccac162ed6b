package sched

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/fiberflow/fiberflow/fiber"
	"github.com/fiberflow/fiberflow/internal/rtdebug"
	"github.com/fiberflow/fiberflow/internal/stackpool"
	"github.com/kr/pretty"
	"golang.org/x/exp/slices"
)

// Options configures a Scheduler. The zero value is not valid; start
// from DefaultOptions.
type Options struct {
	TaskThreads    int
	ReactorThreads int
	StackSize      uint64
	RingSizeLg2    uint
	FiberOptions   fiber.Options
}

// DefaultOptions returns one task thread, one reactor, 256 KiB
// stacks, and an 8-slot awaiting ring per thread — callers with real
// concurrency needs are expected to override TaskThreads/ReactorThreads
// (sched/schedcfg reads these from YAML for cmd/fiberrt).
func DefaultOptions() Options {
	return Options{
		TaskThreads:    1,
		ReactorThreads: 1,
		StackSize:      256 * 1024,
		RingSizeLg2:    3,
		FiberOptions:   fiber.None,
	}
}

// Scheduler owns a fixed pool of task threads and reactor threads and
// the queues connecting them. Create one with New and call Start
// before submitting work.
type Scheduler struct {
	opts Options
	api  fiber.API

	threads  []*taskThread
	reactors []*reactorThread
	active   []*atomic.Bool // one per task thread; false once detached/destroyed

	pumpLock atomic.Bool // CAS-acquired: only one thread runs the work pump at a time

	nextCreate  atomic.Uint64 // round-robins Scheduler.Create across threads
	nextReactor atomic.Uint64 // round-robins TaskHandle.WaitFor across reactors

	running atomic.Bool
	stop    atomic.Bool
	wg      sync.WaitGroup
}

// New builds a Scheduler; call Start to spin up its threads.
func New(opts Options) *Scheduler {
	if opts.TaskThreads <= 0 {
		opts.TaskThreads = 1
	}
	if opts.RingSizeLg2 == 0 {
		opts.RingSizeLg2 = 3
	}
	s := &Scheduler{
		opts: opts,
		api:  fiber.GetAPI(opts.FiberOptions),
	}
	s.active = make([]*atomic.Bool, opts.TaskThreads)
	for i := 0; i < opts.TaskThreads; i++ {
		s.threads = append(s.threads, newTaskThread(s, i))
		s.active[i] = &atomic.Bool{}
		s.active[i].Store(true)
	}
	for i := 0; i < opts.ReactorThreads; i++ {
		s.reactors = append(s.reactors, newReactorThread(s, i))
	}
	return s
}

// Start launches every task and reactor thread as a dedicated
// goroutine. Each is expected to park almost entirely on its own wake
// channel/timer rather than the Go scheduler's run queue, so mapping
// them onto OS threads (via runtime.LockOSThread, wired in
// pinToCurrentThread) is safe even under GOMAXPROCS pressure.
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	for _, th := range s.threads {
		s.wg.Add(1)
		go th.loop()
	}
	for _, r := range s.reactors {
		s.wg.Add(1)
		go r.loop()
	}
}

// Stop signals every thread to exit once its local queues run dry and
// waits for them to do so. Shutdown is collective and unconditional:
// tasks submitted concurrently with or after Stop may never run.
func (s *Scheduler) Stop() {
	s.stop.Store(true)
	for _, th := range s.threads {
		th.wake()
	}
	for _, r := range s.reactors {
		r.wake()
	}
	s.wg.Wait()
	for _, th := range s.threads {
		th.stacks.ReleaseAll()
	}
}

// Create submits fn as a new task, returning a ref Wait can be called
// on. It round-robins across task threads' unassignedTasks, from
// which the work pump moves it onto some thread's awaiting ring.
func (s *Scheduler) Create(fn Func) TaskRef {
	return s.createOn(fn, 0, int(s.nextCreate.Add(1)-1)%len(s.threads))
}

// CreateStack is Create plus an explicit stack size for this task
// alone, overriding Options.StackSize.
func (s *Scheduler) CreateStack(fn Func, stackSize uint64) TaskRef {
	return s.createOn(fn, stackSize, int(s.nextCreate.Add(1)-1)%len(s.threads))
}

func (s *Scheduler) createOn(fn Func, stackSize uint64, threadIdx int) TaskRef {
	t := newTask(fn)
	t.stackSize = stackSize
	th := s.threads[threadIdx]
	th.pushUnassigned(t)
	th.wake()
	return TaskRef{t: t}
}

// Run submits fn and blocks the calling goroutine until it completes,
// a run-and-wait convenience over Create/Wait.
func (s *Scheduler) Run(fn Func) {
	s.Create(fn).Wait()
}

func (s *Scheduler) pickReactor() *reactorThread {
	if len(s.reactors) == 0 {
		return nil
	}
	idx := int(s.nextReactor.Add(1)-1) % len(s.reactors)
	return s.reactors[idx]
}

// tryPump attempts to acquire the work-pump lock and, if it does, runs
// all three redistribution phases once. It returns immediately,
// without blocking, if another thread already holds the lock.
func (s *Scheduler) tryPump() {
	if !s.pumpLock.CompareAndSwap(false, true) {
		return
	}
	defer s.pumpLock.Store(false)

	s.drainStalled()
	s.drainReactors()
	s.assignUnassigned()
}

// drainStalled is work-pump phase 1: route every stalled task to
// whatever thread (task thread for a yield, reactor for a wait) it
// asked to go to.
func (s *Scheduler) drainStalled() {
	for _, th := range s.threads {
		for {
			e, ok := th.stalledTasks.TryPop()
			if !ok {
				break
			}
			if !e.destIsReactor {
				dest := s.threads[e.destID]
				dest.runningTasks.Push(e.task)
				dest.wake()
				continue
			}
			reactor := s.reactors[e.destID]
			reactor.runningTasks.Push(&stalledEntry{task: e.task, originThreadID: e.originThreadID})
			reactor.wake()
			s.logPump("routed task %s to reactor %d", e.task.id, e.destID)
		}
	}
}

// drainReactors is work-pump phase 2: return every fiber a reactor
// finished waiting on to its originating task thread.
func (s *Scheduler) drainReactors() {
	for _, r := range s.reactors {
		for {
			e, ok := r.finishedTasks.TryPop()
			if !ok {
				break
			}
			origin := s.threads[e.originThreadID]
			origin.runningTasks.Push(e.task)
			origin.wake()
		}
	}
}

// writeableThread tracks, within one assignUnassigned pass, how many
// open slots a task thread's awaiting ring had left at the start of
// the pass.
type writeableThread struct {
	idx  int
	open int
}

// assignUnassigned is work-pump phase 3: round-robin newly created
// tasks out of every thread's unassignedTasks into whichever writeable
// thread's awaiting ring is next in rotation.
func (s *Scheduler) assignUnassigned() {
	writeable := make([]writeableThread, 0, len(s.threads))
	for i, th := range s.threads {
		if !s.active[i].Load() {
			continue
		}
		open := th.tasksAwaitingExecution.Cap() - th.tasksAwaitingExecution.Size()
		if open > 0 {
			writeable = append(writeable, writeableThread{idx: i, open: open})
		}
	}
	// writeable is already in thread-id order: it was built by a single
	// ascending range over s.threads.

	pos := 0
	for len(writeable) > 0 {
		progressed := false
		for i := 0; i < len(s.threads); i++ {
			t, ok := s.threads[i].tryPopUnassigned()
			if !ok {
				continue
			}
			if pos >= len(writeable) {
				pos = 0
			}
			w := writeable[pos]
			dest := s.threads[w.idx]
			wasEmpty := dest.tasksAwaitingExecution.Size() == 0
			dest.tasksAwaitingExecution.TryPush(t)
			writeable[pos].open--
			if wasEmpty {
				dest.wake()
			}
			if writeable[pos].open == 0 {
				j := slices.IndexFunc(writeable, func(x writeableThread) bool { return x.idx == w.idx })
				writeable[j] = writeable[len(writeable)-1]
				writeable = writeable[:len(writeable)-1]
				if pos >= len(writeable) {
					pos = 0
				}
			} else {
				pos++
			}
			progressed = true
		}
		if !progressed {
			break
		}
	}
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("sched.Scheduler{threads=%d reactors=%d}", len(s.threads), len(s.reactors))
}

// DebugDump pretty-prints queue depths and thread states for
// diagnostics.
func (s *Scheduler) DebugDump() string {
	type threadDump struct {
		ID       int
		Awaiting int
		Running  bool
		Active   bool
	}
	dumps := make([]threadDump, len(s.threads))
	for i, th := range s.threads {
		dumps[i] = threadDump{
			ID:       th.id,
			Awaiting: th.tasksAwaitingExecution.Size(),
			Running:  !th.runningTasks.IsEmpty(),
			Active:   s.active[i].Load(),
		}
	}
	return fmt.Sprintf("%# v", pretty.Formatter(dumps))
}

func (s *Scheduler) logPump(format string, args ...any) {
	if rtdebug.Flags.LogPump {
		log.Printf("sched: "+format, args...)
	}
}

func newStackFreeList() *stackpool.FreeList { return stackpool.NewFreeList() }
