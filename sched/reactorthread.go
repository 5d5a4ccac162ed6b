package sched

import (
	"time"

	"github.com/fiberflow/fiberflow/fiber"
	"github.com/fiberflow/fiberflow/queue"
)

// stalledEntry is a task in transit through a queue toward a thread
// other than the one that last ran it, carrying enough routing
// information for the work pump to place it. originThreadID is always
// the task thread that produced the entry; destIsReactor/destID name
// where it is headed (only meaningful for the task-thread -> anywhere
// direction; reactor -> task-thread entries always return to
// originThreadID).
type stalledEntry struct {
	task           *Task
	originThreadID int
	destIsReactor  bool
	destID         int
}

// reactorThread drains fibers that need to perform a blocking wait,
// switching into each one and letting it perform that wait on its own
// stack; the reactor's own goroutine only ever blocks inside the
// fiber it has switched into, never the other way around.
type reactorThread struct {
	id  int
	s   *Scheduler
	api fiber.API

	root fiber.Fiber

	runningTasks  *queue.Unbounded[*stalledEntry] // pump -> self
	finishedTasks *queue.Unbounded[*stalledEntry] // self -> pump

	wakeCh chan struct{}
}

func newReactorThread(s *Scheduler, id int) *reactorThread {
	return &reactorThread{
		id:            id,
		s:             s,
		api:           s.api,
		runningTasks:  queue.NewUnbounded[*stalledEntry](),
		finishedTasks: queue.NewUnbounded[*stalledEntry](),
		wakeCh:        make(chan struct{}, 1),
	}
}

func (r *reactorThread) wake() {
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

func (r *reactorThread) loop() {
	defer r.s.wg.Done()

	for {
		drained := false
		for {
			entry, ok := r.runningTasks.TryPop()
			if !ok {
				break
			}
			drained = true
			entry.task.curRoot = &r.root
			r.api.Switch(&r.root, entry.task.fb)
			r.finishedTasks.Push(entry)
		}

		if !drained && r.runningTasks.IsEmpty() {
			if r.s.stop.Load() {
				return
			}
			select {
			case <-r.wakeCh:
			case <-time.After(idleParkInterval):
			}
		}
	}
}
