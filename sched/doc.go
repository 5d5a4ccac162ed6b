// Package sched implements the multi-threaded work-stealing-adjacent
// task scheduler built on top of package fiber: a fixed pool of task
// threads runs fibers round-robin from per-thread queues, a smaller
// pool of reactor threads owns whatever blocks a fiber (I/O, timers,
// explicit waits), and a single-writer "work pump" phase periodically
// redistributes newly-unassigned tasks and fibers a reactor has
// finished with back onto task thread queues.
//
// Task threads never block waiting for work beyond a short idle park;
// reactor threads are the only threads allowed to make a genuinely
// blocking call on a fiber's behalf, so a slow task never stalls the
// other task threads' round robin.
package sched
