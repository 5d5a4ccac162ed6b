// Package fiber implements the stackful, cooperatively-switched
// execution contexts the scheduler runs tasks on. A Fiber owns a
// dedicated stack region (see package stackpool) and an entry
// function; switching into it resumes exactly where it last yielded,
// by saving and restoring the callee-saved register set for the
// host ABI directly in assembly, with no OS thread involved.
//
// The four feature combinations of GetAPI mirror the two knobs a
// context switch can be asked to carry: preserving the FPU control
// word across a switch, and an "OS ABI safe" mode that exists for API
// symmetry with platforms that thread OS bookkeeping (SEH chain head,
// TIB stack bounds) through the switch. On both GOOS values this
// package targets, that bookkeeping is owned by the Go runtime's own
// panic/recover and stack-growth machinery rather than by the fiber,
// so OSABISafe changes no generated code.
//
// A fiber's entry function runs with the real hardware stack pointer
// parked inside a raw stackpool region that the Go runtime does not
// know about. Keep entry call graphs shallow and avoid code paths that
// would force a goroutine stack to grow deeply while "inside" a fiber;
// the task and reactor thread loops in package sched are written with
// this in mind.
package fiber
