package fiber

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/fiberflow/fiberflow/internal/rtdebug"
	"github.com/fiberflow/fiberflow/internal/stackpool"
)

// Entry is the function a fiber runs. userData is whatever pointer was
// passed to Create, round-tripped without interpretation.
type Entry func(userData unsafe.Pointer)

// Options selects which optional register groups a context switch
// carries, per GetAPI.
type Options uint8

const (
	// None switches only the mandatory callee-saved integer registers.
	None Options = 0
	// OSABISafe additionally threads OS thread-local bookkeeping
	// through the switch on platforms that need it. Accepted on every
	// platform this package targets; see package doc.
	OSABISafe Options = 1 << 0
	// PreserveFPUControl additionally saves and restores the FPU/SSE
	// control-and-status word, so a fiber that changes rounding mode
	// or unmasks an FP exception doesn't leak that change to fibers
	// that run after it.
	PreserveFPUControl Options = 1 << 1

	validOptions = OSABISafe | PreserveFPUControl
)

func (o Options) saveFPU() int64 {
	if o&PreserveFPUControl != 0 {
		return 1
	}
	return 0
}

// sentinel is written at stackHead-1 when a stack is first built and
// checked by fiberTrampolineGo on first entry: by then it must have
// been overwritten by the switch that got us there.
const sentinel = uintptr(0xBAADF00DDEADBEEF)

// endOfStackGuard is written at the committed stack's low end.
// GuardEndOfStack checks it before every switch into a fiber, to
// catch an overflowed stack before it corrupts whatever sits below.
const endOfStackGuard = uintptr(0xDEADC0DEDEADC0DE)

const wordSize = unsafe.Sizeof(uintptr(0))

// API is an immutable, cheaply-copied handle selecting one context
// switch implementation. Every Fiber created by an API must only ever
// be passed to Start/Switch calls on that same API; mixing is a usage
// error, not something this package detects at switch time, in
// keeping with the invariant that Switch itself never fails.
type API struct {
	opts Options
}

// GetAPI returns the engine for the given option combination. It
// panics on an invalid combination or unsupported architecture: both
// are programming errors, discovered at scheduler start-up, never at
// switch time.
func GetAPI(opts Options) API {
	if opts&^validOptions != 0 {
		panic(fmt.Sprintf("fiber: invalid options %#x", uint8(opts)))
	}
	if !archSupported {
		panic("fiber: unsupported architecture " + runtime.GOARCH)
	}
	return API{opts: opts}
}

// Fiber is one suspended (or about-to-be-entered) execution context.
// The zero Fiber is not valid; obtain one from API.Create.
type Fiber struct {
	sp        uintptr // current saved stack pointer; valid only while suspended
	stackHead uintptr // exclusive upper bound of the stack region
	stackCeil uintptr // inclusive lower bound of the committed stack

	region *stackpool.Region
	opts   Options

	entry    Entry
	userData unsafe.Pointer
	pinner   runtime.Pinner

	done bool
}

// returnSlot is the word at stackHead-1. Before first entry it holds
// sentinel. Start overwrites it with the address of a
// saved-stack-pointer cell owned by Start's caller; a Switch from a
// native fiber writes the address of that fiber's sp field; a Switch
// from a fiber built by Create copies cur's own returnSlot value, so
// every fiber reached along a chain of switches leads back to the same
// context. The slot holds the cell's address, never the stack pointer
// value itself, which archSwitch only finishes computing after this
// slot must already be written. If the entry function returns normally
// instead of switching out, fiberTrampolineGo resumes that context by
// dereferencing it.
func (f *Fiber) returnSlot() *uintptr {
	return (*uintptr)(unsafe.Pointer(f.stackHead - wordSize))
}

func (f *Fiber) guardSlot() *uintptr {
	return (*uintptr)(unsafe.Pointer(f.stackCeil))
}

// Create lays out a fresh stack inside region and returns a fiber
// ready to be passed to Start. region must outlive the fiber; callers
// typically return it to a stackpool.FreeList once the fiber's entry
// function has returned.
func (api API) Create(region *stackpool.Region, entry Entry, userData unsafe.Pointer) *Fiber {
	b := region.Bytes()
	if len(b) == 0 {
		panic("fiber: empty stack region")
	}
	head := uintptr(unsafe.Pointer(&b[0])) + uintptr(len(b))
	head &^= wordSize - 1 // word-align the head, in case Total wasn't

	f := &Fiber{
		stackHead: head,
		stackCeil: region.Base + uintptr(region.Total-region.Committed),
		region:    region,
		opts:      api.opts,
		entry:     entry,
		userData:  userData,
	}
	f.pinner.Pin(f)

	sp := head

	push := func(v uintptr) {
		sp -= wordSize
		*(*uintptr)(unsafe.Pointer(sp)) = v
	}

	push(sentinel) // stackHead-1, see returnSlot

	push(uintptr(unsafe.Pointer(f))) // fiberTrampolineASM's sole argument
	push(0)                          // stands in for fiberTrampolineASM's own return address
	push(trampolineAddr())           // "return address" the first switch's RET lands on

	pushZeroFrame(push, api.opts)

	f.sp = sp
	*f.guardSlot() = endOfStackGuard
	return f
}

// Start enters f for the first time, on whatever goroutine calls it.
// Its caller has no Fiber of its own, so no Switch can resume it: Start
// returns once f's entry function, or that of any fiber reached from f
// through Switch, returns normally.
func (api API) Start(f *Fiber) {
	api.validateBeforeSwitch(f)
	var callerSP uintptr
	*f.returnSlot() = uintptr(unsafe.Pointer(&callerSP))
	archSwitch(&callerSP, f.sp, api.opts.saveFPU())
}

// Switch suspends cur, saving its stack pointer, and resumes to, which
// must currently be suspended, at the point its stack pointer was last
// saved. Control returns to this call when some later switch names cur
// as its target again.
func (api API) Switch(cur, to *Fiber) {
	api.validateBeforeSwitch(to)
	if !to.isNative() {
		if cur.isNative() {
			*to.returnSlot() = uintptr(unsafe.Pointer(&cur.sp))
		} else {
			*to.returnSlot() = *cur.returnSlot()
		}
	}
	archSwitch(&cur.sp, to.sp, api.opts.saveFPU())
}

// isNative reports whether f is a bare placeholder standing in for a
// goroutine's own native stack (e.g. a scheduler thread's persistent
// "root" fiber) rather than one built by Create: such a fiber has no
// stack region and is only ever a legitimate Switch target because
// something earlier suspended into it, never because its memory was
// laid out by this package.
func (f *Fiber) isNative() bool { return f.stackHead == 0 }

func (api API) validateBeforeSwitch(to *Fiber) {
	if to.isNative() {
		return
	}
	if rtdebug.Flags.ValidateStackBounds {
		if to.sp < to.stackCeil || to.sp >= to.stackHead {
			panic("fiber: stack pointer out of bounds")
		}
	}
	if rtdebug.Flags.GuardEndOfStack {
		if *to.guardSlot() != endOfStackGuard {
			panic("fiber: end-of-stack guard word corrupted, probable stack overflow")
		}
	}
}

// fiberTrampolineGo is called, via fiberTrampolineASM, the first time
// a fiber is switched into. It must never be called any other way.
func fiberTrampolineGo(f *Fiber) {
	if rtdebug.Flags.ValidateSentinel {
		if *f.returnSlot() == sentinel {
			panic("fiber: sentinel never overwritten before first entry")
		}
	}
	f.entry(f.userData)
	f.done = true
	f.pinner.Unpin()
	// entry returned normally rather than switching out: resume the
	// context recorded in returnSlot (see there), by dereferencing the
	// saved-stack-pointer cell it points at.
	resumeSP := *(*uintptr)(unsafe.Pointer(*f.returnSlot()))
	archSwitch(&f.sp, resumeSP, f.opts.saveFPU())
}
