//go:build (linux || windows) && amd64

package fiber

const archSupported = true

// archSwitch saves the current callee-saved register set (and,
// depending on saveFPU, the FPU control word) onto the real hardware
// stack, writes the resulting stack pointer to *savedSP, switches the
// stack pointer to toSP, and restores the register set found there.
// Implemented in switch_GOOS_amd64.s.
//
// savedSP and toSP alias fiber-owned memory the Go runtime doesn't
// track; archSwitch itself never allocates and is written NOSPLIT.
func archSwitch(savedSP *uintptr, toSP uintptr, saveFPU int64)

// trampolineAddr returns the code address fiberTrampolineASM was
// assembled at, for use as the fabricated "return address" a fresh
// fiber's first switch-in RETs into. Implemented in trampoline_amd64.s.
func trampolineAddr() uintptr
