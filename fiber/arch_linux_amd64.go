//go:build linux && amd64

package fiber

// pushZeroFrame lays down a zeroed register frame matching what
// switch_linux_amd64.s's restore path pops for a fiber that has never
// run: the System V AMD64 callee-saved integer registers (rbp, rbx,
// r12-r15), optionally followed by an FPU control word. push must be
// called in this exact order; see switch_linux_amd64.s.
func pushZeroFrame(push func(uintptr), opts Options) {
	for i := 0; i < 6; i++ {
		push(0) // rbp, rbx, r12, r13, r14, r15
	}
	if opts&PreserveFPUControl != 0 {
		push(0x1F80) // default mxcsr: round-to-nearest, all exceptions masked
	}
}
