//go:build windows && amd64

package fiber

// pushZeroFrame lays down a zeroed register frame matching what
// switch_windows_amd64.s's restore path pops for a fiber that has
// never run: the Windows x64 callee-saved integer registers (rsi,
// rdi, rbp, rbx, r12-r15), the unconditionally-preserved xmm6-xmm15,
// then optionally an FPU control word. push must be called in this
// exact order; see switch_windows_amd64.s.
func pushZeroFrame(push func(uintptr), opts Options) {
	for i := 0; i < 8; i++ {
		push(0) // rsi, rdi, rbp, rbx, r12, r13, r14, r15
	}
	for i := 0; i < 20; i++ {
		push(0) // xmm6..xmm15, two qwords each
	}
	if opts&PreserveFPUControl != 0 {
		push(0x1F80) // default mxcsr: round-to-nearest, all exceptions masked
	}
}
