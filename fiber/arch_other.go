//go:build !((linux || windows) && amd64)

package fiber

const archSupported = false

func archSwitch(savedSP *uintptr, toSP uintptr, saveFPU int64) {
	panic("fiber: archSwitch called on an unsupported architecture")
}

func trampolineAddr() uintptr {
	panic("fiber: trampolineAddr called on an unsupported architecture")
}

func pushZeroFrame(push func(uintptr), opts Options) {
	panic("fiber: pushZeroFrame called on an unsupported architecture")
}
