package fiber

// roundTowardZeroMXCSR is the default MXCSR value (all exceptions
// masked, round-to-nearest) with the rounding-control bits (13-14)
// set to round-toward-zero, used to give TestFPUControlPreserved a
// value that's trivially distinguishable from whatever the Go
// runtime's host thread happened to leave MXCSR at.
const roundTowardZeroMXCSR = 0x1F80 | (3 << 13)

// func getMXCSR() uint32
func getMXCSR() uint32

// func setMXCSR(v uint32)
func setMXCSR(v uint32)
