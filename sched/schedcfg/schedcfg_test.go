package schedcfg

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/fiberflow/fiberflow/fiber"
)

func TestParseDefaults(t *testing.T) {
	opts, err := Parse([]byte(``))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(opts.TaskThreads, 1))
	qt.Assert(t, qt.Equals(opts.ReactorThreads, 1))
}

func TestParseOverrides(t *testing.T) {
	opts, err := Parse([]byte(`
taskThreads: 4
reactorThreads: 2
stackSizeKB: 128
ringSizeLg2: 4
fiberOptions: [osabi_safe, preserve_fpu]
`))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(opts.TaskThreads, 4))
	qt.Assert(t, qt.Equals(opts.ReactorThreads, 2))
	qt.Assert(t, qt.Equals(opts.StackSize, uint64(128*1024)))
	qt.Assert(t, qt.Equals(opts.RingSizeLg2, uint(4)))
	qt.Assert(t, qt.Equals(opts.FiberOptions, fiber.OSABISafe|fiber.PreserveFPUControl))
}

func TestParseUnknownOption(t *testing.T) {
	_, err := Parse([]byte(`fiberOptions: [bogus]`))
	qt.Assert(t, qt.ErrorMatches(err, `schedcfg: unknown fiberOptions entry "bogus"`))
}
