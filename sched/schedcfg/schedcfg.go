// Package schedcfg loads sched.Options from a YAML file, the way
// cmd/cue's config layer reads CUE module settings from disk: a
// plain struct, unmarshaled with gopkg.in/yaml.v3, with defaults
// filled in for anything the file leaves zero.
package schedcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fiberflow/fiberflow/fiber"
	"github.com/fiberflow/fiberflow/sched"
)

// File is the on-disk shape of fiberrt.yaml.
type File struct {
	TaskThreads    int    `yaml:"taskThreads"`
	ReactorThreads int    `yaml:"reactorThreads"`
	StackSizeKB    uint64 `yaml:"stackSizeKB"`
	RingSizeLg2    uint   `yaml:"ringSizeLg2"`

	// FiberOptions names zero or more of "osabi_safe", "preserve_fpu";
	// see optionsFromNames.
	FiberOptions []string `yaml:"fiberOptions"`
}

// Load reads path and returns the sched.Options it describes, with
// File's zero fields replaced by sched.DefaultOptions.
func Load(path string) (sched.Options, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return sched.Options{}, fmt.Errorf("schedcfg: reading %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into sched.Options, as Load does for a
// file already read into memory.
func Parse(b []byte) (sched.Options, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return sched.Options{}, fmt.Errorf("schedcfg: parsing config: %w", err)
	}

	opts := sched.DefaultOptions()
	if f.TaskThreads > 0 {
		opts.TaskThreads = f.TaskThreads
	}
	if f.ReactorThreads > 0 {
		opts.ReactorThreads = f.ReactorThreads
	}
	if f.StackSizeKB > 0 {
		opts.StackSize = f.StackSizeKB * 1024
	}
	if f.RingSizeLg2 > 0 {
		opts.RingSizeLg2 = f.RingSizeLg2
	}
	fiberOpts, err := optionsFromNames(f.FiberOptions)
	if err != nil {
		return sched.Options{}, err
	}
	if len(f.FiberOptions) > 0 {
		opts.FiberOptions = fiberOpts
	}
	return opts, nil
}

func optionsFromNames(names []string) (fiber.Options, error) {
	var opts fiber.Options
	for _, n := range names {
		switch n {
		case "osabi_safe":
			opts |= fiber.OSABISafe
		case "preserve_fpu":
			opts |= fiber.PreserveFPUControl
		default:
			return 0, fmt.Errorf("schedcfg: unknown fiberOptions entry %q", n)
		}
	}
	return opts, nil
}
