// Package rtdebug holds the set of FIBERFLOW_DEBUG flags that gate the
// debug-only validation checks described in the fiber context-switch
// engine and the scheduler's work pump.
package rtdebug

import (
	"sync"

	"github.com/fiberflow/fiberflow/internal/envflag"
)

// Flags holds the current FIBERFLOW_DEBUG flags. It is initialized by Init.
var Flags Config

// Config holds the set of known FIBERFLOW_DEBUG flags.
type Config struct {
	// ValidateSentinel checks, on a fiber's first entry, that the
	// first-entry sentinel has been overwritten by the Start or Switch
	// that entered it.
	ValidateSentinel bool `envflag:"default:true"`

	// ValidateStackBounds checks, before every switch into a fiber
	// built by Create, that its saved stack pointer lies within
	// [stackCeil, stackHead). The outgoing fiber is not checked.
	ValidateStackBounds bool

	// GuardEndOfStack checks the tamper sentinel word at stackCeil
	// before every switch into a fiber, catching stack overflow.
	GuardEndOfStack bool

	// LogPump prints a line to the log for every stalled task the work
	// pump routes to a reactor thread. Other work-pump moves are not
	// logged.
	LogPump bool
}

// Init initializes Flags. Failures return an error rather than
// panicking, since FIBERFLOW_DEBUG is attacker/operator controlled
// environment input, not a programming invariant.
func Init() error {
	return initOnce()
}

var initOnce = sync.OnceValue(func() error {
	return envflag.Init(&Flags, "FIBERFLOW_DEBUG")
})
