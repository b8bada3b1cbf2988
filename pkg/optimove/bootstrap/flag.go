package bootstrap

import "sync/atomic"

// FlagState is the observable state of the single-flight flag.
type FlagState int32

const (
	// Idle means no bootstrap attempt has claimed the flag.
	Idle FlagState = iota

	// InitializingOrInitialized means an attempt claimed the flag. The flag
	// does not distinguish in-progress from completed; component presence in
	// the registry is the signal that initialization finished.
	InitializingOrInitialized
)

// String returns a human-readable state name.
func (s FlagState) String() string {
	if s == Idle {
		return "idle"
	}
	return "initializing_or_initialized"
}

// RunningFlag is the single-flight guard over initialization. At most one
// bootstrap attempt ever wins the flag; later attempts and concurrent racers
// all lose.
type RunningFlag struct {
	state atomic.Int32
}

// NewRunningFlag creates a flag in the Idle state.
func NewRunningFlag() *RunningFlag {
	return &RunningFlag{}
}

// Acquire attempts to claim the flag. Exactly one caller across the process
// lifetime observes true.
func (f *RunningFlag) Acquire() bool {
	return f.state.CompareAndSwap(int32(Idle), int32(InitializingOrInitialized))
}

// State returns the current flag state.
func (f *RunningFlag) State() FlagState {
	return FlagState(f.state.Load())
}

// Reset returns the flag to Idle. Only tests use this.
func (f *RunningFlag) Reset() {
	f.state.Store(int32(Idle))
}
