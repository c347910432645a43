package stats

import "time"

// Function holds the counters of one instrumented callable.
type Function struct {
	Name   string        // Canonical path the callable was wrapped under
	Count  int64         // Completed invocations
	Total  time.Duration // Elapsed time including nested instrumented calls
	Self   time.Duration // Total minus time spent in nested instrumented calls
	Symbol Symbol        // Where the original function lives
}

// Symbol locates the original function in the binary.
type Symbol struct {
	Func string // Runtime function name, e.g. callScope/workload.fib
	File string // Source file path
	Line int    // Line of the function entry
}

// Edge counts direct invocations of Callee while Caller was on top of the call stack.
type Edge struct {
	Caller string
	Callee string
	Count  int64
}

// Snapshot is an immutable copy of profiler state.
type Snapshot struct {
	Since     time.Time  // Start of the measured window
	Taken     time.Time  // When the snapshot was taken
	Functions []Function // In registration order
	Edges     []Edge     // Callers in registration order, callees in first-seen order
}
