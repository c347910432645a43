package stats

import "time"

// Function returns the counters recorded for name.
func (s *Snapshot) Function(name string) (Function, bool) {
	for _, fn := range s.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}

// Calls returns how many times caller directly invoked callee.
func (s *Snapshot) Calls(caller, callee string) int64 {
	for _, edge := range s.Edges {
		if edge.Caller == caller && edge.Callee == callee {
			return edge.Count
		}
	}
	return 0
}

// Duration returns the length of the measured window.
func (s *Snapshot) Duration() time.Duration {
	return s.Taken.Sub(s.Since)
}

// Sub returns the activity between prev and s: counters are differences, the
// window starts at prev.Taken. Functions and edges absent from prev are kept
// as is, and the ordering of s is preserved.
func (s *Snapshot) Sub(prev *Snapshot) *Snapshot {
	delta := &Snapshot{
		Since:     s.Since,
		Taken:     s.Taken,
		Functions: make([]Function, 0, len(s.Functions)),
		Edges:     make([]Edge, 0, len(s.Edges)),
	}
	if prev == nil {
		delta.Functions = append(delta.Functions, s.Functions...)
		delta.Edges = append(delta.Edges, s.Edges...)
		return delta
	}
	delta.Since = prev.Taken

	before := make(map[string]Function, len(prev.Functions))
	for _, fn := range prev.Functions {
		before[fn.Name] = fn
	}
	for _, fn := range s.Functions {
		old := before[fn.Name]
		fn.Count -= old.Count
		fn.Total -= old.Total
		fn.Self -= old.Self
		delta.Functions = append(delta.Functions, fn)
	}

	type pair struct{ caller, callee string }
	calls := make(map[pair]int64, len(prev.Edges))
	for _, edge := range prev.Edges {
		calls[pair{edge.Caller, edge.Callee}] = edge.Count
	}
	for _, edge := range s.Edges {
		edge.Count -= calls[pair{edge.Caller, edge.Callee}]
		delta.Edges = append(delta.Edges, edge)
	}

	return delta
}

// Invocations returns the number of calls recorded across all functions.
func (s *Snapshot) Invocations() int64 {
	var n int64
	for _, fn := range s.Functions {
		n += fn.Count
	}
	return n
}
