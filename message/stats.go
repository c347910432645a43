package message

import (
	"time"

	"callScope/stats"
)

// StatValue is one function's counters in milliseconds.
type StatValue struct {
	Self  float64 `json:"self"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// Stat builds a stat message from snap, keyed by function name.
// Functions never invoked in the window are left out.
func Stat(snap *stats.Snapshot) Message {
	data := make(map[string]StatValue, len(snap.Functions))
	for _, fn := range snap.Functions {
		if fn.Count == 0 {
			continue
		}
		data[fn.Name] = StatValue{
			Self:  millis(fn.Self),
			Total: millis(fn.Total),
			Count: fn.Count,
		}
	}
	return New(TypeStat, snap.Taken, data)
}

// CallGraph builds a callgraph message: caller -> callee -> count.
func CallGraph(snap *stats.Snapshot) Message {
	data := make(map[string]map[string]int64)
	for _, edge := range snap.Edges {
		if edge.Count == 0 {
			continue
		}
		callees, ok := data[edge.Caller]
		if !ok {
			callees = make(map[string]int64)
			data[edge.Caller] = callees
		}
		callees[edge.Callee] = edge.Count
	}
	return New(TypeCallGraph, snap.Taken, data)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
