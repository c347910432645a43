// Package report renders profiler snapshots as plain-text tables.
//
// Both reports share one layout: a header row, a dashed separator as wide as
// the whole table, then one row per record. Every column is right-aligned to
// its widest cell. Durations are printed in milliseconds as the shortest
// decimal that round-trips (30, 0.25, 1.000001).
package report

import (
	"cmp"
	"slices"
	"strconv"
	"time"

	"callScope/stats"
)

// Functions renders the function table of snap, ordered by self time,
// highest first. Ties keep registration order. Functions that were never
// invoked are left out of the body but still count towards column widths.
func Functions(snap *stats.Snapshot) string {
	functions := slices.Clone(snap.Functions)
	slices.SortStableFunc(functions, func(a, b stats.Function) int {
		return cmp.Compare(b.Self, a.Self)
	})

	t := newTable("function", "count", "total(ms)", "self(ms)")
	for _, fn := range functions {
		t.add(fn.Count > 0,
			fn.Name,
			strconv.FormatInt(fn.Count, 10),
			Millis(fn.Total),
			Millis(fn.Self))
	}
	return t.String()
}

// CallGraph renders one row per caller/callee edge with a positive count.
func CallGraph(snap *stats.Snapshot) string {
	t := newTable("from", "to", "count")
	for _, edge := range snap.Edges {
		if edge.Count > 0 {
			t.add(true, edge.Caller, edge.Callee, strconv.FormatInt(edge.Count, 10))
		}
	}
	return t.String()
}

// Millis formats d as a decimal number of milliseconds.
func Millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', -1, 64)
}
