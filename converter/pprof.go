package converter

import (
	"time"

	"github.com/google/pprof/profile"
	"go.uber.org/zap"

	"callScope/stats"
)

// ConvertSnapshotToPprof converts profiler counters to pprof format.
// Parameters:
//   - snap: Snapshot (usually a per-interval delta) to convert
//   - logger: Receives batch statistics at debug level
//
// Every function invoked during the window becomes one sample whose single
// location is the function itself, valued with its self time and the calls
// not made from another instrumented function. Total time is attached as the
// numeric label "total". Each caller/callee edge adds a callee;caller sample
// holding the calls along that edge, so call counts summed per function still
// equal the function's count.
//
// Returns a profile.Profile or nil if nothing was invoked.
func ConvertSnapshotToPprof(snap *stats.Snapshot, logger *zap.Logger) *profile.Profile {
	var invoked []stats.Function
	for _, fn := range snap.Functions {
		if fn.Count > 0 {
			invoked = append(invoked, fn)
		}
	}
	if len(invoked) == 0 {
		return nil
	}

	duration := snap.Duration()
	logger.Debug("Snapshot stats",
		zap.String("since", snap.Since.Format(time.RFC3339Nano)),
		zap.String("taken", snap.Taken.Format(time.RFC3339Nano)),
		zap.Duration("duration", duration),
		zap.Int("functions", len(invoked)))

	// Initialize the pprof profile with metadata
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: SampleTypeSelf, Unit: "nanoseconds"},
			{Type: SampleTypeCalls, Unit: "count"},
		},
		DefaultSampleType: SampleTypeSelf,
		TimeNanos:         snap.Since.UnixNano(),
		DurationNanos:     duration.Nanoseconds(),
		PeriodType: &profile.ValueType{
			Type: SampleTypeSelf,
			Unit: "nanoseconds",
		},
		Period: 1,
	}

	// Calls made from an instrumented caller are carried by the edge samples below
	incoming := make(map[string]int64)
	for _, edge := range snap.Edges {
		if edge.Count > 0 {
			incoming[edge.Callee] += edge.Count
		}
	}

	locations := make(map[string]*profile.Location)
	location := func(fn stats.Function) *profile.Location {
		if loc, ok := locations[fn.Name]; ok {
			return loc
		}
		id := uint64(len(locations) + 1)

		function := &profile.Function{
			ID:         id,
			Name:       fn.Name,
			SystemName: fn.Symbol.Func,
			Filename:   fn.Symbol.File,
			StartLine:  int64(fn.Symbol.Line),
		}
		prof.Function = append(prof.Function, function)

		loc := &profile.Location{
			ID: id,
			Line: []profile.Line{
				{
					Function: function,
					Line:     int64(fn.Symbol.Line),
				},
			},
		}
		prof.Location = append(prof.Location, loc)
		locations[fn.Name] = loc
		return loc
	}

	for _, fn := range invoked {
		// Negative self time can only come from clock skew; pprof values stay non-negative
		self := max(fn.Self.Nanoseconds(), 0)
		calls := max(fn.Count-incoming[fn.Name], 0)

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{location(fn)},
			Value:    []int64{self, calls},
			NumLabel: map[string][]int64{
				"total": {fn.Total.Nanoseconds()},
			},
			NumUnit: map[string][]string{
				"total": {"nanoseconds"},
			},
		})
	}

	// One two-frame stack per edge, leaf first, so the call hierarchy survives
	for _, edge := range snap.Edges {
		if edge.Count <= 0 {
			continue
		}
		caller, _ := snap.Function(edge.Caller)
		caller.Name = edge.Caller
		callee, _ := snap.Function(edge.Callee)
		callee.Name = edge.Callee

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{location(callee), location(caller)},
			Value:    []int64{0, edge.Count},
		})
	}

	return prof
}
