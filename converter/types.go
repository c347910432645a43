package converter

// Sample types emitted by ConvertSnapshotToPprof.
const (
	SampleTypeSelf  = "self"
	SampleTypeCalls = "calls"
)

// SampleTypeConfig describes the sample types to Pyroscope
var SampleTypeConfig = map[string]map[string]interface{}{
	SampleTypeSelf: {
		"units":        "nanoseconds",
		"display-name": "self-time",
		"aggregation":  "sum",
		"cumulative":   false,
		"sampled":      false,
	},
	SampleTypeCalls: {
		"units":        "count",
		"display-name": "call-count",
		"aggregation":  "sum",
		"cumulative":   false,
		"sampled":      false,
	},
}
