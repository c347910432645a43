package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callScope/stats"
)

func TestFunctions(t *testing.T) {
	snap := &stats.Snapshot{
		Functions: []stats.Function{
			{Name: "f2", Count: 1, Total: 10 * time.Millisecond, Self: 10 * time.Millisecond},
			{Name: "f1", Count: 2, Total: 50 * time.Millisecond, Self: 30 * time.Millisecond},
		},
	}

	want := strings.Join([]string{
		"function count total(ms) self(ms)",
		"---------------------------------",
		"      f1     2        50       30",
		"      f2     1        10       10",
	}, "\n")
	assert.Equal(t, want, Functions(snap))
}

func TestFunctionsWidthAndHiddenRows(t *testing.T) {
	snap := &stats.Snapshot{
		Functions: []stats.Function{
			{Name: "short", Count: 1, Total: 1500 * time.Microsecond, Self: 250 * time.Microsecond},
			{Name: "never.called.but.long", Count: 0},
		},
	}

	lines := strings.Split(Functions(snap), "\n")
	require.Len(t, lines, 3)

	nameWidth := len("never.called.but.long")
	assert.Equal(t, strings.Repeat(" ", nameWidth-len("function"))+"function", lines[0][:nameWidth])
	assert.Len(t, lines[1], len(lines[0]))
	assert.True(t, strings.HasSuffix(lines[2], " 1.5     0.25"), lines[2])
	assert.NotContains(t, lines[2], "never")
}

func TestFunctionsTiesKeepRegistrationOrder(t *testing.T) {
	snap := &stats.Snapshot{
		Functions: []stats.Function{
			{Name: "b", Count: 1, Self: time.Millisecond, Total: time.Millisecond},
			{Name: "a", Count: 1, Self: time.Millisecond, Total: time.Millisecond},
			{Name: "c", Count: 1, Self: 2 * time.Millisecond, Total: 2 * time.Millisecond},
		},
	}

	lines := strings.Split(Functions(snap), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "c", strings.Fields(lines[2])[0])
	assert.Equal(t, "b", strings.Fields(lines[3])[0])
	assert.Equal(t, "a", strings.Fields(lines[4])[0])
}

func TestCallGraph(t *testing.T) {
	snap := &stats.Snapshot{
		Edges: []stats.Edge{
			{Caller: "A", Callee: "B", Count: 2},
			{Caller: "A", Callee: "C", Count: 0},
			{Caller: "render", Callee: "A", Count: 12},
		},
	}

	want := strings.Join([]string{
		"  from to count",
		"---------------",
		"     A  B     2",
		"render  A    12",
	}, "\n")
	assert.Equal(t, want, CallGraph(snap))
}

func TestEmptyReports(t *testing.T) {
	empty := &stats.Snapshot{}
	assert.Equal(t, "function count total(ms) self(ms)\n"+strings.Repeat("-", 33), Functions(empty))
	assert.Equal(t, "from to count\n"+strings.Repeat("-", 13), CallGraph(empty))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, "30", Millis(30*time.Millisecond))
	assert.Equal(t, "0.25", Millis(250*time.Microsecond))
	assert.Equal(t, "0", Millis(0))
	assert.Equal(t, "-2", Millis(-2*time.Millisecond))
}
