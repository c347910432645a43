package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSub(t *testing.T) {
	t0 := time.Unix(1000, 0)
	prev := &Snapshot{
		Since: t0,
		Taken: t0.Add(time.Second),
		Functions: []Function{
			{Name: "a", Count: 1, Total: 10 * time.Millisecond, Self: 4 * time.Millisecond},
		},
		Edges: []Edge{{Caller: "a", Callee: "b", Count: 2}},
	}
	cur := &Snapshot{
		Since: t0,
		Taken: t0.Add(3 * time.Second),
		Functions: []Function{
			{Name: "a", Count: 3, Total: 25 * time.Millisecond, Self: 9 * time.Millisecond},
			{Name: "b", Count: 5, Total: 16 * time.Millisecond, Self: 16 * time.Millisecond},
		},
		Edges: []Edge{
			{Caller: "a", Callee: "b", Count: 5},
			{Caller: "b", Callee: "c", Count: 1},
		},
	}

	delta := cur.Sub(prev)
	assert.Equal(t, prev.Taken, delta.Since)
	assert.Equal(t, 2*time.Second, delta.Duration())

	a, ok := delta.Function("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), a.Count)
	assert.Equal(t, 15*time.Millisecond, a.Total)
	assert.Equal(t, 5*time.Millisecond, a.Self)

	b, ok := delta.Function("b")
	require.True(t, ok)
	assert.Equal(t, int64(5), b.Count)

	assert.Equal(t, int64(3), delta.Calls("a", "b"))
	assert.Equal(t, int64(1), delta.Calls("b", "c"))
	assert.Equal(t, int64(0), delta.Calls("c", "a"))

	// The receiver is left untouched.
	assert.Equal(t, int64(3), cur.Functions[0].Count)
}

func TestSnapshotSubNil(t *testing.T) {
	cur := &Snapshot{Functions: []Function{{Name: "a", Count: 1}}}
	delta := cur.Sub(nil)
	assert.Equal(t, cur.Functions, delta.Functions)

	_, ok := delta.Function("missing")
	assert.False(t, ok)
}
