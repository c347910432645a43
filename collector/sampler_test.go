package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"callScope/stats"
)

type countingSource struct {
	mu    sync.Mutex
	calls int64
}

func (c *countingSource) Snapshot() *stats.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &stats.Snapshot{
		Taken:     time.Now(),
		Functions: []stats.Function{{Name: "f", Count: c.calls}},
	}
}

func TestSamplerTicksAndFlushes(t *testing.T) {
	src := &countingSource{}
	ctx, cancel := context.WithCancel(context.Background())

	snapshots, err := New(src, 5*time.Millisecond, zap.NewNop()).Start(ctx)
	require.NoError(t, err)

	first := <-snapshots
	second := <-snapshots
	assert.Less(t, first.Functions[0].Count, second.Functions[0].Count)

	cancel()
	var last *stats.Snapshot
	for snap := range snapshots {
		last = snap
	}
	require.NotNil(t, last)
	assert.Greater(t, last.Functions[0].Count, second.Functions[0].Count)
}

func TestSamplerFinalSnapshotWithoutTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshots, err := New(&countingSource{}, time.Hour, nil).Start(ctx)
	require.NoError(t, err)

	var got []*stats.Snapshot
	for snap := range snapshots {
		got = append(got, snap)
	}
	assert.Len(t, got, 1)
}

func TestSamplerRejectsBadInterval(t *testing.T) {
	_, err := New(&countingSource{}, 0, nil).Start(context.Background())
	assert.Error(t, err)
}

func TestSamplerStartTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(&countingSource{}, time.Hour, nil)
	_, err := s.Start(ctx)
	require.NoError(t, err)
	_, err = s.Start(ctx)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}
