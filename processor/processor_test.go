package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"callScope/config"
	"callScope/message"
	"callScope/stats"
)

type fakePyroscope struct {
	mu       sync.Mutex
	profiles []*profile.Profile
	windows  [][2]time.Time
	err      error
}

func (f *fakePyroscope) SendProfile(_ context.Context, prof *profile.Profile, from, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, prof)
	f.windows = append(f.windows, [2]time.Time{from, until})
	return f.err
}

type fakeRelay struct {
	mu        sync.Mutex
	envelopes []*message.Envelope
	err       error
}

func (f *fakeRelay) Send(_ context.Context, env *message.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envelopes = append(f.envelopes, env)
	return f.err
}

func cumulative(at time.Time, count int64, edge int64) *stats.Snapshot {
	return &stats.Snapshot{
		Since: time.Unix(0, 0),
		Taken: at,
		Functions: []stats.Function{
			{Name: "A", Count: count, Total: time.Duration(count) * time.Millisecond, Self: time.Duration(count) * time.Millisecond},
		},
		Edges: []stats.Edge{{Caller: "A", Callee: "A", Count: edge}},
	}
}

func totalCalls(prof *profile.Profile) int64 {
	var n int64
	for _, s := range prof.Sample {
		n += s.Value[1]
	}
	return n
}

func feed(snaps ...*stats.Snapshot) <-chan *stats.Snapshot {
	ch := make(chan *stats.Snapshot, len(snaps))
	for _, s := range snaps {
		ch <- s
	}
	close(ch)
	return ch
}

func TestProcessSendsDeltas(t *testing.T) {
	t0 := time.Unix(100, 0)
	t1 := t0.Add(time.Second)
	t2 := t1.Add(time.Second)

	cfg := config.NewDefault()
	cfg.Channel = "room"
	pyro := &fakePyroscope{}
	relay := &fakeRelay{}

	p := New(cfg, pyro, relay, zap.NewNop())
	err := p.Process(context.Background(), feed(
		cumulative(t0, 2, 1),
		cumulative(t1, 2, 1),
		cumulative(t2, 5, 3),
	))
	require.NoError(t, err)

	batches, failures := p.Counters()
	assert.Equal(t, 2, batches)
	assert.Equal(t, 0, failures)

	require.Len(t, pyro.profiles, 2)
	calls := []int64{totalCalls(pyro.profiles[0]), totalCalls(pyro.profiles[1])}
	assert.ElementsMatch(t, []int64{2, 3}, calls)

	require.Len(t, relay.envelopes, 4)
	var graphs []map[string]map[string]int64
	for _, env := range relay.envelopes {
		assert.Equal(t, "room", env.ID)
		if env.Data.Type == message.TypeCallGraph {
			graphs = append(graphs, env.Data.Data.(map[string]map[string]int64))
		}
	}
	assert.ElementsMatch(t, []map[string]map[string]int64{
		{"A": {"A": 1}},
		{"A": {"A": 2}},
	}, graphs)
}

func TestProcessWindowFollowsSnapshots(t *testing.T) {
	t0 := time.Unix(100, 0)
	t1 := t0.Add(time.Second)

	pyro := &fakePyroscope{}
	p := New(config.NewDefault(), pyro, nil, nil)
	require.NoError(t, p.Process(context.Background(), feed(cumulative(t0, 1, 0), cumulative(t1, 2, 0))))

	require.Len(t, pyro.windows, 2)
	assert.Contains(t, pyro.windows, [2]time.Time{t0, t1})
}

func TestProcessCountsFailures(t *testing.T) {
	cfg := config.NewDefault()
	cfg.ConcurrentLimit = 3
	pyro := &fakePyroscope{err: errors.New("down")}
	relay := &fakeRelay{err: errors.New("down")}

	p := New(cfg, pyro, relay, nil)
	require.NoError(t, p.Process(context.Background(), feed(cumulative(time.Unix(1, 0), 1, 0))))

	batches, failures := p.Counters()
	assert.Equal(t, 1, batches)
	assert.Equal(t, 3, failures)
}

func TestProcessWithoutSenders(t *testing.T) {
	p := New(config.NewDefault(), nil, nil, nil)
	require.NoError(t, p.Process(context.Background(), feed(cumulative(time.Unix(1, 0), 1, 0))))
	assert.NoError(t, p.Log(context.Background(), "ignored"))
}

func TestNotify(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Channel = "room"
	relay := &fakeRelay{}

	p := New(cfg, nil, relay, nil)
	require.NoError(t, p.Log(context.Background(), "started"))

	require.Len(t, relay.envelopes, 1)
	assert.Equal(t, "room", relay.envelopes[0].ID)
	assert.Equal(t, message.TypeLog, relay.envelopes[0].Data.Type)
	assert.Equal(t, "started", relay.envelopes[0].Data.Data)
}
