package collector

import (
	"time"

	"go.uber.org/zap"

	"callScope/stats"
)

// Source produces cumulative snapshots; *profiler.Profiler satisfies it.
type Source interface {
	Snapshot() *stats.Snapshot
}

// Sampler polls a Source at a fixed interval
type Sampler struct {
	source    Source
	interval  time.Duration
	logger    *zap.Logger
	snapshots chan *stats.Snapshot
	started   bool
}
