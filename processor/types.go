package processor

import (
	"context"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"go.uber.org/zap"

	"callScope/config"
	"callScope/message"
	"callScope/stats"
)

// ProfileSender uploads pprof profiles; *sender.Pyroscope satisfies it.
type ProfileSender interface {
	SendProfile(ctx context.Context, prof *profile.Profile, from, until time.Time) error
}

// EnvelopeSender delivers relay envelopes; *sender.Relay satisfies it.
type EnvelopeSender interface {
	Send(ctx context.Context, env *message.Envelope) error
}

// Processor turns cumulative snapshots into per-interval deltas and ships
// them to Pyroscope and the relay, whichever are configured.
type Processor struct {
	config    *config.Config
	pyroscope ProfileSender
	relay     EnvelopeSender
	logger    *zap.Logger

	mu       sync.Mutex // guards the counters below
	batches  int        // deltas handed to consumers
	failures int        // failed deliveries
}

// batch is one interval's worth of activity.
type batch struct {
	delta *stats.Snapshot
}
