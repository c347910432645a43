package processor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"callScope/config"
	"callScope/converter"
	"callScope/message"
	"callScope/stats"
)

// New creates a Processor. A nil sender disables that destination.
func New(cfg *config.Config, pyroscope ProfileSender, relay EnvelopeSender, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		config:    cfg,
		pyroscope: pyroscope,
		relay:     relay,
		logger:    logger,
	}
}

// Process consumes snapshots until the channel is closed.
// Delivery errors are logged and counted, never returned, so one bad
// upload does not stop the pipeline.
func (p *Processor) Process(ctx context.Context, snapshots <-chan *stats.Snapshot) error {
	workers := max(p.config.ConcurrentLimit, 1)
	batches := make(chan batch, workers*2)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		p.processSnapshots(snapshots, batches)
		return nil
	})
	for range workers {
		g.Go(func() error {
			p.consumer(gctx, batches)
			return nil
		})
	}

	return g.Wait()
}

// processSnapshots computes the delta between consecutive snapshots and
// forwards the ones that recorded any call.
func (p *Processor) processSnapshots(snapshots <-chan *stats.Snapshot, batches chan<- batch) {
	var prev *stats.Snapshot
	for snap := range snapshots {
		delta := snap.Sub(prev)
		prev = snap

		if delta.Invocations() == 0 {
			continue
		}

		p.mu.Lock()
		p.batches++
		p.mu.Unlock()

		batches <- batch{delta: delta}
	}
}

// consumer delivers batches to the configured senders
func (p *Processor) consumer(ctx context.Context, batches <-chan batch) {
	for b := range batches {
		p.sendProfile(ctx, b.delta)
		p.sendMessages(ctx, b.delta)
	}
}

func (p *Processor) sendProfile(ctx context.Context, delta *stats.Snapshot) {
	if p.pyroscope == nil {
		return
	}
	prof := converter.ConvertSnapshotToPprof(delta, p.logger)
	if prof == nil {
		return
	}
	if err := p.pyroscope.SendProfile(ctx, prof, delta.Since, delta.Taken); err != nil {
		p.fail("Error sending profile", err)
	}
}

func (p *Processor) sendMessages(ctx context.Context, delta *stats.Snapshot) {
	if p.relay == nil {
		return
	}
	for _, msg := range []message.Message{message.Stat(delta), message.CallGraph(delta)} {
		if err := p.relay.Send(ctx, message.Wrap(p.config.Channel, msg)); err != nil {
			p.fail("Error relaying message", err, zap.String("type", string(msg.Type)))
		}
	}
}

// Notify relays a single message, such as a log line, when a relay is set.
func (p *Processor) Notify(ctx context.Context, msg message.Message) error {
	if p.relay == nil {
		return nil
	}
	return p.relay.Send(ctx, message.Wrap(p.config.Channel, msg))
}

// Log relays a log message stamped now.
func (p *Processor) Log(ctx context.Context, data any) error {
	return p.Notify(ctx, message.Log(time.Now(), data))
}

func (p *Processor) fail(msg string, err error, fields ...zap.Field) {
	p.mu.Lock()
	p.failures++
	p.mu.Unlock()

	p.logger.Warn(msg, append(fields, zap.Error(err))...)
}

// Counters returns how many deltas were processed and how many deliveries failed.
func (p *Processor) Counters() (batches, failures int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batches, p.failures
}
