package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"callScope/stats"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("sampler already started")

// New creates a Sampler reading source every interval
func New(source Source, interval time.Duration, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{
		source:    source,
		interval:  interval,
		logger:    logger,
		snapshots: make(chan *stats.Snapshot, 2),
	}
}

// Start begins polling the source.
// Returns a channel receiving one cumulative snapshot per tick. When ctx is
// done a final snapshot is delivered and the channel is closed.
func (s *Sampler) Start(ctx context.Context) (<-chan *stats.Snapshot, error) {
	if s.interval <= 0 {
		return nil, fmt.Errorf("sampling interval %s must be positive", s.interval)
	}
	if s.started {
		return nil, ErrAlreadyStarted
	}
	s.started = true

	s.logger.Debug("Starting sampler", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.snapshots)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				// Final snapshot so the tail of the run is not lost
				s.snapshots <- s.source.Snapshot()
				s.logger.Debug("Sampler stopped")
				return
			case <-ticker.C:
				snap := s.source.Snapshot()
				select {
				case s.snapshots <- snap:
				case <-ctx.Done():
					s.snapshots <- s.source.Snapshot()
					return
				}
			}
		}
	}()

	return s.snapshots, nil
}
