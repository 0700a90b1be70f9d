package roulette

import (
	"context"
	"time"

	"github.com/oggyb/meetbot/internal/metrics"
)

// Janitor periodically frees claims left behind by crashed matchers and
// restarts tasks for queued users that have none on this instance.
type Janitor struct {
	coord    *Coordinator
	interval time.Duration
	now      func() time.Time
}

func NewJanitor(coord *Coordinator) *Janitor {
	return &Janitor{
		coord:    coord,
		interval: coord.opts.JanitorInterval,
		now:      time.Now,
	}
}

// Run sweeps until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	log := j.coord.log.With("component", "janitor")
	log.Info("janitor started", "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stopped")
			return
		case <-ticker.C:
			if err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				log.Error("sweep failed", "err", err)
			}
		}
	}
}

// Sweep runs one pass.
func (j *Janitor) Sweep(ctx context.Context) error {
	cutoff := j.now().Add(-j.coord.opts.ClaimTTL)
	cleared, err := j.coord.queue.ClearStaleClaims(ctx, cutoff)
	if err != nil {
		return err
	}
	if cleared > 0 {
		metrics.ClaimsCleared.Add(float64(cleared))
		j.coord.log.Warn("stale claims cleared", "count", cleared)
	}

	started, err := j.coord.Resume(ctx)
	if err != nil {
		return err
	}
	if started > 0 {
		j.coord.log.Info("queue tasks re-armed", "count", started)
	}
	return nil
}
