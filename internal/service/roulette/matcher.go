package roulette

import (
	"context"
	"errors"
	"time"

	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/events"
	"github.com/oggyb/meetbot/internal/lock"
	"github.com/oggyb/meetbot/internal/metrics"
	"github.com/oggyb/meetbot/internal/repository"
)

// run is the per-user task loop.
func (c *Coordinator) run(t *task) {
	defer c.wg.Done()
	defer close(t.done)
	defer metrics.QueueSize.Dec()
	defer c.forget(t)

	log := c.log.With("user", t.userID)

	var deadline <-chan time.Time
	if c.opts.MaxWait > 0 {
		wait := c.opts.MaxWait
		if e, err := c.queue.Get(t.ctx, t.userID); err == nil {
			wait -= time.Since(e.JoinedAt)
		}
		timer := time.NewTimer(max(wait, 0))
		defer timer.Stop()
		deadline = timer.C
	}

	failures := 0
	for {
		// Taken before the attempt so a join during it triggers another one.
		wake := c.wakeChan()

		out, err := c.attemptMatch(t.ctx, t.userID)
		if t.ctx.Err() != nil {
			return
		}
		switch out {
		case outcomePaired, outcomeGone:
			return
		case outcomeError:
			failures++
			log.Warn("pairing attempt failed", "failures", failures, "err", err)
			if failures >= c.opts.MaxStoreFailures {
				c.dropEntry(t.ctx, t.userID, events.TypeQueueAborted)
				return
			}
		default:
			failures = 0
		}

		timer := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-t.ctx.Done():
			timer.Stop()
			return
		case <-deadline:
			timer.Stop()
			c.dropEntry(t.ctx, t.userID, events.TypeQueueTimeout)
			return
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// attemptMatch makes one attempt to pair userID with a random candidate.
func (c *Coordinator) attemptMatch(ctx context.Context, userID uint64) (out outcome, err error) {
	defer func() {
		switch out {
		case outcomeGone, outcomeBusy:
		default:
			metrics.MatchAttempts.WithLabelValues(string(out)).Inc()
		}
	}()

	own, err := c.queue.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return outcomeGone, nil
	}
	if err != nil {
		return outcomeError, err
	}
	if own.LockedBy != nil && *own.LockedBy != userID {
		return outcomeBusy, nil
	}

	cands, err := c.queue.Candidates(ctx, userID)
	if err != nil {
		return outcomeError, err
	}
	if len(cands) == 0 {
		return outcomeEmpty, nil
	}
	other := cands[c.intn(len(cands))]

	var pair *db.Pair
	names := []string{LockName(userID), LockName(other.UserID)}
	err = c.appCtx.Locker.WithLocks(ctx, names, func(ctx context.Context) error {
		p, err := c.commit(ctx, userID, other.UserID)
		if err != nil {
			// Claims die with the attempt. A release that fails here is
			// cleared by the janitor once the claim goes stale.
			bg := context.WithoutCancel(ctx)
			if rerr := c.queue.Release(bg, other.UserID, userID); rerr != nil {
				c.log.Warn("claim release failed", "user", other.UserID, "err", rerr)
			}
			if rerr := c.queue.Release(bg, userID, userID); rerr != nil {
				c.log.Warn("claim release failed", "user", userID, "err", rerr)
			}
			return err
		}
		pair = p
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrConflict):
		c.log.Debug("pairing conflict", "user", userID, "candidate", other.UserID, "err", err)
		return outcomeConflict, nil
	case errors.Is(err, lock.ErrNotAcquired):
		return outcomeLockWait, nil
	default:
		return outcomeError, err
	}

	c.paired(ctx, pair, own, &other)
	return outcomePaired, nil
}

// commit claims both entries and turns them into a pair. Both users'
// locks are held by the caller.
func (c *Coordinator) commit(ctx context.Context, userID, otherID uint64) (*db.Pair, error) {
	ok, err := c.queue.Claim(ctx, otherID, userID, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrConflict
	}
	ok, err = c.queue.Claim(ctx, userID, userID, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrConflict
	}
	return c.pairs.Commit(ctx, userID, otherID, userID, time.Now())
}

func (c *Coordinator) paired(ctx context.Context, p *db.Pair, entries ...*db.QueueEntry) {
	for _, e := range entries {
		metrics.WaitDuration.Observe(p.StartedAt.Sub(e.JoinedAt).Seconds())
	}
	metrics.PairsActive.Inc()

	if err := c.appCtx.Sessions.SetPaired(ctx, p.UserA, p.UserB); err != nil {
		c.log.Warn("session update failed", "pair", p.ID, "err", err)
	}
	c.publish(ctx, events.New(events.TypePaired, p.UserA, p.UserB, p.StartedAt))
	c.log.Info("users paired", "pair", p.ID, "user_a", p.UserA, "user_b", p.UserB)

	for _, e := range entries {
		c.cancelTask(e.UserID)
	}
}

// dropEntry removes a still-queued user on the task's own initiative
// (wait limit or repeated store failures) and tells the front end.
func (c *Coordinator) dropEntry(ctx context.Context, userID uint64, reason events.Type) {
	var removed bool
	err := c.appCtx.Locker.WithLock(ctx, LockName(userID), func(ctx context.Context) error {
		var err error
		removed, err = c.queue.Remove(ctx, userID)
		return err
	})
	if err != nil {
		c.log.Error("failed to drop queue entry", "user", userID, "reason", reason, "err", err)
		return
	}
	if !removed {
		return
	}

	c.setIdle(ctx, userID)
	c.publish(ctx, events.New(reason, userID, 0, time.Now()))
	c.log.Info("user left queue", "user", userID, "reason", reason)
}
