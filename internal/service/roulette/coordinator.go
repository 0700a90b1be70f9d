// Package roulette pairs queued users at random.
//
// Every queued user has one task on this instance. The task tries to pair
// its user right away, then again after Options.RetryDelay or as soon as
// someone joins, until the user is paired, leaves, or the task gives up.
//
// A pairing attempt takes both users' named locks in id order, claims both
// queue entries, then commits pair + seats + queue deletion in a single
// transaction. The seat table's primary key is the final word on "one
// active pair per user", so a lost race surfaces as a conflict and the
// loser simply tries again.
package roulette

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	svcErr "github.com/oggyb/meetbot/internal/errors"

	"github.com/oggyb/meetbot/internal/app"
	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/events"
	"github.com/oggyb/meetbot/internal/metrics"
	"github.com/oggyb/meetbot/internal/repository"
	"github.com/oggyb/meetbot/internal/session"
)

// JoinStatus is the outcome of Join.
type JoinStatus string

const (
	JoinQueued        JoinStatus = "queued"
	JoinAlreadyQueued JoinStatus = "already_queued"
	JoinAlreadyPaired JoinStatus = "already_paired"
)

// LockName is the named lock guarding a user's queue entry and seat.
func LockName(userID uint64) string {
	return "roulette:user:" + strconv.FormatUint(userID, 10)
}

type outcome string

const (
	outcomePaired   outcome = "paired"
	outcomeGone     outcome = "gone" // own entry no longer queued
	outcomeEmpty    outcome = "empty"
	outcomeBusy     outcome = "busy" // own entry claimed by another matcher
	outcomeConflict outcome = "conflict"
	outcomeLockWait outcome = "lock_timeout"
	outcomeError    outcome = "error"
)

type task struct {
	userID uint64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator runs the queue.
type Coordinator struct {
	appCtx   *app.AppContext
	log      *slog.Logger
	opts     Options
	profiles *repository.ProfileRepository
	queue    *repository.QueueRepository
	pairs    *repository.PairRepository
	intn     func(n int) int

	base context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	tasks  map[uint64]*task
	wake   chan struct{} // closed and replaced on every join
	closed bool
	wg     sync.WaitGroup
}

// NewCoordinator creates a Coordinator. Tasks start on Join or Resume.
func NewCoordinator(appCtx *app.AppContext, opts Options) *Coordinator {
	base, stop := context.WithCancel(context.Background())
	return &Coordinator{
		appCtx:   appCtx,
		log:      appCtx.Logger.With("module", "roulette"),
		opts:     opts.withDefaults(),
		profiles: repository.NewProfileRepository(appCtx.DB),
		queue:    repository.NewQueueRepository(appCtx.DB),
		pairs:    repository.NewPairRepository(appCtx.DB),
		intn:     rand.IntN,
		base:     base,
		stop:     stop,
		tasks:    make(map[uint64]*task),
		wake:     make(chan struct{}),
	}
}

// Join puts the user in the queue and starts pairing.
//
// Behavior:
//   - Unknown or inactive user → svcErr.ErrNotEligible.
//   - Seated in an active pair → JoinAlreadyPaired.
//   - Already queued → JoinAlreadyQueued (the task is re-armed if missing).
//   - Otherwise the entry is created with a snapshot of the user's
//     location, the session moves to queued and waiting tasks are woken.
func (c *Coordinator) Join(ctx context.Context, userID uint64) (JoinStatus, error) {
	c.log.Debug("Join called", "user", userID)

	p, err := c.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("join %d: %w", userID, svcErr.ErrNotEligible)
	}
	if err != nil {
		return "", err
	}
	if p.Status != db.StatusActive {
		return "", fmt.Errorf("join %d (status %s): %w", userID, p.Status, svcErr.ErrNotEligible)
	}

	var status JoinStatus
	err = c.appCtx.Locker.WithLock(ctx, LockName(userID), func(ctx context.Context) error {
		_, err := c.pairs.Active(ctx, userID)
		if err == nil {
			status = JoinAlreadyPaired
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		created, err := c.queue.Enqueue(ctx, &db.QueueEntry{
			UserID: userID,
			Lat:    p.Lat,
			Lon:    p.Lon,
			City:   p.City,
		})
		if err != nil {
			return err
		}
		status = JoinAlreadyQueued
		if created {
			status = JoinQueued
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch status {
	case JoinAlreadyPaired:
		return status, nil
	case JoinQueued:
		if err := c.appCtx.Sessions.Set(ctx, userID, session.StateQueued, 0); err != nil {
			c.log.Warn("session update failed", "user", userID, "err", err)
		}
		c.log.Info("user queued", "user", userID)
	}

	c.startTask(userID)
	c.broadcast()
	return status, nil
}

// Leave takes the user out of roulette: the task is stopped before
// returning, the queue entry is removed and an active pair is ended.
// Leaving when neither queued nor paired is a no-op.
func (c *Coordinator) Leave(ctx context.Context, userID uint64) error {
	c.log.Debug("Leave called", "user", userID)
	c.stopTask(userID)

	var ended *db.Pair
	err := c.appCtx.Locker.WithLock(ctx, LockName(userID), func(ctx context.Context) error {
		if _, err := c.queue.Remove(ctx, userID); err != nil {
			return err
		}
		p, err := c.pairs.EndActive(ctx, userID, time.Now())
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil
		case err != nil:
			return err
		}
		ended = p
		return nil
	})
	if err != nil {
		return fmt.Errorf("leave %d: %w", userID, err)
	}

	c.setIdle(ctx, userID)
	if ended == nil {
		return nil
	}

	partner := repository.Partner(ended, userID)
	c.setIdle(ctx, partner)
	metrics.PairsActive.Dec()
	c.publish(ctx, events.New(events.TypeUnpaired, userID, partner, *ended.EndedAt))
	c.log.Info("pair ended", "pair", ended.ID, "user", userID, "partner", partner)
	return nil
}

// Queued reports whether the user has a live task on this instance.
func (c *Coordinator) Queued(userID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[userID]
	return ok && t.ctx.Err() == nil
}

// Resume starts a task for every queue entry that has none here, e.g.
// after a restart. Returns how many tasks were started.
func (c *Coordinator) Resume(ctx context.Context) (int, error) {
	ids, err := c.queue.UserIDs(ctx)
	if err != nil {
		return 0, err
	}
	started := 0
	for _, id := range ids {
		if c.startTask(id) {
			started++
		}
	}
	if started > 0 {
		c.broadcast()
	}
	return started, nil
}

// Shutdown stops all tasks and waits for them. Queue entries are kept so
// another instance (or a restart) can Resume them.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
}

// startTask launches the user's task unless a live one exists.
func (c *Coordinator) startTask(userID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if t, ok := c.tasks[userID]; ok && t.ctx.Err() == nil {
		return false
	}

	ctx, cancel := context.WithCancel(c.base)
	t := &task{userID: userID, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	c.tasks[userID] = t

	c.wg.Add(1)
	metrics.QueueSize.Inc()
	go c.run(t)
	return true
}

// stopTask cancels the user's task and waits until it has exited.
func (c *Coordinator) stopTask(userID uint64) {
	c.mu.Lock()
	t, ok := c.tasks[userID]
	c.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// cancelTask is stopTask without waiting. Used from inside another task.
func (c *Coordinator) cancelTask(userID uint64) {
	c.mu.Lock()
	if t, ok := c.tasks[userID]; ok {
		t.cancel()
	}
	c.mu.Unlock()
}

func (c *Coordinator) forget(t *task) {
	c.mu.Lock()
	if c.tasks[t.userID] == t {
		delete(c.tasks, t.userID)
	}
	c.mu.Unlock()
	t.cancel()
}

func (c *Coordinator) wakeChan() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wake
}

// broadcast wakes every waiting task.
func (c *Coordinator) broadcast() {
	c.mu.Lock()
	close(c.wake)
	c.wake = make(chan struct{})
	c.mu.Unlock()
}

func (c *Coordinator) setIdle(ctx context.Context, userID uint64) {
	if err := c.appCtx.Sessions.Set(ctx, userID, session.StateIdle, 0); err != nil {
		c.log.Warn("session update failed", "user", userID, "err", err)
	}
}

func (c *Coordinator) publish(ctx context.Context, e events.Event) {
	if err := c.appCtx.Events.Publish(ctx, e); err != nil {
		c.log.Warn("event publish failed", "type", e.Type, "user", e.UserID, "err", err)
	}
}
