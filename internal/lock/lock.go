// Package lock provides named, cross-process unit-of-work locks backed by
// Redis leases:
//
//	Key:   lock:<name>
//	Value: <random token of the holder>
//	TTL:   lease duration
//
// A lease is acquired with SET NX PX and released only by the holder,
// through a compare-and-delete script. A crashed holder's lease expires.
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Prefix is the Redis key prefix for lock leases.
const Prefix = "lock:"

// ErrNotAcquired is returned when a lock stays held by someone else for
// longer than the wait timeout.
var ErrNotAcquired = errors.New("lock not acquired")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Options tune lease and wait behaviour.
type Options struct {
	TTL  time.Duration // lease lifetime
	Wait time.Duration // how long Acquire polls before giving up
	Poll time.Duration // delay between attempts
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TTL:  10 * time.Second,
		Wait: 2 * time.Second,
		Poll: 20 * time.Millisecond,
	}
}

// Locker hands out named leases.
type Locker struct {
	client redis.UniversalClient
	opts   Options
}

// NewLocker creates a Locker. Zero option fields fall back to defaults.
func NewLocker(client redis.UniversalClient, opts Options) *Locker {
	def := DefaultOptions()
	if opts.TTL <= 0 {
		opts.TTL = def.TTL
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}
	if opts.Poll <= 0 {
		opts.Poll = def.Poll
	}
	return &Locker{client: client, opts: opts}
}

// Lease is a held lock.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// Name returns the lock name the lease was acquired for.
func (l *Lease) Name() string { return l.key[len(Prefix):] }

// Acquire polls until the named lock is free, the wait timeout elapses
// (ErrNotAcquired) or ctx is done.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lease, error) {
	key := Prefix + name
	token := uuid.NewString()
	deadline := time.Now().Add(l.opts.Wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", name, err)
		}
		if ok {
			return &Lease{locker: l, key: key, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("lock %s: %w", name, ErrNotAcquired)
		}

		t := time.NewTimer(l.opts.Poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// Release frees the lease if it is still ours. Releasing an expired or
// already released lease is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.locker.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.Name(), err)
	}
	return nil
}

// WithLock runs fn while holding the named lock.
func (l *Locker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return l.WithLocks(ctx, []string{name}, fn)
}

// WithLocks acquires all names in ascending order, runs fn and releases
// them in reverse. A fixed order keeps two callers locking the same set
// from deadlocking each other.
func (l *Locker) WithLocks(ctx context.Context, names []string, fn func(ctx context.Context) error) error {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*Lease, 0, len(sorted))
	defer func() {
		// release with a fresh context so a canceled caller still unlocks
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Release(rctx)
		}
	}()

	for _, name := range sorted {
		lease, err := l.Acquire(ctx, name)
		if err != nil {
			return err
		}
		held = append(held, lease)
	}
	return fn(ctx)
}
