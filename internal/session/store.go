// Package session keeps per-user conversational state in Redis:
//
//	Key:   session:<user_id>
//	Value: hash {state, partner_id, updated_at}
//	TTL:   refreshed on every write
//
// An expired or missing record reads as idle.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Prefix is the Redis key prefix for session hashes.
const Prefix = "session:"

// DefaultTTL is used when the store is built with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// State of a user in the bot.
type State string

const (
	StateIdle     State = "idle"
	StateBrowsing State = "browsing"
	StateQueued   State = "queued"
	StatePaired   State = "paired"
)

// Record is the stored state of one user.
type Record struct {
	UserID    uint64
	State     State
	PartnerID uint64 // set only when paired
	UpdatedAt time.Time
}

type hash struct {
	State     string `redis:"state"`
	PartnerID uint64 `redis:"partner_id"`
	UpdatedAt int64  `redis:"updated_at"`
}

// Store manages session records.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewStore creates a store on an existing Redis client.
func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func key(userID uint64) string {
	return Prefix + strconv.FormatUint(userID, 10)
}

// Get returns the user's record. Missing records read as idle.
func (s *Store) Get(ctx context.Context, userID uint64) (Record, error) {
	var h hash
	if err := s.client.HGetAll(ctx, key(userID)).Scan(&h); err != nil {
		return Record{}, fmt.Errorf("session: get %d: %w", userID, err)
	}
	rec := Record{UserID: userID, State: State(h.State), PartnerID: h.PartnerID}
	if rec.State == "" {
		rec.State = StateIdle
	}
	if h.UpdatedAt > 0 {
		rec.UpdatedAt = time.UnixMilli(h.UpdatedAt).UTC()
	}
	return rec, nil
}

// Set overwrites the user's state. partnerID is ignored unless state is paired.
func (s *Store) Set(ctx context.Context, userID uint64, state State, partnerID uint64) error {
	if state != StatePaired {
		partnerID = 0
	}
	k := key(userID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k,
		"state", string(state),
		"partner_id", partnerID,
		"updated_at", time.Now().UnixMilli(),
	)
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: set %d: %w", userID, err)
	}
	return nil
}

// SetPaired records a pairing on both sides.
func (s *Store) SetPaired(ctx context.Context, a, b uint64) error {
	if err := s.Set(ctx, a, StatePaired, b); err != nil {
		return err
	}
	return s.Set(ctx, b, StatePaired, a)
}

// Touch refreshes the TTL without changing the state.
func (s *Store) Touch(ctx context.Context, userID uint64) error {
	return s.client.Expire(ctx, key(userID), s.ttl).Err()
}

// Delete removes the record; the user reads as idle afterwards.
func (s *Store) Delete(ctx context.Context, userID uint64) error {
	return s.client.Del(ctx, key(userID)).Err()
}
